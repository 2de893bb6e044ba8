package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the sender profile used for outreach and webhooks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initState(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Profile())
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile fields; omitted flags keep their value",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initState(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		next := env.Profile().Merge(profileFromFlags(cmd))
		if err := env.SetProfile(next); err != nil {
			return err
		}
		zap.L().Info("profile updated")

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Profile())
	},
}

func profileFromFlags(cmd *cobra.Command) model.Profile {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	pro, _ := cmd.Flags().GetBool("pro")
	return model.Profile{
		Name:               get("name"),
		Email:              get("email"),
		CompanyName:        get("company-name"),
		CompanyWebsite:     get("company-website"),
		CompanyDescription: get("company-description"),
		FixedPhone:         get("fixed-phone"),
		MobilePhone:        get("mobile-phone"),
		Address:            get("address"),
		AuthorizedPerson:   get("authorized-person"),
		WebhookURL:         get("webhook-url"),
		IsPro:              pro,
	}
}

func init() {
	for _, name := range []string{
		"name", "email", "company-name", "company-website", "company-description",
		"fixed-phone", "mobile-phone", "address", "authorized-person", "webhook-url",
	} {
		profileSetCmd.Flags().String(name, "", "profile "+name)
	}
	profileSetCmd.Flags().Bool("pro", false, "mark the account as pro")
	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
