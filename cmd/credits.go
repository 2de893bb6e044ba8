package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the credit balance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initState(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		_, _ = fmt.Fprintf(os.Stdout, "Balance: %d\n", env.Credits.Balance())
		return nil
	},
}

var creditsTopUpCmd = &cobra.Command{
	Use:   "topup <amount>",
	Short: "Add credits to the balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Wrapf(err, "credits topup: invalid amount %q", args[0])
		}

		env, err := initState(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		balance, err := env.Credits.TopUp(amount)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "Balance: %d\n", balance)
		return nil
	},
}

func init() {
	creditsCmd.AddCommand(creditsTopUpCmd)
	rootCmd.AddCommand(creditsCmd)
}
