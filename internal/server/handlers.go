package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/export"
	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/pipeline"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	pipeline.Progress
	Running bool `json:"running"`
	Credits int  `json:"credits"`
	Leads   int  `json:"leads"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Progress: s.pipe.Progress(),
		Running:  s.pipe.Running(),
		Credits:  s.credits.Balance(),
		Leads:    len(s.pipe.Leads()),
	})
}

func (s *Server) sectors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.Sectors())
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	leads := s.pipe.Leads()
	if st := r.URL.Query().Get("status"); st != "" {
		filtered := make([]model.Lead, 0, len(leads))
		for _, l := range leads {
			if string(l.Status) == st {
				filtered = append(filtered, l)
			}
		}
		leads = filtered
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.pipe.Lead(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) clearLeads(w http.ResponseWriter, _ *http.Request) {
	if err := s.pipe.Clear(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dispatchLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.pipe.Dispatch(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "lead_id": id})
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var params pipeline.Params
	if !decodeBody(w, r, &params) {
		return
	}
	runID, err := s.pipe.Start(s.runCtx, params)
	if err != nil {
		writeError(w, err)
		return
	}
	zap.L().Info("server: run started", zap.String("run_id", runID), zap.String("sector", params.SectorID))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "run_id": runID})
}

func (s *Server) stopRun(w http.ResponseWriter, _ *http.Request) {
	s.pipe.Stop()
	writeJSON(w, http.StatusAccepted, s.pipe.Progress())
}

func (s *Server) getCredits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"balance": s.credits.Balance()})
}

func (s *Server) topUpCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	balance, err := s.credits.TopUp(req.Amount)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func (s *Server) getProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipe.Profile())
}

// putProfile replaces the profile. The pro flag is not client-writable and
// keeps its current value.
func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	p.IsPro = s.pipe.Profile().IsPro
	if err := s.pipe.SetProfile(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pipe.Profile())
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(format, s.nowFunc())))
	if err := export.Write(w, format, s.pipe.Leads()); err != nil {
		zap.L().Error("server: export failed", zap.Error(err))
	}
}
