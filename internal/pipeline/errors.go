package pipeline

import "github.com/rotisserie/eris"

// Errors returned by the orchestrator. Callers match them with errors.Is.
var (
	ErrInsufficientCredit    = eris.New("pipeline: insufficient credit")
	ErrConfigurationRequired = eris.New("pipeline: automation endpoint not configured")
	ErrDiscoveryFailed       = eris.New("pipeline: discovery failed")
	ErrRunActive             = eris.New("pipeline: a run is already active")
	ErrInvalidParams         = eris.New("pipeline: invalid run parameters")
	ErrLeadNotFound          = eris.New("pipeline: lead not found")
)
