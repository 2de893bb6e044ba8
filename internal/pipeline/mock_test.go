package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadpilot/internal/credit"
	"github.com/sells-group/leadpilot/internal/leadstore"
	"github.com/sells-group/leadpilot/internal/model"
)

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractCandidates(ctx context.Context, req ExtractRequest) ([]model.Candidate, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Candidate), args.Error(1)
}

// --- Lookup Mock ---

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) LookupIntel(ctx context.Context, req LookupRequest) (*model.Intel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Intel), args.Error(1)
}

// --- Dispatcher Mock ---

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Endpoint(sender model.Profile) string {
	args := m.Called(sender)
	return args.String(0)
}

func (m *mockDispatcher) Dispatch(lead model.Lead, sender model.Profile) {
	m.Called(lead, sender)
}

type harness struct {
	o          *Orchestrator
	extractor  *mockExtractor
	lookup     *mockLookup
	dispatcher *mockDispatcher
	leads      *leadstore.Store
	credits    *credit.Meter
}

func newHarness(t *testing.T, cfg Config, balance int) *harness {
	t.Helper()
	h := &harness{
		extractor:  &mockExtractor{},
		lookup:     &mockLookup{},
		dispatcher: &mockDispatcher{},
		leads:      leadstore.New(),
		credits:    credit.NewMeter(balance),
	}
	h.o = New(cfg, h.extractor, h.lookup, h.dispatcher, h.leads, h.credits)
	h.o.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	var mu sync.Mutex
	n := 0
	h.o.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("lead-%d", n)
	}
	t.Cleanup(func() {
		h.o.Wait()
		h.extractor.AssertExpectations(t)
		h.lookup.AssertExpectations(t)
		h.dispatcher.AssertExpectations(t)
	})
	return h
}

func named(name string) any {
	return mock.MatchedBy(func(r LookupRequest) bool { return r.Name == name })
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func fullIntel(email string) *model.Intel {
	return &model.Intel{
		Email:        strPtr(email),
		Phone:        strPtr("+90 216 555 00 00"),
		LinkedIn:     strPtr("https://linkedin.com/company/acme"),
		Description:  strPtr("Freight forwarder"),
		EmailSubject: strPtr("Partnership"),
		EmailDraft:   strPtr("Hello"),
		Icebreaker:   strPtr("Congrats on the new depot"),
		Competitors:  []string{"Beta Cargo"},
		HealthScore:  intPtr(78),
	}
}
