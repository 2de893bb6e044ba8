package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/credit"
	"github.com/sells-group/leadpilot/internal/leadstore"
	"github.com/sells-group/leadpilot/internal/model"
)

// shutdownFlushTimeout bounds the final flush after the run context ends.
const shutdownFlushTimeout = 5 * time.Second

// Session is the in-memory state the syncer mirrors.
type Session struct {
	Leads   *leadstore.Store
	Credits *credit.Meter
	Profile func() model.Profile
}

// Rehydrate restores leads and credits from st and returns the stored
// profile, if any. Keys are independent: a missing or unreadable key is
// skipped. When no credit balance is stored the meter is seeded with
// initialBalance and that balance is persisted immediately.
func Rehydrate(ctx context.Context, st Store, leads *leadstore.Store, credits *credit.Meter, initialBalance int) (*model.Profile, error) {
	state, err := st.LoadState(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "store: rehydrate")
	}
	log := zap.L().With(zap.String("component", "store"))

	if raw, ok := state[KeyLeads]; ok {
		var ls []model.Lead
		if err := json.Unmarshal(raw, &ls); err != nil {
			log.Warn("store: discarding unreadable leads", zap.Error(err))
		} else {
			n := leads.Load(ls)
			log.Info("store: restored leads", zap.Int("count", n))
		}
	}

	seeded := true
	if raw, ok := state[KeyCredits]; ok {
		var balance int
		if err := json.Unmarshal(raw, &balance); err != nil {
			log.Warn("store: discarding unreadable credit balance", zap.Error(err))
		} else {
			credits.Set(balance)
			seeded = false
		}
	}
	if seeded {
		credits.Set(initialBalance)
		raw, _ := json.Marshal(credits.Balance())
		if err := st.SaveState(ctx, map[string][]byte{KeyCredits: raw}); err != nil {
			return nil, eris.Wrap(err, "store: seed credits")
		}
		log.Info("store: seeded credits", zap.Int("balance", initialBalance))
	}

	var profile *model.Profile
	if raw, ok := state[KeyProfile]; ok {
		var p model.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Warn("store: discarding unreadable profile", zap.Error(err))
		} else {
			profile = &p
		}
	}
	return profile, nil
}

// Syncer writes changed session keys to the store on an interval.
type Syncer struct {
	store    Store
	session  Session
	interval time.Duration

	mu           sync.Mutex
	leadsVersion uint64
	credits      int
	profile      model.Profile
}

// NewSyncer creates a Syncer. The current session is taken as already
// persisted, so build it after Rehydrate.
func NewSyncer(st Store, session Session, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s := &Syncer{store: st, session: session, interval: interval}
	s.leadsVersion = session.Leads.Version()
	s.credits = session.Credits.Balance()
	if session.Profile != nil {
		s.profile = session.Profile()
	}
	return s
}

// Flush persists every key that changed since the last successful flush and
// returns how many keys were written.
func (s *Syncer) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string][]byte, 3)

	version := s.session.Leads.Version()
	if version != s.leadsVersion {
		raw, err := json.Marshal(s.session.Leads.Snapshot())
		if err != nil {
			return 0, eris.Wrap(err, "store: encode leads")
		}
		entries[KeyLeads] = raw
	}

	balance := s.session.Credits.Balance()
	if balance != s.credits {
		raw, _ := json.Marshal(balance)
		entries[KeyCredits] = raw
	}

	var profile model.Profile
	if s.session.Profile != nil {
		profile = s.session.Profile()
		if profile != s.profile {
			raw, err := json.Marshal(profile)
			if err != nil {
				return 0, eris.Wrap(err, "store: encode profile")
			}
			entries[KeyProfile] = raw
		}
	}

	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.store.SaveState(ctx, entries); err != nil {
		return 0, eris.Wrap(err, "store: flush")
	}
	s.leadsVersion = version
	s.credits = balance
	s.profile = profile
	return len(entries), nil
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			defer cancel()
			n, err := s.Flush(flushCtx)
			if err != nil {
				return err
			}
			zap.L().Info("store: final flush", zap.Int("keys", n))
			return nil
		case <-ticker.C:
			n, err := s.Flush(ctx)
			if err != nil {
				zap.L().Warn("store: periodic flush failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("store: flushed", zap.Int("keys", n))
			}
		}
	}
}
