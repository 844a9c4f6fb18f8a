// Package admission owns the process-wide serving mode. The service is the
// single writer of the budget-forced degraded flag; every mode read and every
// budget check goes through it so transitions stay auditable.
package admission

import (
	"context"
	"sync"
	"time"

	"github.com/routeworks/llm-router/models"
	"go.uber.org/zap"
)

// Mode reasons reported by Snapshot.
const (
	ReasonCredentialPresent = "api_key_present"
	ReasonNoCredential      = "no_api_key"
	ReasonSpendCapReached   = "spend_cap_reached"
)

// SpendLedger reports the cumulative recorded cost in cents since a point in
// time. Implemented by the request repository.
type SpendLedger interface {
	SpendSince(ctx context.Context, since time.Time) (float64, error)
}

// Service is the admission controller: a two-state machine (FULL/DEGRADED)
// gated by the live credential and the rolling daily spend ledger.
type Service struct {
	capCents      float64
	hasCredential bool
	fullMax       int
	ledger        SpendLedger
	logger        *zap.Logger
	now           func() time.Time

	mu             sync.Mutex
	forcedDegraded bool
	forcedDay      string // calendar day (2006-01-02) the flag was set
}

// New creates an admission service using the wall clock.
func New(capCents float64, hasCredential bool, fullMax int, ledger SpendLedger, logger *zap.Logger) *Service {
	return NewWithClock(capCents, hasCredential, fullMax, ledger, logger, time.Now)
}

// NewWithClock creates an admission service with an injected clock, so tests
// can cross day boundaries without real time passing.
func NewWithClock(capCents float64, hasCredential bool, fullMax int, ledger SpendLedger, logger *zap.Logger, now func() time.Time) *Service {
	return &Service{
		capCents:      capCents,
		hasCredential: hasCredential,
		fullMax:       fullMax,
		ledger:        ledger,
		logger:        logger,
		now:           now,
	}
}

// CurrentMode resolves the serving mode. Without a credential the answer is
// always DEGRADED. A budget-forced flag is cleared lazily the first time this
// is evaluated on a calendar day different from the day it was set.
func (s *Service) CurrentMode() models.ServingMode {
	if !s.hasCredential {
		return models.ModeDegraded
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.forcedDegraded && s.forcedDay != s.today() {
		s.forcedDegraded = false
		s.forcedDay = ""
		s.logger.Info("new day, spend cap reset, full mode re-enabled")
	}

	if s.forcedDegraded {
		return models.ModeDegraded
	}
	return models.ModeFull
}

// CheckBudget reports whether today's recorded spend is under the daily cap.
// Call it before any full-mode dispatch. This is the only place the forced
// flag is set; once set it holds for the remainder of the calendar day even
// if a later query would show the budget no longer exceeded.
func (s *Service) CheckBudget(ctx context.Context) bool {
	spent, err := s.ledger.SpendSince(ctx, s.startOfToday())
	if err != nil {
		// Soft enforcement: a ledger outage must not take down dispatch.
		s.logger.Error("spend ledger query failed, admitting request", zap.Error(err))
		return true
	}

	if spent >= s.capCents {
		s.mu.Lock()
		if !s.forcedDegraded {
			s.forcedDegraded = true
			s.forcedDay = s.today()
			s.logger.Warn("daily spend cap hit, switching to degraded mode",
				zap.Float64("spent_cents", spent),
				zap.Float64("cap_cents", s.capCents))
		}
		s.mu.Unlock()
		return false
	}
	return true
}

// Snapshot returns the full mode status for the mode endpoint.
func (s *Service) Snapshot(ctx context.Context) (*models.ModeInfo, error) {
	mode := s.CurrentMode()

	spent, err := s.ledger.SpendSince(ctx, s.startOfToday())
	if err != nil {
		return nil, err
	}

	reason := ReasonNoCredential
	if s.hasCredential {
		reason = ReasonCredentialPresent
		s.mu.Lock()
		if s.forcedDegraded {
			reason = ReasonSpendCapReached
		}
		s.mu.Unlock()
	}

	info := &models.ModeInfo{
		Mode:            mode,
		Reason:          reason,
		SpendTodayCents: round2(spent),
		SpendCapCents:   s.capCents,
	}
	if mode == models.ModeFull {
		// Approximate: precise accounting lives in the rate limit middleware.
		remaining := s.fullMax
		info.RequestsRemaining = &remaining
	}
	return info, nil
}

func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}

func (s *Service) startOfToday() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
