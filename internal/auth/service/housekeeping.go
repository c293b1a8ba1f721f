package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/roomstay/pkg/slogx"
	"github.com/robfig/cron/v3"
)

const (
	DefaultTokenSweepSchedule        = "@every 1h"
	DefaultVerificationSweepSchedule = "@every 30m"

	sweepTimeout = time.Minute
)

// SweepReport is the outcome of one on-demand housekeeping run.
type SweepReport struct {
	RevokedTokensDeleted       int64
	VerificationEntriesDeleted int64
	RanAt                      time.Time
}

// HousekeepingService runs the two expiry sweeps on independent cron
// schedules so blacklist and ledger tables do not grow without bound.
type HousekeepingService struct {
	Revocations   *RevocationService
	Verifications *VerificationService
	Logger        *slog.Logger
	Clock         Clock

	TokenSchedule        string
	VerificationSchedule string

	cron *cron.Cron
}

// NewHousekeepingService creates a housekeeping service. Empty schedules
// fall back to hourly token sweeps and half-hourly ledger sweeps.
func NewHousekeepingService(
	revocations *RevocationService,
	verifications *VerificationService,
	logger *slog.Logger,
	tokenSchedule, verificationSchedule string,
) *HousekeepingService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenSchedule == "" {
		tokenSchedule = DefaultTokenSweepSchedule
	}
	if verificationSchedule == "" {
		verificationSchedule = DefaultVerificationSweepSchedule
	}

	return &HousekeepingService{
		Revocations:          revocations,
		Verifications:        verifications,
		Logger:               logger,
		TokenSchedule:        tokenSchedule,
		VerificationSchedule: verificationSchedule,
	}
}

// Start registers both sweeps and starts the scheduler. It is
// non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() error {
	cronLog := slogx.CronLogger(s.Logger)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	if _, err := c.AddFunc(s.TokenSchedule, func() { s.runTokenSweep() }); err != nil {
		return fmt.Errorf("schedule token sweep %q: %w", s.TokenSchedule, err)
	}
	if _, err := c.AddFunc(s.VerificationSchedule, func() { s.runVerificationSweep() }); err != nil {
		return fmt.Errorf("schedule verification sweep %q: %w", s.VerificationSchedule, err)
	}

	s.cron = c
	c.Start()
	s.Logger.Info("housekeeping service started",
		"token_schedule", s.TokenSchedule,
		"verification_schedule", s.VerificationSchedule,
	)
	return nil
}

// Stop halts the scheduler and waits for running sweeps to finish.
func (s *HousekeepingService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.Logger.Info("housekeeping service stopped")
}

// RunNow runs both sweeps immediately. Each sweep is independent; a
// failure in one does not stop the other.
func (s *HousekeepingService) RunNow(ctx context.Context) (SweepReport, error) {
	now := s.Clock.now()
	report := SweepReport{RanAt: now}

	var errs []error
	n, err := s.Revocations.SweepExpired(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	report.RevokedTokensDeleted = n

	n, err = s.Verifications.SweepExpired(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	report.VerificationEntriesDeleted = n

	return report, errors.Join(errs...)
}

func (s *HousekeepingService) runTokenSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.Revocations.SweepExpired(ctx, s.Clock.now())
	if err != nil {
		s.Logger.Error("revoked token sweep failed", "error", err)
		return
	}
	s.Logger.Info("revoked token sweep completed", "deleted", n)
}

func (s *HousekeepingService) runVerificationSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.Verifications.SweepExpired(ctx, s.Clock.now())
	if err != nil {
		s.Logger.Error("verification sweep failed", "error", err)
		return
	}
	s.Logger.Info("verification sweep completed", "deleted", n)
}
