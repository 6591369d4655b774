package accrual

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

const (
	// One accrual per elapsed 24h window since creation (or last accrual)
	accrualPeriod = 24 * time.Hour

	defaultInterval  = 5 * time.Minute
	defaultBatchSize = 100
)

type Config struct {
	// How often to scan for due positions. Correctness does not depend
	// on the interval, only freshness does
	Interval time.Duration

	// Max positions processed per tick
	BatchSize int
}

// Scheduler credits daily earnings to active investment positions.
// Tick is safe to call concurrently with itself (and with other process
// instances): the credited-days count is always re-derived from the
// earnings audit table under the position row lock, and the unique
// (investment_id, day_number) index rejects any double insert
type Scheduler struct {
	storage   repository.Storage
	logger    logger.Logger
	interval  time.Duration
	batchSize int

	// Injected clock for tests
	now func() time.Time
}

func NewScheduler(cfg Config, storage repository.Storage, l logger.Logger) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Scheduler{
		storage:   storage,
		logger:    l,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		now:       time.Now,
	}
}

// Run ticks until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting accrual scheduler", "interval", s.interval, "batch_size", s.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Accrual scheduler stopped by context")
				return

			case <-ticker.C:
				if err := s.Tick(ctx); err != nil {
					s.logger.Error("Accrual tick failed", "error", err)
				}
			}
		}
	}()

	return idleStopped
}

// Tick processes one batch of due positions. Each position is settled in
// its own transaction, so one bad position never blocks the rest
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	due, err := s.storage.Investment().ListDueInvestments(ctx, now.Add(-accrualPeriod), s.batchSize)
	if err != nil {
		return err
	}

	for _, id := range due {
		if err := s.accrue(ctx, id, now); err != nil {
			s.logger.Error("Failed to accrue investment", "error", err, "investment_id", id)
		}
	}

	return ctx.Err()
}

// accrue settles one position: insert every earning day the position is
// entitled to but has not been credited for, then advance its counters.
// days entitled = min(full 24h windows since creation, duration); days
// credited = count of audit rows. The difference is what gets paid now,
// which is also how a missed run self heals
func (s *Scheduler) accrue(ctx context.Context, investmentID uuid.UUID, now time.Time) error {
	return s.storage.InTx(ctx, func(st repository.Storage) error {
		inv, err := st.Investment().GetInvestmentForUpdate(ctx, investmentID)
		if err != nil {
			return err
		}
		if inv.Status != models.InvestmentActive {
			// Completed while we waited for the row lock
			return nil
		}

		elapsedDays := int(now.Sub(inv.CreatedAt) / accrualPeriod)
		daysToCredit := min(elapsedDays, inv.DurationDays)

		credited, err := st.Investment().CountEarnings(ctx, inv.ID)
		if err != nil {
			return err
		}

		if daysToCredit > credited {
			if err := st.Ledger().LockUsers(ctx, inv.UserID); err != nil {
				return err
			}

			for day := credited + 1; day <= daysToCredit; day++ {
				inserted, err := st.Investment().InsertEarning(ctx, models.Earning{
					InvestmentID: inv.ID,
					DayNumber:    day,
					Amount:       inv.DailyEarning,
					CreditedAt:   inv.CreatedAt.Add(time.Duration(day) * accrualPeriod),
				})
				if err != nil {
					return err
				}
				if !inserted {
					// Another run credited this day already
					continue
				}

				if err := st.Ledger().CreditEarning(ctx, inv.UserID, inv.DailyEarning); err != nil {
					return err
				}
			}

			s.logger.Info("investment accrued",
				"investment_id", inv.ID, "days_credited", daysToCredit-credited, "daily_earning", inv.DailyEarning)
		}

		daysRemaining := max(inv.DurationDays-daysToCredit, 0)
		status := models.InvestmentActive
		if daysRemaining == 0 {
			status = models.InvestmentCompleted
		}

		return st.Investment().SetAccrualState(ctx, inv.ID, daysRemaining, now, status)
	})
}
