package quota

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/internal/logging"
)

// midnight fires at 00:00:00 every day.
const midnight = "0 0 0 * * *"

// Scheduler clears daily counters at midnight.
type Scheduler struct {
	store *Store
	cron  *cron.Cron
}

func NewScheduler(store *Store) *Scheduler {
	return &Scheduler{
		store: store,
		cron:  cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
	}
}

// Start registers the reset job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(midnight, s.resetDaily); err != nil {
		return err
	}
	s.cron.Start()
	logging.Base().Info("quota scheduler started", zap.String("schedule", midnight))
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) resetDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.store.ResetDaily(ctx)
	if err != nil {
		logging.Base().Error("quota daily reset failed", zap.Error(err))
		return
	}
	logging.Base().Info("quota daily reset", zap.Int("keys_removed", n))
}
