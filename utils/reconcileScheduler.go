package utils

import (
	"context"

	"github.com/robfig/cron/v3"
)

// StartReconcileScheduler runs job on the given cron schedule until the
// returned cron is stopped. Each run gets its own background context.
func StartReconcileScheduler(schedule string, job func(ctx context.Context) error, log *Logger) (*cron.Cron, error) {
	log.Info("[RECONCILE-SCHEDULER] Initializing", "schedule", schedule)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		log.Info("[RECONCILE-SCHEDULER] Running enrollment reconcile")
		if err := job(context.Background()); err != nil {
			log.Error("[RECONCILE-SCHEDULER] Reconcile failed", "error", err)
			return
		}
		log.Info("[RECONCILE-SCHEDULER] Reconcile finished")
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
