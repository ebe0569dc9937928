package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the periodic price refresh and pending deposit poll.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the jobs. Each run gets its own timeout derived from ctx.
func NewScheduler(ctx context.Context, priceSpec, pollSpec string, pricing *PricingService, payments *PaymentService) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(priceSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		n, err := pricing.RefreshPrices(runCtx)
		if err != nil {
			zap.L().Error("Scheduled price refresh failed", zap.Error(err))
			return
		}
		zap.L().Info("Scheduled price refresh done", zap.Int("prices", n))
	}); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(pollSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		payments.PollPending(runCtx)
	}); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
