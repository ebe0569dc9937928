package service

import (
	"context"
	"time"

	"smsgateway/config"
	"smsgateway/internal/metrics"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const commissionBatchSize = 50

// CommissionWorker drains the commission outbox written by completed deposits.
type CommissionWorker struct {
	cfg        *config.AffiliateConfig
	db         *gorm.DB
	jobs       *repository.CommissionJobRepository
	affiliates *AffiliateService
	now        func() time.Time
}

func NewCommissionWorker(cfg *config.AffiliateConfig, db *gorm.DB, jobs *repository.CommissionJobRepository, affiliates *AffiliateService) *CommissionWorker {
	return &CommissionWorker{cfg: cfg, db: db, jobs: jobs, affiliates: affiliates, now: time.Now}
}

// Run processes due jobs every interval until ctx is cancelled.
func (w *CommissionWorker) Run(ctx context.Context) {
	interval := w.cfg.WorkerInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			w.ProcessDue(ctx)
		}
	}
}

// ProcessDue runs one pass over the due jobs and returns how many were paid.
func (w *CommissionWorker) ProcessDue(ctx context.Context) int {
	due, err := w.jobs.Due(w.now(), commissionBatchSize)
	if err != nil {
		zap.L().Error("Load commission jobs failed", zap.Error(err))
		return 0
	}
	done := 0
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		if w.process(ctx, &due[i]) {
			done++
		}
	}
	return done
}

func (w *CommissionWorker) process(ctx context.Context, job *models.CommissionJob) bool {
	var paid *models.Transaction
	var claimed bool
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		claimed, err = w.jobs.MarkDone(tx, job.ID)
		if err != nil || !claimed {
			return err
		}
		paid, err = w.affiliates.CreditCommissionTx(tx, Commission{
			DepositTransactionID: job.DepositTransactionID,
			ReferredUserID:       job.ReferredUserID,
			Amount:               job.Amount,
			Code:                 job.Code,
		})
		return err
	})
	if err != nil {
		attempts := job.Attempts + 1
		next := w.now().Add(w.cfg.RetryBackoff * time.Duration(attempts))
		if rerr := w.jobs.MarkRetry(job.ID, attempts, w.cfg.MaxAttempts, next, err.Error()); rerr != nil {
			zap.L().Error("Record commission retry failed", zap.Uint("job_id", job.ID), zap.Error(rerr))
		}
		result := "retry"
		if attempts >= w.cfg.MaxAttempts {
			result = "failed"
		}
		metrics.CommissionJobs.WithLabelValues(result).Inc()
		zap.L().Warn("Commission job failed",
			zap.Uint("job_id", job.ID), zap.Int("attempts", attempts), zap.String("result", result), zap.Error(err))
		return false
	}
	if !claimed {
		return false
	}
	if paid == nil {
		metrics.CommissionJobs.WithLabelValues("skipped").Inc()
		return true
	}
	metrics.CommissionJobs.WithLabelValues("paid").Inc()
	zap.L().Info("Commission paid",
		zap.Uint("job_id", job.ID), zap.Uint("referrer_id", paid.UserID), zap.String("amount", paid.Amount.String()))
	w.affiliates.publishBalance(paid.UserID)
	return true
}
