package repository

import (
	"time"

	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionJobRepository is the outbox of pending affiliate payouts.
type CommissionJobRepository struct {
	db *gorm.DB
}

func NewCommissionJobRepository(db *gorm.DB) *CommissionJobRepository {
	return &CommissionJobRepository{db: db}
}

// Enqueue inserts the job in the caller's transaction. A second job for the
// same deposit is ignored.
func (r *CommissionJobRepository) Enqueue(tx *gorm.DB, job *models.CommissionJob) error {
	if job.Status == "" {
		job.Status = domain.JobPending
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(job).Error
}

func (r *CommissionJobRepository) Due(now time.Time, limit int) ([]models.CommissionJob, error) {
	var list []models.CommissionJob
	err := r.db.Where("status = ? AND next_attempt_at <= ?", domain.JobPending, now).
		Order("next_attempt_at ASC, id ASC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *CommissionJobRepository) GetByDeposit(depositTxID uint) (*models.CommissionJob, error) {
	var j models.CommissionJob
	err := r.db.Where("deposit_transaction_id = ?", depositTxID).First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// MarkDone completes a PENDING job inside the transaction that paid it.
func (r *CommissionJobRepository) MarkDone(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&models.CommissionJob{}).
		Where("id = ? AND status = ?", id, domain.JobPending).
		Updates(map[string]interface{}{"status": domain.JobDone, "attempts": gorm.Expr("attempts + 1")})
	return res.RowsAffected == 1, res.Error
}

// MarkRetry records a failed attempt; the job fails for good once attempts reach max.
func (r *CommissionJobRepository) MarkRetry(id uint, attempts, max int, next time.Time, lastErr string) error {
	status := domain.JobPending
	if attempts >= max {
		status = domain.JobFailed
	}
	if len(lastErr) > 512 {
		lastErr = lastErr[:512]
	}
	return r.db.Model(&models.CommissionJob{}).
		Where("id = ? AND status = ?", id, domain.JobPending).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": next,
			"last_error":      lastErr,
		}).Error
}
