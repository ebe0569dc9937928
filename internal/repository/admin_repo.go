package repository

import (
	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers           int64           `json:"total_users"`
	DepositsCompleted    int64           `json:"deposits_completed"`
	DepositVolume        decimal.Decimal `json:"deposit_volume"`
	ActivationsPending   int64           `json:"activations_pending"`
	ActivationsCompleted int64           `json:"activations_completed"`
	ActivationsCancelled int64           `json:"activations_cancelled"`
	PendingWithdrawals   int64           `json:"pending_withdrawals"`
	CommissionPaid       decimal.Decimal `json:"commission_paid"`
	FailedCommissionJobs int64           `json:"failed_commission_jobs"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats() (*DashboardStats, error) {
	var s DashboardStats
	if err := r.db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return nil, err
	}
	r.db.Model(&models.Transaction{}).
		Where("type = ? AND status = ?", domain.TxTypeDeposit, domain.TxStatusCompleted).
		Count(&s.DepositsCompleted)

	var vol struct{ Total decimal.Decimal }
	r.db.Model(&models.Transaction{}).Select("COALESCE(SUM(amount), 0) as total").
		Where("type = ? AND status = ?", domain.TxTypeDeposit, domain.TxStatusCompleted).Scan(&vol)
	s.DepositVolume = vol.Total

	r.db.Model(&models.SmsActivation{}).Where("status = ?", domain.ActivationPending).Count(&s.ActivationsPending)
	r.db.Model(&models.SmsActivation{}).Where("status = ?", domain.ActivationCompleted).Count(&s.ActivationsCompleted)
	r.db.Model(&models.SmsActivation{}).Where("status = ?", domain.ActivationCancelled).Count(&s.ActivationsCancelled)
	r.db.Model(&models.WithdrawalRequest{}).Where("status = ?", domain.WithdrawalPending).Count(&s.PendingWithdrawals)

	var paid struct{ Total decimal.Decimal }
	r.db.Model(&models.Transaction{}).Select("COALESCE(SUM(amount), 0) as total").
		Where("type = ?", domain.TxTypeAffiliateCredit).Scan(&paid)
	s.CommissionPaid = paid.Total

	r.db.Model(&models.CommissionJob{}).Where("status = ?", domain.JobFailed).Count(&s.FailedCommissionJobs)
	return &s, nil
}

// ListUsers returns users with search, role filter, and pagination.
func (r *AdminRepository) ListUsers(search, role string, page, limit int) ([]models.User, int64, error) {
	q := r.db.Model(&models.User{})
	if search != "" {
		q = q.Where("name LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var total int64
	q.Count(&total)
	var users []models.User
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset((page - 1) * limit).Find(&users).Error
	return users, total, err
}

// ListTransactions returns ledger rows across all users with optional type and status filters.
func (r *AdminRepository) ListTransactions(txType, status string, page, limit int) ([]models.Transaction, int64, error) {
	q := r.db.Model(&models.Transaction{})
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	q.Count(&total)
	var list []models.Transaction
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}
