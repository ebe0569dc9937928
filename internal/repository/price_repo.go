package repository

import (
	"smsgateway/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceRepository struct {
	db *gorm.DB
}

func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// ReplaceAll swaps the whole price table in one transaction.
func (r *PriceRepository) ReplaceAll(prices []models.ServicePrice) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ServicePrice{}).Error; err != nil {
			return err
		}
		if len(prices) == 0 {
			return nil
		}
		return tx.CreateInBatches(prices, 500).Error
	})
}

func (r *PriceRepository) Get(service, country string) (*models.ServicePrice, error) {
	var p models.ServicePrice
	err := r.db.Where("service = ? AND country = ?", service, country).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PriceRepository) List() ([]models.ServicePrice, error) {
	var list []models.ServicePrice
	err := r.db.Order("service ASC, country ASC").Find(&list).Error
	return list, err
}

// Filter returns prices for the given services (all when empty) and country
// (any when empty), paginated.
func (r *PriceRepository) Filter(services []string, country string, limit, offset int) ([]models.ServicePrice, int64, error) {
	q := r.db.Model(&models.ServicePrice{})
	if len(services) > 0 {
		q = q.Where("service IN ?", services)
	}
	if country != "" {
		q = q.Where("country = ?", country)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.ServicePrice
	err := q.Order("price_brl ASC, service ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (r *PriceRepository) Upsert(p *models.ServicePrice) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service"}, {Name: "country"}},
		DoUpdates: clause.AssignmentColumns([]string{"price_usd", "price_brl", "updated_at"}),
	}).Create(p).Error
}
