package service

import (
	"errors"
	"strings"

	"smsgateway/internal/models"
	"smsgateway/internal/repository"

	"gorm.io/gorm"
)

type UserService struct {
	users *repository.UserRepository
	admin *repository.AdminRepository
}

func NewUserService(users *repository.UserRepository, admin *repository.AdminRepository) *UserService {
	return &UserService{users: users, admin: admin}
}

func (s *UserService) Me(userID uint) (*models.User, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	return u, nil
}

// ProfileUpdate carries the optional fields a user may change on their account.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
	PixKey   *string
}

func (s *UserService) UpdateMe(userID uint, p ProfileUpdate) (*models.User, error) {
	fields := map[string]interface{}{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if len([]rune(name)) < minNameLen {
			return nil, invalid("name must have at least %d characters", minNameLen)
		}
		fields["name"] = name
	}
	if p.Email != nil {
		email, err := normalizeEmail(*p.Email)
		if err != nil {
			return nil, err
		}
		existing, err := s.users.GetByEmail(email)
		switch {
		case err == nil && existing.ID != userID:
			return nil, ErrEmailExists
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		fields["email"] = email
	}
	if p.Password != nil {
		hash, err := hashPassword(*p.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}
	if p.PixKey != nil {
		fields["pix_key"] = strings.TrimSpace(*p.PixKey)
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(userID, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrEmailExists
			}
			return nil, err
		}
	}
	return s.Me(userID)
}

func (s *UserService) ListUsers(search, role string, page, limit int) ([]models.User, int64, error) {
	page, limit = paginate(page, limit)
	return s.admin.ListUsers(strings.TrimSpace(search), strings.ToUpper(role), page, limit)
}

func (s *UserService) ListTransactions(txType, status string, page, limit int) ([]models.Transaction, int64, error) {
	page, limit = paginate(page, limit)
	return s.admin.ListTransactions(strings.ToUpper(txType), strings.ToUpper(status), page, limit)
}

func (s *UserService) DashboardStats() (*repository.DashboardStats, error) {
	return s.admin.GetDashboardStats()
}

func paginate(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
