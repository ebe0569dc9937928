package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"smsgateway/config"
	"smsgateway/internal/auth"
	"smsgateway/internal/domain"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"
	"smsgateway/pkg/mailer"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	confirmTokenTTL = 24 * time.Hour
	resetTokenTTL   = time.Hour
	minPasswordLen  = 6
	minNameLen      = 2
)

type AuthService struct {
	cfg        *config.Config
	db         *gorm.DB
	userRepo   *repository.UserRepository
	tokenRepo  *repository.AuthTokenRepository
	affiliates *repository.AffiliateRepository
	mail       mailer.Mailer
	now        func() time.Time
}

func NewAuthService(
	cfg *config.Config,
	db *gorm.DB,
	userRepo *repository.UserRepository,
	tokenRepo *repository.AuthTokenRepository,
	affiliates *repository.AffiliateRepository,
	mail mailer.Mailer,
) *AuthService {
	return &AuthService{
		cfg:        cfg,
		db:         db,
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		affiliates: affiliates,
		mail:       mail,
		now:        time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", invalid("invalid email")
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", invalid("password must have at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) Register(name, email, password, affiliateCode string) (*models.User, string, string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minNameLen {
		return nil, "", "", invalid("name must have at least %d characters", minNameLen)
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", "", err
	}
	_, err = s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, "", "", ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, "", "", err
	}
	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if code := strings.TrimSpace(affiliateCode); code != "" {
		if link, err := s.affiliates.GetByCode(code); err == nil {
			u.ReferredByLinkID = &link.ID
		}
	}
	if err := s.userRepo.Create(u); err != nil {
		// Lost a race with a concurrent signup, or the address belongs to a deleted account.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", "", ErrEmailExists
		}
		return nil, "", "", err
	}
	s.sendConfirmation(u)

	access, refresh, err := s.issue(u)
	if err != nil {
		return u, "", "", err
	}
	return u, access, refresh, nil
}

func (s *AuthService) Login(email, password string) (*models.User, string, string, error) {
	u, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCreds
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCreds
	}
	access, refresh, err := s.issue(u)
	if err != nil {
		return nil, "", "", err
	}
	return u, access, refresh, nil
}

func (s *AuthService) RefreshToken(refreshToken string) (access, refresh string, err error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidToken
		}
		return "", "", err
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *models.User) (string, string, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ConfirmEmail marks the token owner's email as verified.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.tokenRepo.Consume(tx, hashToken(token), domain.TokenEmailConfirm, s.now())
		if err != nil {
			return tokenError(err)
		}
		return tx.Model(&models.User{}).Where("id = ?", t.UserID).Update("email_verified", true).Error
	})
}

// ForgotPassword emails a reset link when the address is registered.
// Unknown addresses get the same outward result.
func (s *AuthService) ForgotPassword(email string) error {
	u, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	raw, err := s.createToken(u.ID, domain.TokenPasswordReset, resetTokenTTL)
	if err != nil {
		return err
	}
	subject, body := mailer.PasswordResetEmail(s.cfg.App.BaseURL, u.Name, raw)
	if err := s.mail.Send(u.Email, subject, body); err != nil {
		zap.L().Error("Failed to send password reset email", zap.Uint("user_id", u.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.tokenRepo.Consume(tx, hashToken(token), domain.TokenPasswordReset, s.now())
		if err != nil {
			return tokenError(err)
		}
		return tx.Model(&models.User{}).Where("id = ?", t.UserID).Update("password_hash", hash).Error
	})
}

func (s *AuthService) sendConfirmation(u *models.User) {
	raw, err := s.createToken(u.ID, domain.TokenEmailConfirm, confirmTokenTTL)
	if err != nil {
		zap.L().Error("Failed to create confirmation token", zap.Uint("user_id", u.ID), zap.Error(err))
		return
	}
	subject, body := mailer.ConfirmationEmail(s.cfg.App.BaseURL, u.Name, raw)
	if err := s.mail.Send(u.Email, subject, body); err != nil {
		zap.L().Error("Failed to send confirmation email", zap.Uint("user_id", u.ID), zap.Error(err))
	}
}

// createToken stores the hash of a fresh random token and returns the raw value.
func (s *AuthService) createToken(userID uint, purpose string, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(b)
	err := s.tokenRepo.Create(&models.AuthToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func tokenError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidToken
	}
	return err
}
