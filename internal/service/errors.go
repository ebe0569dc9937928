package service

import (
	"errors"
	"fmt"

	"smsgateway/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrNotFound                     = errors.New("not found")
	ErrInvalidInput                 = errors.New("invalid input")
	ErrConflict                     = errors.New("conflict")
	ErrInsufficientBalance          = repository.ErrInsufficientBalance
	ErrInsufficientAffiliateBalance = repository.ErrInsufficientAffiliateBalance
	ErrPriceNotFound                = errors.New("price not found, please refresh prices")
	ErrUpstream                     = errors.New("upstream provider failure")
	ErrAlreadyProcessed             = errors.New("already processed")
	ErrNotPending                   = errors.New("not pending")
	ErrInvalidCreds                 = errors.New("invalid email or password")
	ErrInvalidToken                 = errors.New("invalid or expired token")
	ErrEmailExists                  = errors.New("email already registered")
	ErrForbidden                    = errors.New("forbidden")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}

// notFound translates gorm.ErrRecordNotFound, passing other errors through.
func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
