// Package payment talks to PIX payment providers.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/shopspring/decimal"
)

// Upstream charge statuses.
const (
	StatusCreated  = "created"
	StatusPaid     = "paid"
	StatusExpired  = "expired"
	StatusCanceled = "canceled"
)

var ErrChargeNotFound = errors.New("payment: charge not found")

type ChargeRequest struct {
	UserID     uint
	Amount     decimal.Decimal // BRL
	WebhookURL string
}

// Charge is a PIX charge as reported by the provider.
type Charge struct {
	ID           string
	Status       string
	Amount       decimal.Decimal
	QRCode       string
	QRCodeBase64 string
}

type Provider interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, id string) (*Charge, error)
}

// VerifySignature checks a hex HMAC-SHA256 of the body.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
