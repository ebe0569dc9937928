package service

import (
	"context"
	"encoding/json"

	"smsgateway/pkg/smsactivate"
)

// SMSProvider is the subset of the SMS activation API the services use.
type SMSProvider interface {
	GetPrices(ctx context.Context) ([]smsactivate.Price, error)
	GetNumber(ctx context.Context, service, country string) (*smsactivate.Number, error)
	GetStatus(ctx context.Context, activationID string) (*smsactivate.Status, error)
	SetStatus(ctx context.Context, activationID string, status int) (string, error)
	GetNumbersStatus(ctx context.Context, country, operator string) (json.RawMessage, error)
	GetCountries(ctx context.Context) (map[string]string, error)
}

var _ SMSProvider = (*smsactivate.Client)(nil)
