package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PushinPayProvider creates PIX cash-in charges through the PushinPay API.
// Amounts travel in cents.
type PushinPayProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewPushinPayProvider(baseURL, apiKey string, timeout time.Duration) *PushinPayProvider {
	if baseURL == "" {
		baseURL = "https://api.pushinpay.com.br"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PushinPayProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type cashInReq struct {
	Value      int64  `json:"value"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

type chargeResp struct {
	ID           string `json:"id"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	Status       string `json:"status"`
	Value        int64  `json:"value"`
}

func (r chargeResp) toCharge() *Charge {
	return &Charge{
		ID:           r.ID,
		Status:       strings.ToLower(r.Status),
		Amount:       decimal.New(r.Value, -2),
		QRCode:       r.QRCode,
		QRCodeBase64: r.QRCodeBase64,
	}
}

func (p *PushinPayProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	cents := req.Amount.Shift(2).Round(0).IntPart()
	body, _ := json.Marshal(cashInReq{Value: cents, WebhookURL: req.WebhookURL})
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/pix/cashIn", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	var out chargeResp
	if err := p.do(apiReq, "cashIn", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("pushinpay cashIn: empty charge id")
	}
	zap.L().Info("PIX charge created", zap.String("charge_id", out.ID), zap.Uint("user_id", req.UserID), zap.Int64("cents", cents))
	return out.toCharge(), nil
}

func (p *PushinPayProvider) GetCharge(ctx context.Context, id string) (*Charge, error) {
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/api/transactions/"+id, nil)
	if err != nil {
		return nil, err
	}
	var out chargeResp
	if err := p.do(apiReq, "transactions", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return out.toCharge(), nil
}

func (p *PushinPayProvider) do(req *http.Request, op string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	resp, err := p.client.Do(req)
	if err != nil {
		zap.L().Error("PushinPay request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("pushinpay %s: %w", op, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrChargeNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		zap.L().Error("PushinPay non-success response",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("pushinpay %s: http %d", op, resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("pushinpay %s: decode: %w", op, err)
	}
	return nil
}
