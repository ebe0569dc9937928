// Package smsactivate is a client for the sms-activate handler API.
// Responses are either colon-delimited text tokens or JSON documents.
package smsactivate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Status codes accepted by setStatus.
const (
	SetStatusReady    = 1
	SetStatusResend   = 3
	SetStatusComplete = 6
	SetStatusCancel   = 8
)

var ErrBadResponse = errors.New("smsactivate: unexpected response")

// Error is a failure reported by the upstream API, either an HTTP status or
// an error token such as NO_NUMBERS or BAD_KEY.
type Error struct {
	Action     string
	StatusCode int
	Token      string
}

func (e *Error) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("smsactivate %s: %s", e.Action, e.Token)
	}
	return fmt.Sprintf("smsactivate %s: http %d", e.Action, e.StatusCode)
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.sms-activate.ae/stubs/handler_api.php"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Price is one upstream (country, service) cost in USD.
type Price struct {
	Country string
	Service string
	Cost    decimal.Decimal
	Count   int
}

// Number is an allocated activation.
type Number struct {
	ActivationID string
	Phone        string
}

func (c *Client) call(ctx context.Context, action string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	q.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		zap.L().Error("sms-activate request failed", zap.String("action", action), zap.Error(err))
		return nil, fmt.Errorf("smsactivate %s: %w", action, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("smsactivate %s: read body: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		zap.L().Error("sms-activate non-200 response",
			zap.String("action", action),
			zap.Int("status", resp.StatusCode),
			zap.String("body", excerpt(body)))
		return nil, &Error{Action: action, StatusCode: resp.StatusCode}
	}
	return body, nil
}

func excerpt(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// errorToken returns the upstream error token when the body is a bare
// uppercase word like NO_BALANCE instead of the expected payload.
func errorToken(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" || strings.ContainsAny(s, "{[: ") {
		return ""
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r == '_' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return s
}

type priceEntry struct {
	Cost  decimal.Decimal `json:"cost"`
	Count json.Number     `json:"count"`
}

// GetPrices returns every (country, service) cost. The document is keyed by
// country, then by service.
func (c *Client) GetPrices(ctx context.Context) ([]Price, error) {
	body, err := c.call(ctx, "getPrices", nil)
	if err != nil {
		return nil, err
	}
	if tok := errorToken(body); tok != "" {
		return nil, &Error{Action: "getPrices", Token: tok}
	}
	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		zap.L().Error("sms-activate getPrices decode failed", zap.String("body", excerpt(body)), zap.Error(err))
		return nil, fmt.Errorf("%w: getPrices: %v", ErrBadResponse, err)
	}
	var out []Price
	for country, services := range doc {
		for service, raw := range services {
			var e priceEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				zap.L().Warn("Skipping malformed price entry",
					zap.String("country", country), zap.String("service", service))
				continue
			}
			count, _ := strconv.Atoi(e.Count.String())
			out = append(out, Price{Country: country, Service: service, Cost: e.Cost, Count: count})
		}
	}
	return out, nil
}

// GetNumber allocates a number. Only ACCESS_NUMBER:id:phone is a success.
func (c *Client) GetNumber(ctx context.Context, service, country string) (*Number, error) {
	body, err := c.call(ctx, "getNumber", url.Values{"service": {service}, "country": {country}})
	if err != nil {
		return nil, err
	}
	return ParseNumber(string(body))
}

func ParseNumber(s string) (*Number, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if parts[0] != "ACCESS_NUMBER" {
		return nil, &Error{Action: "getNumber", Token: parts[0]}
	}
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("%w: getNumber: %q", ErrBadResponse, s)
	}
	return &Number{ActivationID: parts[1], Phone: parts[2]}, nil
}

// GetStatus polls the activation.
func (c *Client) GetStatus(ctx context.Context, activationID string) (*Status, error) {
	body, err := c.call(ctx, "getStatus", url.Values{"id": {activationID}})
	if err != nil {
		return nil, err
	}
	return ParseStatus(string(body))
}

// SetStatus reports an activation state change upstream and returns the raw reply.
func (c *Client) SetStatus(ctx context.Context, activationID string, status int) (string, error) {
	body, err := c.call(ctx, "setStatus", url.Values{"id": {activationID}, "status": {strconv.Itoa(status)}})
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(string(body))
	if !strings.HasPrefix(reply, "ACCESS_") {
		return "", &Error{Action: "setStatus", Token: reply}
	}
	return reply, nil
}

// GetNumbersStatus returns available number counts per service, passed through as JSON.
func (c *Client) GetNumbersStatus(ctx context.Context, country, operator string) (json.RawMessage, error) {
	params := url.Values{"country": {country}}
	if operator != "" {
		params.Set("operator", operator)
	}
	body, err := c.call(ctx, "getNumbersStatus", params)
	if err != nil {
		return nil, err
	}
	if tok := errorToken(body); tok != "" {
		return nil, &Error{Action: "getNumbersStatus", Token: tok}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: getNumbersStatus", ErrBadResponse)
	}
	return json.RawMessage(body), nil
}

type countryEntry struct {
	ID  json.Number `json:"id"`
	Eng string      `json:"eng"`
}

// GetCountries maps numeric country codes to lower-case English names with spaces removed.
func (c *Client) GetCountries(ctx context.Context) (map[string]string, error) {
	body, err := c.call(ctx, "getCountries", nil)
	if err != nil {
		return nil, err
	}
	if tok := errorToken(body); tok != "" {
		return nil, &Error{Action: "getCountries", Token: tok}
	}
	var doc map[string]countryEntry
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: getCountries: %v", ErrBadResponse, err)
	}
	out := make(map[string]string, len(doc))
	for code, e := range doc {
		if e.Eng == "" {
			continue
		}
		out[code] = strings.Join(strings.Fields(strings.ToLower(e.Eng)), "")
	}
	return out, nil
}
