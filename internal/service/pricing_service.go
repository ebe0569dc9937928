package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"smsgateway/config"
	"smsgateway/internal/metrics"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	hundred   = decimal.NewFromInt(100)
	maxMarkup = decimal.NewFromInt(1000)
)

type priceKey struct{ service, country string }

// Upstream costs known to be wrong, in USD.
var priceOverrides = map[priceKey]decimal.Decimal{
	{service: "wa", country: "1"}: decimal.RequireFromString("0.97"),
}

// LocalPrice converts an upstream USD cost to the BRL sale price.
func LocalPrice(cost, providerMarkup, rate, markupPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(markupPercent.Div(hundred))
	return cost.Mul(providerMarkup).Mul(rate).Mul(factor).Round(2)
}

type PricingService struct {
	cfg      *config.PricingConfig
	prices   *repository.PriceRepository
	settings *repository.SettingRepository
	sms      SMSProvider
	refresh  sync.Mutex
}

func NewPricingService(cfg *config.PricingConfig, prices *repository.PriceRepository, settings *repository.SettingRepository, sms SMSProvider) *PricingService {
	return &PricingService{cfg: cfg, prices: prices, settings: settings, sms: sms}
}

// RefreshPrices rebuilds the price table from upstream. An empty upstream
// result leaves the current table untouched.
func (s *PricingService) RefreshPrices(ctx context.Context) (int, error) {
	s.refresh.Lock()
	defer s.refresh.Unlock()

	markup, err := s.settings.GetMarkup()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	upstreamPrices, err := s.sms.GetPrices(ctx)
	if err != nil {
		metrics.PriceRefresh.WithLabelValues("error").Inc()
		return 0, upstream("getPrices", err)
	}

	records := make([]models.ServicePrice, 0, len(upstreamPrices))
	for _, p := range upstreamPrices {
		cost := p.Cost
		if override, ok := priceOverrides[priceKey{p.Service, p.Country}]; ok {
			zap.L().Warn("Applied price override",
				zap.String("service", p.Service), zap.String("country", p.Country), zap.String("price_usd", override.String()))
			cost = override
		}
		if !cost.IsPositive() {
			continue
		}
		records = append(records, models.ServicePrice{
			Service:  p.Service,
			Country:  p.Country,
			PriceUsd: cost,
			PriceBrl: LocalPrice(cost, s.cfg.ProviderMarkup, s.cfg.ExchangeRate, markup),
		})
	}
	if len(records) == 0 {
		metrics.PriceRefresh.WithLabelValues("empty").Inc()
		return 0, upstream("getPrices", errors.New("no valid prices returned"))
	}
	if err := s.prices.ReplaceAll(records); err != nil {
		metrics.PriceRefresh.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("replace prices: %w", err)
	}
	metrics.PriceRefresh.WithLabelValues("ok").Inc()
	zap.L().Info("Service prices cached", zap.Int("count", len(records)), zap.String("markup", markup.String()))
	return len(records), nil
}

func (s *PricingService) GetPrice(service, country string) (*models.ServicePrice, error) {
	p, err := s.prices.Get(service, country)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrPriceNotFound, service, country)
	}
	return p, err
}

// Quote returns the price, refreshing the table once when it is missing.
func (s *PricingService) Quote(ctx context.Context, service, country string) (*models.ServicePrice, error) {
	p, err := s.GetPrice(service, country)
	if !errors.Is(err, ErrPriceNotFound) {
		return p, err
	}
	zap.L().Info("Price missing, refreshing", zap.String("service", service), zap.String("country", country))
	if _, rerr := s.RefreshPrices(ctx); rerr != nil {
		zap.L().Warn("Refresh on price miss failed", zap.Error(rerr))
		return nil, err
	}
	return s.GetPrice(service, country)
}

func (s *PricingService) ListPrices() ([]models.ServicePrice, error) {
	list, err := s.prices.List()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrPriceNotFound
	}
	return list, nil
}

func (s *PricingService) FilterPrices(services []string, country string, limit, offset int) ([]models.ServicePrice, int64, error) {
	resolved := make([]string, 0, len(services))
	for _, svc := range services {
		if svc = ResolveService(svc); svc != "" {
			resolved = append(resolved, svc)
		}
	}
	if country != "" {
		country = ResolveCountry(country)
	}
	return s.prices.Filter(resolved, country, limit, offset)
}

// UpsertPrice sets a single price by hand. A zero priceBrl is derived from
// priceUsd with the current markup. The next refresh replaces it.
func (s *PricingService) UpsertPrice(service, country string, priceUsd, priceBrl decimal.Decimal) (*models.ServicePrice, error) {
	service, country = ResolveService(service), ResolveCountry(country)
	if !validCode(service) || !validCode(country) {
		return nil, invalid("service and country are required")
	}
	if priceUsd.IsNegative() || priceBrl.IsNegative() {
		return nil, invalid("price must be non-negative")
	}
	if priceBrl.IsZero() {
		markup, err := s.settings.GetMarkup()
		if err != nil {
			return nil, err
		}
		priceBrl = LocalPrice(priceUsd, s.cfg.ProviderMarkup, s.cfg.ExchangeRate, markup)
	}
	p := &models.ServicePrice{Service: service, Country: country, PriceUsd: priceUsd, PriceBrl: priceBrl.Round(2)}
	if err := s.prices.Upsert(p); err != nil {
		return nil, err
	}
	return s.prices.Get(service, country)
}

func (s *PricingService) GetMarkup() (decimal.Decimal, error) {
	m, err := s.settings.GetMarkup()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	return m, err
}

func validateMarkup(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(maxMarkup) {
		return invalid("markup percentage must be between 0 and 1000")
	}
	return nil
}

// SetMarkup stores the markup; cached prices pick it up at the next refresh.
func (s *PricingService) SetMarkup(p decimal.Decimal) error {
	if err := validateMarkup(p); err != nil {
		return err
	}
	if err := s.settings.SetMarkup(p); err != nil {
		return err
	}
	zap.L().Info("Markup percentage set", zap.String("percentage", p.String()))
	return nil
}

// UpdateMarkup stores the markup and reprices immediately.
func (s *PricingService) UpdateMarkup(ctx context.Context, p decimal.Decimal) (int, error) {
	if err := s.SetMarkup(p); err != nil {
		return 0, err
	}
	return s.RefreshPrices(ctx)
}
