package repository

import (
	"testing"

	"smsgateway/internal/models"
	"smsgateway/internal/testutil"

	"github.com/shopspring/decimal"
)

func price(service, country, brl string) models.ServicePrice {
	return models.ServicePrice{
		Service:  service,
		Country:  country,
		PriceUsd: decimal.NewFromInt(1),
		PriceBrl: decimal.RequireFromString(brl),
	}
}

func TestPriceReplaceAllAndFilter(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPriceRepository(db)

	if err := repo.ReplaceAll([]models.ServicePrice{price("wa", "73", "5.00"), price("tg", "73", "3.00")}); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if err := repo.ReplaceAll([]models.ServicePrice{
		price("wa", "73", "6.00"),
		price("wa", "6", "4.00"),
		price("tg", "6", "2.00"),
	}); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 prices after replace, got %d", len(all))
	}
	p, err := repo.Get("wa", "73")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !p.PriceBrl.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected 6.00, got %s", p.PriceBrl)
	}

	t.Run("by service", func(t *testing.T) {
		list, total, err := repo.Filter([]string{"wa"}, "", 10, 0)
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if total != 2 || len(list) != 2 {
			t.Fatalf("Expected 2 wa prices, got total=%d len=%d", total, len(list))
		}
		for _, p := range list {
			if p.Service != "wa" {
				t.Errorf("Unexpected service %q", p.Service)
			}
		}
	})

	t.Run("by country", func(t *testing.T) {
		list, total, err := repo.Filter(nil, "6", 10, 0)
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if total != 2 {
			t.Fatalf("Expected 2 prices for country 6, got %d", total)
		}
		if list[0].Service != "tg" {
			t.Errorf("Expected cheapest first, got %q", list[0].Service)
		}
	})
}

func TestPriceUpsert(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPriceRepository(db)

	p := price("wa", "73", "5.00")
	if err := repo.Upsert(&p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	q := price("wa", "73", "8.00")
	if err := repo.Upsert(&q); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	got, err := repo.Get("wa", "73")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.PriceBrl.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Expected 8.00 after upsert, got %s", got.PriceBrl)
	}
}
