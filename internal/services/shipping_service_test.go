package services

import (
	"errors"
	"testing"
	"time"
)

func TestShippingQuoteRegionalTable(t *testing.T) {
	service := NewShippingService(ShippingServiceDeps{})

	cases := []struct {
		name  string
		zip   string
		price int64
		days  int
	}{
		{"southeast", "01310-100", 1990, 3},
		{"midwest", "69900-000", 2490, 5},
		{"northeast", "70040-010", 2990, 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := service.Quote(tc.zip, "", []ShippingItem{{Quantity: 1}})
			if err != nil {
				t.Fatalf("Quote: %v", err)
			}
			if quote.PriceCents != tc.price {
				t.Fatalf("expected price %d, got %d", tc.price, quote.PriceCents)
			}
			if quote.Days != tc.days {
				t.Fatalf("expected %d days, got %d", tc.days, quote.Days)
			}
			if quote.Label != "Frete" {
				t.Fatalf("expected default label, got %q", quote.Label)
			}
		})
	}
}

func TestShippingQuoteWeightSurcharge(t *testing.T) {
	service := NewShippingService(ShippingServiceDeps{})

	// 2.5kg to the southeast: base 1990 plus 800 per kilo over the first.
	quote, err := service.Quote("01310100", "SEDEX", []ShippingItem{{WeightKg: 2.5, Quantity: 1}})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.PriceCents != 1990+1200 {
		t.Fatalf("expected price 3190, got %d", quote.PriceCents)
	}
	if quote.Label != "SEDEX" {
		t.Fatalf("expected label SEDEX, got %q", quote.Label)
	}
}

func TestShippingQuoteDefaultsItemWeight(t *testing.T) {
	service := NewShippingService(ShippingServiceDeps{})

	// Five default-weight items at 0.3kg each is 1.5kg, so half a kilo over.
	quote, err := service.Quote("01310100", "", []ShippingItem{{Quantity: 5}})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.PriceCents != 1990+400 {
		t.Fatalf("expected price 2390, got %d", quote.PriceCents)
	}
}

func TestShippingQuoteInvalidZip(t *testing.T) {
	service := NewShippingService(ShippingServiceDeps{})

	if _, err := service.Quote("abc", "", nil); !errors.Is(err, ErrInvalidDestination) {
		t.Fatalf("expected ErrInvalidDestination, got %v", err)
	}
}

func TestShippingTrack(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	service := NewShippingService(ShippingServiceDeps{Clock: func() time.Time { return now }})

	result, err := service.Track("NM-ABC123")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if result.Status != "in_transit" {
		t.Fatalf("expected status in_transit, got %q", result.Status)
	}
	if len(result.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(result.Events))
	}
	if !result.Events[0].Date.Equal(now.AddDate(0, 0, -3)) {
		t.Fatalf("unexpected first event date %v", result.Events[0].Date)
	}

	if _, err := service.Track("  "); err == nil {
		t.Fatal("expected error for empty tracking code")
	}
}
