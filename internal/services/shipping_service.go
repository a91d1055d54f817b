package services

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	defaultItemWeightKg = 0.3
	extraCentsPerKg     = 800

	baseSouthSoutheastCents = 1990
	baseMidwestCents        = 2490
	baseNorthNortheastCents = 2990
)

// ErrInvalidDestination is returned when the destination zip code is unusable.
var ErrInvalidDestination = errors.New("shipping: invalid destination zip")

// ShippingItem describes one cart line for quoting. Weight is in kilograms;
// zero means the item ships at the default weight.
type ShippingItem struct {
	WeightKg float64
	Quantity int64
}

// ShippingQuote is a priced delivery estimate.
type ShippingQuote struct {
	PriceCents int64
	Label      string
	Days       int
}

// TrackingEvent is one step in a shipment history.
type TrackingEvent struct {
	Date        time.Time
	Description string
}

// TrackingResult is the shipment history for an order code.
type TrackingResult struct {
	Code   string
	Status string
	Events []TrackingEvent
}

// ShippingServiceDeps lists the dependencies required by ShippingService.
type ShippingServiceDeps struct {
	Clock  func() time.Time
	Logger Logger
}

// ShippingService prices deliveries with a regional table keyed on the first
// digit of the destination zip, plus a per-kilogram surcharge over one kilo.
// A carrier integration can replace the table without changing the contract.
type ShippingService struct {
	clock  func() time.Time
	logger Logger
}

// NewShippingService constructs a ShippingService.
func NewShippingService(deps ShippingServiceDeps) *ShippingService {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &ShippingService{clock: normalizeClock(deps.Clock), logger: logger}
}

// Quote prices a delivery to the given zip code.
func (s *ShippingService) Quote(toZip, label string, items []ShippingItem) (ShippingQuote, error) {
	digits := digitsOnly(toZip)
	if digits == "" {
		return ShippingQuote{}, ErrInvalidDestination
	}

	var totalWeight float64
	for _, item := range items {
		weight := item.WeightKg
		if weight <= 0 {
			weight = defaultItemWeightKg
		}
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		totalWeight += weight * float64(quantity)
	}

	price := int64(baseMidwestCents)
	days := 5
	switch digits[0] {
	case '0', '1', '2', '3':
		price = baseSouthSoutheastCents
		days = 3
	case '7', '8', '9':
		price = baseNorthNortheastCents
		days = 8
	}

	if over := totalWeight - 1; over > 0 {
		price += int64(math.Round(over * extraCentsPerKg))
	}

	if strings.TrimSpace(label) == "" {
		label = "Frete"
	}
	return ShippingQuote{PriceCents: price, Label: label, Days: days}, nil
}

// Track returns the shipment history for an order code. Until a carrier is
// wired in, the history is synthesised from the current time.
func (s *ShippingService) Track(code string) (TrackingResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return TrackingResult{}, errors.New("shipping: tracking code is required")
	}

	now := s.clock()
	return TrackingResult{
		Code:   code,
		Status: "in_transit",
		Events: []TrackingEvent{
			{Date: now.AddDate(0, 0, -3), Description: "Objeto postado"},
			{Date: now.AddDate(0, 0, -2), Description: "Em trânsito para unidade de tratamento"},
			{Date: now.AddDate(0, 0, -1), Description: "Objeto em transferência"},
		},
	}, nil
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
