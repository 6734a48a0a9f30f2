// Package ticker handles market ticker parsing and validation. Every
// market is created against a ticker that names its category, event slug,
// and close date.
package ticker

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Supported market categories.
const (
	CategorySports   = "SPORTS"
	CategoryPolitics = "POLITICS"
	CategoryCrypto   = "CRYPTO"
	CategoryWeather  = "WEATHER"
)

var validCategories = map[string]bool{
	CategorySports:   true,
	CategoryPolitics: true,
	CategoryCrypto:   true,
	CategoryWeather:  true,
}

// tickerRegex matches: {CATEGORY}-{SLUG}-{YYYYMMDD}
// Example: SPORTS-LAKERS-WIN-FINALS-20250815
var tickerRegex = regexp.MustCompile(
	`^([A-Z]+)-([A-Z0-9]+(?:-[A-Z0-9]+)*)-(\d{8})$`,
)

var (
	ErrInvalidTicker   = errors.New("ticker: invalid format")
	ErrInvalidCategory = errors.New("ticker: unsupported category")
)

// Ticker is a parsed market ticker.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Category  string    `json:"category"`
	Slug      string    `json:"slug"`
	CloseTime time.Time `json:"close_time"`
}

// Parse parses and validates a ticker string.
// Format: {CATEGORY}-{SLUG}-{YYYYMMDD}; trading closes at the start of the
// named day, UTC.
func Parse(symbol string) (*Ticker, error) {
	matches := tickerRegex.FindStringSubmatch(symbol)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected {CATEGORY}-{SLUG}-{YYYYMMDD})",
			ErrInvalidTicker, symbol)
	}

	category := matches[1]
	slug := matches[2]
	dateStr := matches[3]

	if !validCategories[category] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, category)
	}

	closeTime, err := time.Parse("20060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidTicker, dateStr)
	}

	return &Ticker{
		Symbol:    symbol,
		Category:  category,
		Slug:      slug,
		CloseTime: closeTime.UTC(),
	}, nil
}
