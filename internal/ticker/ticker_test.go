package ticker

import (
	"testing"
	"time"
)

func TestParse_Valid(t *testing.T) {
	tk, err := Parse("SPORTS-LAKERS-WIN-FINALS-20250815")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Category != CategorySports {
		t.Errorf("expected category=SPORTS, got %s", tk.Category)
	}
	if tk.Slug != "LAKERS-WIN-FINALS" {
		t.Errorf("expected slug=LAKERS-WIN-FINALS, got %s", tk.Slug)
	}
	expected := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	if !tk.CloseTime.Equal(expected) {
		t.Errorf("expected close=%v, got %v", expected, tk.CloseTime)
	}
}

func TestParse_SingleSegmentSlug(t *testing.T) {
	tk, err := Parse("CRYPTO-BTC100K-20251231")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Slug != "BTC100K" {
		t.Errorf("expected slug=BTC100K, got %s", tk.Slug)
	}
}

func TestParse_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"INVALID",
		"SPORTS-LAKERS",
		"SPORTS-LAKERS-notadate",
		"sports-lakers-20250815", // lowercase
		"SPORTS--20250815",       // empty slug
	}
	for _, symbol := range tests {
		if _, err := Parse(symbol); err == nil {
			t.Errorf("expected error for ticker %q", symbol)
		}
	}
}

func TestParse_InvalidCategory(t *testing.T) {
	_, err := Parse("GAMING-DOTA-FINAL-20250815")
	if err == nil {
		t.Error("expected error for unsupported category")
	}
}

func TestParse_AllCategories(t *testing.T) {
	categories := []string{"SPORTS", "POLITICS", "CRYPTO", "WEATHER"}
	for _, cat := range categories {
		symbol := cat + "-SOME-EVENT-20250815"
		tk, err := Parse(symbol)
		if err != nil {
			t.Errorf("unexpected error for category %s: %v", cat, err)
			continue
		}
		if tk.Category != cat {
			t.Errorf("expected category=%s, got %s", cat, tk.Category)
		}
	}
}
