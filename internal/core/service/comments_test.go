package service

import (
	"strings"
	"testing"
)

func TestComposeEnglishAndGerman(t *testing.T) {
	c := NewCommentComposer()
	vars := map[string]string{"tid": "T1"}

	en := c.Compose("en", "capture", vars)
	if !strings.Contains(en, "T1") || !strings.Contains(en, "captured") {
		t.Errorf("unexpected english capture comment: %q", en)
	}

	de := c.Compose("de", "capture", vars)
	if !strings.Contains(de, "T1") || !strings.Contains(de, "eingezogen") {
		t.Errorf("unexpected german capture comment: %q", de)
	}

	if en == de {
		t.Error("locales should produce different text")
	}
}

func TestComposeLocaleFallback(t *testing.T) {
	c := NewCommentComposer()
	vars := map[string]string{"tid": "T1"}

	en := c.Compose("en", "cancel", vars)
	for _, locale := range []string{"", "fr", "pt-BR", "EN", "en-US"} {
		got := c.Compose(locale, "cancel", vars)
		if locale == "fr" || locale == "pt-BR" || locale == "" {
			if got != en {
				t.Errorf("locale %q should fall back to english, got %q", locale, got)
			}
		}
	}

	// Region variants of a supported locale resolve to it.
	if got := c.Compose("de-DE", "cancel", vars); got != c.Compose("de", "cancel", vars) {
		t.Errorf("de-DE did not resolve to de: %q", got)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := NewCommentComposer()
	vars := map[string]string{"tid": "T9", "amount": "10.99 EUR", "refund_tid": "T10"}
	first := c.Compose("en", "refund_new_tid", vars)
	for i := 0; i < 5; i++ {
		if got := c.Compose("en", "refund_new_tid", vars); got != first {
			t.Fatalf("composition not deterministic: %q vs %q", got, first)
		}
	}
	if !strings.Contains(first, "T10") {
		t.Errorf("refund comment missing new tid: %q", first)
	}
}

func TestComposeSubstitutesAllPlaceholders(t *testing.T) {
	c := NewCommentComposer()
	got := c.Compose("en", "update_schedule", map[string]string{
		"tid":      "T1",
		"amount":   "20.00 EUR",
		"due_date": "2026-10-01",
	})
	if strings.Contains(got, "{") {
		t.Errorf("unsubstituted placeholder remains: %q", got)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{1099, "EUR", "10.99 EUR"},
		{100, "USD", "1.00 USD"},
		{5, "EUR", "0.05 EUR"},
		{0, "", "0.00"},
		{-250, "EUR", "-2.50 EUR"},
	}
	for _, tc := range cases {
		if got := formatAmount(tc.minor, tc.currency); got != tc.want {
			t.Errorf("formatAmount(%d, %q) = %q, want %q", tc.minor, tc.currency, got, tc.want)
		}
	}
}
