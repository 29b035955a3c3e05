package donchian

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIBKRFixed_Commission(t *testing.T) {
	tests := []struct {
		name     string
		schedule IBKRFixed
		value    string
		want     string
	}{
		{"netherlands minimum", NewIBKRNetherlands(), "1000", "1.70"},
		{"netherlands rate", NewIBKRNetherlands(), "10000", "5"},
		{"netherlands cap", NewIBKRNetherlands(), "100000", "39"},
		{"zero value", NewIBKRNetherlands(), "0", "0"},
		{"forex minimum", NewIBKRForexTier1(), "10000", "2"},
		{"forex uncapped", NewIBKRForexTier1(), "10000000", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.schedule.Commission(decimal.RequireFromString(tt.value))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Commission(%s) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}
