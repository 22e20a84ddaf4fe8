package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhonesMatch(t *testing.T) {
	tests := []struct {
		name       string
		registered string
		declared   string
		want       bool
	}{
		{"country code on declared side", "9876543210", "+91 98765 43210", true},
		{"country code on registered side", "+91 98765 43210", "9876543210", true},
		{"identical", "9876543210", "9876543210", true},
		{"formatting noise", "(987) 654-3210", "987 654 3210", true},
		{"different numbers", "9876543210", "1234567890", false},
		{"shared prefix but different suffix", "9876543210", "9876543211", false},
		{"empty registered", "", "9876543210", false},
		{"empty declared", "9876543210", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhonesMatch(tt.registered, tt.declared))
		})
	}
}

func TestMaskedTail(t *testing.T) {
	assert.Equal(t, "XXXXXX3210", MaskedTail("+91 98765 43210"))
	assert.Equal(t, "XXXXXX321", MaskedTail("321"))
	assert.Equal(t, "XXXXXX", MaskedTail(""))
}
