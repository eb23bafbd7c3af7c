package domain_test

import (
	"strings"
	"testing"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePrompt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "I want to invent...", "I want to invent..."},
		{"trimmed", "  a kite  ", "a kite"},
		{"line breaks", "a\nb\r\nc\td", "a b  c d"},
		{"ansi escape", "red\x1b[31m text", "red[31m text"},
		{"null and bell", "a\x00b\x07c", "abc"},
		{"unicode", "sonho → acordado", "sonho → acordado"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.SanitizePrompt(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizePrompt_Rejects(t *testing.T) {
	_, err := domain.SanitizePrompt(" \n\t ")
	assert.ErrorIs(t, err, domain.ErrEmptyPrompt)

	_, err = domain.SanitizePrompt("bad \xff utf8")
	assert.ErrorIs(t, err, domain.ErrInvalidUTF8)

	_, err = domain.SanitizePrompt(strings.Repeat("a", domain.DefaultMaxInputSize+1))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
}

func TestSanitizePrompt_EnvLimit(t *testing.T) {
	t.Setenv(domain.EnvMaxInputSize, "5")

	_, err := domain.SanitizePrompt("123456")
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)

	got, err := domain.SanitizePrompt("12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", got)
}
