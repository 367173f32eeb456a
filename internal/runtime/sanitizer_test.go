package runtime_test

import (
	"strings"
	"testing"

	"github.com/aretw0/panel/internal/runtime"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeQuestion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "pick a pet", "pick a pet", nil},
		{"trims", "  pick a pet \n", "pick a pet", nil},
		{"keeps newlines and tabs", "line1\n\tline2", "line1\n\tline2", nil},
		{"strips ansi", "\x1b[31mred\x1b[0m", "[31mred[0m", nil},
		{"strips nul and bell", "a\x00b\x07c", "abc", nil},
		{"empty", "", "", domain.ErrEmptyQuestion},
		{"blank", " \t\n ", "", domain.ErrEmptyQuestion},
		{"only controls", "\x00\x07", "", domain.ErrEmptyQuestion},
		{"invalid utf8", "bad \xff", "", domain.ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runtime.SanitizeQuestion(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeQuestion_SizeLimit(t *testing.T) {
	t.Setenv(runtime.EnvMaxInputSize, "10")

	_, err := runtime.SanitizeQuestion(strings.Repeat("x", 11))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)

	got, err := runtime.SanitizeQuestion(strings.Repeat("x", 10))
	require.NoError(t, err)
	assert.Len(t, got, 10)
}
