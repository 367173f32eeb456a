package settings_test

import (
	"testing"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Defaults(t *testing.T) {
	s, err := settings.New(domain.ModelConfig{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultModelConfig(), s.Current())

	_, err = settings.New(domain.ModelConfig{ModelName: "unknown", Temperature: 1})
	assert.ErrorIs(t, err, domain.ErrUnsupportedModel)
}

func TestStore_SetRejectsInvalid(t *testing.T) {
	s, err := settings.New(domain.ModelConfig{})
	require.NoError(t, err)

	require.NoError(t, s.Set(domain.ModelConfig{ModelName: "gpt-4o", Temperature: 1.2}))
	assert.Equal(t, "gpt-4o", s.Current().ModelName)

	assert.ErrorIs(t, s.Set(domain.ModelConfig{ModelName: "gpt-4o", Temperature: 3}), domain.ErrInvalidTemperature)
	assert.Equal(t, 1.2, s.Current().Temperature)
}

func TestStore_ExportImportRoundTrip(t *testing.T) {
	src, err := settings.New(domain.ModelConfig{ModelName: "gpt-4o", Temperature: 0.3})
	require.NoError(t, err)
	data, err := src.Export()
	require.NoError(t, err)
	assert.JSONEq(t, `{"model_name": "gpt-4o", "temperature": 0.3}`, string(data))

	dst, err := settings.New(domain.ModelConfig{})
	require.NoError(t, err)
	require.NoError(t, dst.Import(data))
	assert.Equal(t, src.Current(), dst.Current())
}

func TestStore_ImportRejectsAndKeepsPrevious(t *testing.T) {
	cases := map[string]string{
		"missing temperature": `{"model_name": "gpt-4o"}`,
		"missing model":       `{"temperature": 0.5}`,
		"string temperature":  `{"model_name": "gpt-4o", "temperature": "hot"}`,
		"null temperature":    `{"model_name": "gpt-4o", "temperature": null}`,
		"out of range":        `{"model_name": "gpt-4o", "temperature": 2.5}`,
		"unknown model":       `{"model_name": "davinci", "temperature": 0.5}`,
		"numeric model":       `{"model_name": 4, "temperature": 0.5}`,
		"not an object":       `[1, 2]`,
		"garbage":             `{{`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := settings.New(domain.ModelConfig{ModelName: "gpt-4o-mini", Temperature: 0.9})
			require.NoError(t, err)

			err = s.Import([]byte(doc))
			assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
			assert.Equal(t, domain.ModelConfig{ModelName: "gpt-4o-mini", Temperature: 0.9}, s.Current())
		})
	}
}
