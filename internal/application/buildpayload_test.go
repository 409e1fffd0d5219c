package application

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvList_StringAndArray(t *testing.T) {
	var single EnvList
	require.NoError(t, json.Unmarshal([]byte(`"PRODUCT=chrome:unstable"`), &single))
	assert.Equal(t, EnvList{"PRODUCT=chrome:unstable"}, single)

	var many EnvList
	require.NoError(t, json.Unmarshal([]byte(`["A=1", "PRODUCT=firefox:nightly"]`), &many))
	assert.Equal(t, EnvList{"A=1", "PRODUCT=firefox:nightly"}, many)

	var bad EnvList
	assert.Error(t, json.Unmarshal([]byte(`{"A": 1}`), &bad))
}

func TestMatrixPayload_ProductName(t *testing.T) {
	tests := []struct {
		name   string
		env    EnvList
		want   string
		wantOK bool
	}{
		{"simple", EnvList{"PRODUCT=chrome"}, "chrome", true},
		{"versioned", EnvList{"PRODUCT=chrome:unstable"}, "chrome:unstable", true},
		{"buried in list", EnvList{"A=1", "PRODUCT=sauce:safari", "B=2"}, "sauce:safari", true},
		{"embedded in entry", EnvList{"RUN=1 PRODUCT=firefox:nightly TERM=dumb"}, "firefox:nightly", true},
		{"no tag", EnvList{"LINT=1"}, "", false},
		{"empty env", EnvList{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatrixPayload{Config: &JobConfigPayload{Env: tt.env}}
			got, ok := m.ProductName()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nil config", func(t *testing.T) {
		m := MatrixPayload{}
		_, ok := m.ProductName()
		assert.False(t, ok)
	})
}
