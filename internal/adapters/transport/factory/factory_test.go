package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/adapters/transport/memory"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "pgwire"},
		{"pgwire", "pgwire"},
		{"libpq", "libpq"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			tr, err := New(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.Name())
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestRegister(t *testing.T) {
	mem := memory.New()
	Register(memory.Name, func() transport.Transport { return mem })

	tr, err := New(memory.Name)
	require.NoError(t, err)
	assert.Same(t, mem, tr)
	assert.Equal(t, []string{"libpq", "memory", "pgwire"}, Names())
}
