package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, int32(400), c.BlockSize)
	assert.Equal(t, int32(8), c.BufferPoolSize)
	assert.Equal(t, "simpledb.log", c.LogFile)
	assert.Equal(t, 10*time.Second, c.MaxWait.Duration)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simpledb.toml")
	content := `
dir = "/tmp/studentdb"
buffer-pool-size = 16
max-wait = "250ms"
log-level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/studentdb", c.Dir)
	assert.Equal(t, int32(16), c.BufferPoolSize)
	assert.Equal(t, 250*time.Millisecond, c.MaxWait.Duration)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, DefaultBlockSize, c.BlockSize, "unset keys keep their defaults")
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"bad duration", `max-wait = "soon"`},
		{"tiny block", `block-size = 8`},
		{"empty pool", `buffer-pool-size = 0`},
		{"not toml", `dir = `},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "simpledb.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
