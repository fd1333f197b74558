package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/pkg/validation"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
store:
  driver: sqlite
  dsn: models.db
  ttl: 1h
archive:
  codec: json
  compression: gzip
log:
  level: debug
`)
	t.Setenv("PORTGRAPH_CODEC", "yaml")
	t.Setenv("PORTGRAPH_LOG_JSON", "true")
	t.Setenv("PORTGRAPH_STORE_MAX_MEMORY_MB", "64")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "models.db", cfg.Store.DSN)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, int64(64), cfg.Store.MaxMemoryMB)
	assert.Equal(t, "yaml", cfg.Archive.Codec)
	assert.Equal(t, "gzip", cfg.Archive.Compression)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"unknown driver", map[string]string{"PORTGRAPH_STORE_DRIVER": "mongo"}, "Config.Store.Driver"},
		{"sqlite without dsn", map[string]string{"PORTGRAPH_STORE_DRIVER": "sqlite"}, "Config.Store.DSN"},
		{"redis without addr", map[string]string{"PORTGRAPH_STORE_DRIVER": "redis"}, "Config.Store.RedisAddr"},
		{"unknown codec", map[string]string{"PORTGRAPH_CODEC": "xml"}, "Config.Archive.Codec"},
		{"short key", map[string]string{"PORTGRAPH_ENCRYPT_KEY": "abcd"}, "Config.Archive.EncryptKey"},
		{"bad level", map[string]string{"PORTGRAPH_LOG_LEVEL": "loud"}, "Config.Log.Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			var errs validation.ValidationErrors
			require.ErrorAs(t, err, &errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedEnvIgnored(t *testing.T) {
	t.Setenv("PORTGRAPH_READ_TIMEOUT", "soon")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestEncryptionKey(t *testing.T) {
	cfg := Default()
	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	cfg.Archive.EncryptKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	key, err = cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, byte(0x1f), key[31])
}
