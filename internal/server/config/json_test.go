package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_grpc":           "www.example:9000",
		"database_dsn":                 "chat.db",
		"secret_key":                   "my_secret_key",
		"token_ttl":                    "12h",
		"access_password":              "$2b$10$xyz",
		"compression_threshold":        250,
		"max_attachment_size":          1024,
		"allow_plaintext_login":        false,
		"max_concurrent_verifications": 2,
		"s3_bucket":                    "bucket",
		"backup_interval":              int64(time.Hour),
	})

	t.Run("loads from json and keeps missing keys", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "chat.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
		assert.Equal(t, "$2b$10$xyz", cfg.AccessPassword)
		assert.Equal(t, 250, cfg.CompressionThreshold)
		assert.Equal(t, int64(1024), cfg.MaxAttachmentSize)
		assert.False(t, cfg.AllowPlaintextLogin)
		assert.Equal(t, 2, cfg.MaxConcurrentVerifications)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, time.Hour, cfg.BackupInterval)

		// untouched keys keep defaults
		assert.Equal(t, int64(512<<20), cfg.StorageQuota)
		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
	})

	t.Run("no config flag, no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrGRPC: "defaults:1234",
			TokenTTL:         2 * time.Minute,
			S3Bucket:         "s3bucket",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrGRPC)
		assert.Equal(t, 2*time.Minute, cfg.TokenTTL)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
