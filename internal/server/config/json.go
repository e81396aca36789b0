package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// use timex.Duration so both "24h" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC           string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                string         `json:"database_dsn"`
	SecretKey                  string         `json:"secret_key"`
	TokenTTL                   timex.Duration `json:"token_ttl"`
	AccessPassword             string         `json:"access_password"`
	HashCost                   int            `json:"hash_cost"`
	CompressionThreshold       int            `json:"compression_threshold"`
	CompressionLevel           int            `json:"compression_level"`
	MaxAttachmentSize          int64          `json:"max_attachment_size"`
	MaxMessageSize             int64          `json:"max_message_size"`
	StorageQuota               int64          `json:"storage_quota"`
	KeyBits                    int            `json:"key_bits"`
	AllowPlaintextLogin        bool           `json:"allow_plaintext_login"`
	MaxConcurrentVerifications int            `json:"max_concurrent_verifications"`
	S3RootUser                 string         `json:"s3_root_user"`
	S3RootPassword             string         `json:"s3_root_password"`
	S3Bucket                   string         `json:"s3_bucket"`
	S3Region                   string         `json:"s3_region"`
	S3BaseEndpoint             string         `json:"s3_base_endpoint"`
	BackupInterval             timex.Duration `json:"backup_interval"`
	LogLevel                   string         `json:"log_level"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:           c.EndpointAddrGRPC,
		DatabaseDSN:                c.DatabaseDSN,
		SecretKey:                  c.SecretKey,
		TokenTTL:                   timex.Duration{Duration: c.TokenTTL},
		AccessPassword:             c.AccessPassword,
		HashCost:                   c.HashCost,
		CompressionThreshold:       c.CompressionThreshold,
		CompressionLevel:           c.CompressionLevel,
		MaxAttachmentSize:          c.MaxAttachmentSize,
		MaxMessageSize:             c.MaxMessageSize,
		StorageQuota:               c.StorageQuota,
		KeyBits:                    c.KeyBits,
		AllowPlaintextLogin:        c.AllowPlaintextLogin,
		MaxConcurrentVerifications: c.MaxConcurrentVerifications,
		S3RootUser:                 c.S3RootUser,
		S3RootPassword:             c.S3RootPassword,
		S3Bucket:                   c.S3Bucket,
		S3Region:                   c.S3Region,
		S3BaseEndpoint:             c.S3BaseEndpoint,
		BackupInterval:             timex.Duration{Duration: c.BackupInterval},
		LogLevel:                   c.LogLevel,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.TokenTTL = j.TokenTTL.Duration
	c.AccessPassword = j.AccessPassword
	c.HashCost = j.HashCost
	c.CompressionThreshold = j.CompressionThreshold
	c.CompressionLevel = j.CompressionLevel
	c.MaxAttachmentSize = j.MaxAttachmentSize
	c.MaxMessageSize = j.MaxMessageSize
	c.StorageQuota = j.StorageQuota
	c.KeyBits = j.KeyBits
	c.AllowPlaintextLogin = j.AllowPlaintextLogin
	c.MaxConcurrentVerifications = j.MaxConcurrentVerifications
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.BackupInterval = j.BackupInterval.Duration
	c.LogLevel = j.LogLevel
}

// parseJson overlays values from the file named by -c/-config onto config.
// Keys missing from the file keep their current values. An unreadable file
// or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}
