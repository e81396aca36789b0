package config

import "time"

// Config holds runtime settings for the gophchat CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - RequestTimeout: deadline applied to every unary call.
//   - PlaintextLogin: send the password unencrypted (only if the server
//     allows it); meant for debugging against a local server.
//   - MaxMessageSize: largest gRPC message sent or received, in bytes.
//     It must hold a full list page including attachments.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	PlaintextLogin     bool
	MaxMessageSize     int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.PlaintextLogin = false
	c.MaxMessageSize = 256 << 20
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
