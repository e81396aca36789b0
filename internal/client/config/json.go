package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// accept "10s" or integer nanoseconds via timex.Duration.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	PlaintextLogin     bool           `json:"plaintext_login"`
	MaxMessageSize     int            `json:"max_message_size"`
}

// parseJson overlays Config with values loaded from the file named by
// -c/-config. Keys missing from the file keep their current values.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	jc := JsonConfig{
		ServerEndpointAddr: cfg.ServerEndpointAddr,
		RequestTimeout:     timex.Duration{Duration: cfg.RequestTimeout},
		PlaintextLogin:     cfg.PlaintextLogin,
		MaxMessageSize:     cfg.MaxMessageSize,
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.PlaintextLogin = jc.PlaintextLogin
	cfg.MaxMessageSize = jc.MaxMessageSize
}
