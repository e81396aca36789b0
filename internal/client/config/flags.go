package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server
//	-t int      request timeout in seconds
//	-p bool     plaintext login (use -p=true)
//	-m int      max gRPC message size, bytes
//
// Unknown args are dropped by flagx.ParseKnown so -c/-config pass through.
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.BoolVar(&cfg.PlaintextLogin, "p", cfg.PlaintextLogin, "send password without encryption")
	fs.IntVar(&cfg.MaxMessageSize, "m", cfg.MaxMessageSize, "max gRPC message size (in bytes)")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
