package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   token HMAC secret key
//	-t int      token validity, minutes
//	-w string   stored access password (bcrypt, argon2id or plaintext)
//	-l bool     allow plaintext login (use -l=false to disable)
//	-k int      credential key size, bits
//	-q int      storage quota, bytes
//	-m int      max gRPC message size, bytes (0 derives it from the attachment limit)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-i int      backup interval, minutes (0 disables backups)
//	-v string   log level
//
// Flags not listed here are ignored so that -c/-config can share the
// command line.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Minutes()), "token validity (in minutes)")

	fs.StringVar(&config.AccessPassword, "w", config.AccessPassword, "stored access password")
	fs.BoolVar(&config.AllowPlaintextLogin, "l", config.AllowPlaintextLogin, "allow plaintext login")
	fs.IntVar(&config.KeyBits, "k", config.KeyBits, "credential key size (in bits)")
	fs.Int64Var(&config.StorageQuota, "q", config.StorageQuota, "storage quota (in bytes)")
	fs.Int64Var(&config.MaxMessageSize, "m", config.MaxMessageSize, "max gRPC message size (in bytes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 backup bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	backupInterval := fs.Int("i", int(config.BackupInterval.Minutes()), "backup interval (in minutes)")

	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Minute
	config.BackupInterval = time.Duration(*backupInterval) * time.Minute
}
