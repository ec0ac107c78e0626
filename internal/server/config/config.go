// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the FileKeeper server.
//
// Fields:
//   - EndpointAddr: bind address for the TCP protocol endpoint.
//   - LedgerPath: path to the user ledger file.
//   - DataRoot: root directory for user sandboxes (local backend).
//   - StorageBackend: "local" or "s3".
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration: lifetime of minted session tokens.
//   - ChunkSize: bytes per download chunk before encoding.
//   - SchedulerInterval: pause between download scheduler rounds.
//   - Superuser / SuperuserPassword: the administrative account; the password
//     is only used to bootstrap the account when the ledger has no entry for it.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	EndpointAddr                string
	LedgerPath                  string
	DataRoot                    string
	StorageBackend              string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	ChunkSize                   int
	SchedulerInterval           time.Duration
	Superuser                   string
	SuperuserPassword           string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":7777"
	c.LedgerPath = "users.txt"
	c.DataRoot = "data"
	c.StorageBackend = "local"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.ChunkSize = 4096
	c.SchedulerInterval = 50 * time.Millisecond
	c.Superuser = "root"
	c.SuperuserPassword = "rootpassword"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "filekeeper"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
