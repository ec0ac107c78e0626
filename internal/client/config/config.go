// Package config handles configuration for the CLI client, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the FileKeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the server's TCP endpoint.
//   - DownloadDir: local directory where downloaded files are assembled.
//   - RequestTimeout: how long to wait for a direct response.
//   - UploadChunkSize: bytes per upload chunk before encoding.
type Config struct {
	ServerEndpointAddr string
	DownloadDir        string
	RequestTimeout     time.Duration
	UploadChunkSize    int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:7777"
	c.DownloadDir = "downloads"
	c.RequestTimeout = 5 * time.Second
	c.UploadChunkSize = 4096
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
