package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkowalczyk/filekeeper/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   server endpoint address (e.g., "127.0.0.1:7777")
//	-o string   download directory
//	-t int      request timeout, seconds
//	-k int      upload chunk size, bytes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-o", "-t", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "server endpoint address")
	fs.StringVar(&config.DownloadDir, "o", config.DownloadDir, "download directory")
	requestTimeout := fs.Int("t", int(config.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&config.UploadChunkSize, "k", config.UploadChunkSize, "upload chunk size (bytes)")

	err := fs.Parse(args)
	if err != nil {
		panic(err)
	}

	config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
