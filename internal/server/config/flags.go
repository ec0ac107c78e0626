package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkowalczyk/filekeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":7777")
//	-l string   user ledger file path
//	-d string   data root directory (local backend)
//	-m string   storage backend: "local" or "s3"
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-k int      download chunk size, bytes
//	-i int      scheduler interval, milliseconds
//	-r string   superuser account name
//	-w string   superuser bootstrap password
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to time.Duration
//     values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-l", "-d", "-m", "-s", "-t", "-k", "-i", "-r", "-w", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.LedgerPath, "l", config.LedgerPath, "user ledger file")
	fs.StringVar(&config.DataRoot, "d", config.DataRoot, "data root directory")
	fs.StringVar(&config.StorageBackend, "m", config.StorageBackend, "storage backend (local or s3)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	fs.IntVar(&config.ChunkSize, "k", config.ChunkSize, "download chunk size (bytes)")
	schedulerInterval := fs.Int("i", int(config.SchedulerInterval.Milliseconds()), "scheduler interval (in milliseconds)")

	fs.StringVar(&config.Superuser, "r", config.Superuser, "superuser account name")
	fs.StringVar(&config.SuperuserPassword, "w", config.SuperuserPassword, "superuser bootstrap password")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	err := fs.Parse(args)
	if err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.SchedulerInterval = time.Duration(*schedulerInterval) * time.Millisecond
}
