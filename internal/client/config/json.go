package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkowalczyk/filekeeper/internal/flagx"
	"github.com/pkowalczyk/filekeeper/internal/timex"
)

// JsonConfig is the JSON-file counterpart of Config. Interval fields use
// timex.Duration so both "5s"-style strings and integer nanoseconds parse.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DownloadDir        string         `json:"download_dir"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	UploadChunkSize    int            `json:"upload_chunk_size"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flags, if any. Invalid files cause a panic.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.ServerEndpointAddr = c.ServerEndpointAddr
	config.DownloadDir = c.DownloadDir
	config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
	config.UploadChunkSize = c.UploadChunkSize
}
