package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.EndpointAddr, ":7777")
	assert.Equal(t, c.LedgerPath, "users.txt")
	assert.Equal(t, c.DataRoot, "data")
	assert.Equal(t, c.StorageBackend, "local")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.AccessTokenValidityDuration, 15*time.Minute)
	assert.Equal(t, c.ChunkSize, 4096)
	assert.Equal(t, c.SchedulerInterval, 50*time.Millisecond)
	assert.Equal(t, c.Superuser, "root")
	assert.Equal(t, c.SuperuserPassword, "rootpassword")
	assert.Equal(t, c.S3RootUser, "admin")
	assert.Equal(t, c.S3RootPassword, "secretpassword")
	assert.Equal(t, c.S3Bucket, "filekeeper")
	assert.Equal(t, c.S3Region, "us-east-1")
	assert.Equal(t, c.S3BaseEndpoint, "http://127.0.0.1:9000/")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.EndpointAddr, ":7777")
	assert.Equal(t, c.LedgerPath, "users.txt")
	assert.Equal(t, c.DataRoot, "data")
	assert.Equal(t, c.StorageBackend, "local")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.AccessTokenValidityDuration, 15*time.Minute)
	assert.Equal(t, c.ChunkSize, 4096)
	assert.Equal(t, c.SchedulerInterval, 50*time.Millisecond)
	assert.Equal(t, c.Superuser, "root")
}
