// Package cli implements the interactive FileKeeper client: a REPL that
// sends protocol commands and assembles pushed download chunks into local
// files.
package cli

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/pkowalczyk/filekeeper/internal/chunkcodec"
	"github.com/pkowalczyk/filekeeper/internal/client/client"
	"github.com/pkowalczyk/filekeeper/internal/client/config"
)

type App struct {
	config *config.Config
	client *client.Client
	codec  chunkcodec.Codec
	reader *bufio.Reader

	username string
	token    string

	dlMu      sync.Mutex
	downloads map[string]*os.File
}

func NewApp(c *config.Config) (*App, error) {

	app := &App{
		config:    c,
		codec:     chunkcodec.Base64{},
		reader:    bufio.NewReader(os.Stdin),
		downloads: make(map[string]*os.File),
	}

	cl, err := client.Dial(c.ServerEndpointAddr, c.RequestTimeout, app.onChunk)
	if err != nil {
		return nil, err
	}
	app.client = cl

	return app, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.client.Close()
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.username != ""
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.username
	}
	return "not logged in"
}
