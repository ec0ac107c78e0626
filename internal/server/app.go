// Package server initializes and runs the main application server.
// It wires the ledger, the storage backend, the transfer scheduler and the
// TCP endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkowalczyk/filekeeper/internal/chunkcodec"
	"github.com/pkowalczyk/filekeeper/internal/logging"
	"github.com/pkowalczyk/filekeeper/internal/server/auth"
	"github.com/pkowalczyk/filekeeper/internal/server/authz"
	"github.com/pkowalczyk/filekeeper/internal/server/config"
	"github.com/pkowalczyk/filekeeper/internal/server/dispatch"
	"github.com/pkowalczyk/filekeeper/internal/server/storage"
	"github.com/pkowalczyk/filekeeper/internal/server/tcp"
	"github.com/pkowalczyk/filekeeper/internal/server/transfer"
	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	users      users.Store
	files      storage.FileStore
	transfers  *transfer.Registry
	dispatcher *dispatch.Dispatcher
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	ledger, err := users.NewLedger(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("ledger init error: %w", err)
	}

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	codec := chunkcodec.Base64{}
	registry := transfer.NewRegistry(files, codec, cfg.ChunkSize, logger)

	dispatcher := dispatch.New(dispatch.Options{
		Users:         ledger,
		Files:         files,
		Transfers:     registry,
		Strategy:      auth.NewLedgerStrategy(ledger),
		Authorizer:    authz.Authorizer{Superuser: cfg.Superuser},
		Codec:         codec,
		Logger:        logger,
		TokenSecret:   cfg.SecretKey,
		TokenValidity: cfg.AccessTokenValidityDuration,
	})

	app := &App{
		config:     cfg,
		logger:     logger,
		users:      ledger,
		files:      files,
		transfers:  registry,
		dispatcher: dispatcher,
	}

	if err := app.bootstrapSuperuser(ctx); err != nil {
		return nil, fmt.Errorf("superuser bootstrap error: %w", err)
	}

	return app, nil
}

func newFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	switch cfg.StorageBackend {
	case "local", "":
		return storage.NewLocal(cfg.DataRoot)
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.StorageBackend)
	}
}

// bootstrapSuperuser makes sure the administrative account exists so a
// fresh install is usable. An existing record is left untouched.
func (app *App) bootstrapSuperuser(ctx context.Context) error {
	line, err := app.users.GetLine(ctx, app.config.Superuser)
	if err != nil {
		return err
	}
	if line != "" {
		return nil
	}

	secret, err := auth.HashSecret(app.config.SuperuserPassword)
	if err != nil {
		return err
	}
	err = app.users.Create(ctx, &users.User{
		Username: app.config.Superuser,
		Secret:   secret,
	})
	if err != nil {
		return err
	}

	if err := app.files.CreateDirectory(ctx, "", app.config.Superuser); err != nil {
		app.logger.Warn(ctx, "superuser sandbox provisioning failed", "error", err)
	} else {
		for _, category := range []string{"public", "private"} {
			if err := app.files.CreateDirectory(ctx, app.config.Superuser, category); err != nil {
				app.logger.Warn(ctx, "superuser sandbox provisioning failed", "error", err)
			}
		}
	}

	app.logger.Info(ctx, "superuser account created", "username", app.config.Superuser)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startTCPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := tcp.NewServer(app.config.EndpointAddr, app.dispatcher, app.transfers, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.transfers.Run(ctx, app.config.SchedulerInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startTCPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
