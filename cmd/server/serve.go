package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/karafriends/backend/internal/acquisition"
	"github.com/karafriends/backend/internal/broker"
	"github.com/karafriends/backend/internal/catalog"
	"github.com/karafriends/backend/internal/config"
	"github.com/karafriends/backend/internal/logging"
	"github.com/karafriends/backend/internal/media"
	"github.com/karafriends/backend/internal/router"
	"github.com/karafriends/backend/internal/sentry"
	"github.com/karafriends/backend/internal/services"
	"github.com/karafriends/backend/internal/session"
	"github.com/karafriends/backend/internal/storage"
)

const shutdownTimeout = 10 * time.Second

type ServeParams struct {
	Port     string `short:"p" optional:"true" help:"Port to listen on. Overrides PORT."`
	Snapshot string `optional:"true" help:"Snapshot URL (file path, sqlite:// or postgres://). Overrides SNAPSHOT_URL."`
}

func ServeCmd() *cobra.Command {
	return boa.CmdT[ServeParams]{
		Use:         "serve",
		Short:       "Run the queue server",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *ServeParams, cmd *cobra.Command, args []string) {
			logging.Initialize()
			if err := runServe(cmd.Context(), params); err != nil {
				slog.Error("server failed", slog.Any("error", logging.WrapError(err, "serve")))
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runServe(ctx context.Context, params *ServeParams) error {
	cfg := config.Load()
	if params.Port != "" {
		cfg.Port = params.Port
	}
	if params.Snapshot != "" {
		cfg.SnapshotURL = params.Snapshot
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	enabled, err := sentry.Init(cfg.SentryDSN, cfg.SentryEnvironment, appVersion())
	if err != nil {
		slog.Warn("sentry disabled", slog.String("error", err.Error()))
	}
	if enabled {
		defer sentry.Flush()
	}

	accessList := config.NewAccessList(cfg)
	if cfg.AccessListPath != "" {
		if err := accessList.LoadFile(cfg.AccessListPath); err != nil {
			return err
		}
		go func() {
			if err := accessList.Watch(ctx, cfg.AccessListPath); err != nil {
				slog.Warn("access list watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	backend, err := storage.Open(ctx, cfg.SnapshotURL)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer backend.Close()

	bus := broker.New()
	store, err := session.Open(ctx, accessList, bus, backend)
	if err != nil {
		return err
	}

	library := media.NewLibrary(cfg.MediaDir(), cfg.YtdlpProxy)
	dam := catalog.NewDamClient(cfg.DamAPIURL)
	joysound := catalog.NewJoysoundClient(cfg.JoysoundAPIURL)

	pipeline := acquisition.NewPipeline(store, dam, joysound, library, sentry.NewReporter(), acquisition.Options{
		UseLowBitrateURL: cfg.UseLowBitrateURL,
	})
	defer pipeline.Close()

	identity := services.NewIdentityService(cfg.JWTSecret, cfg.IdentityTokenDuration, services.NewNicknameGenerator())

	handler := router.New(cfg, router.Dependencies{
		Store:    store,
		Broker:   bus,
		Acquirer: pipeline,
		Identity: identity,
		Limits:   accessList,
		YouTube:  catalog.NewYouTubeClient(cfg.YouTubeAPIKey),
		Nico:     catalog.NewNicoClient(cfg.YtdlpProxy),
		Dam:      dam,
		Joysound: joysound,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.String("snapshot", cfg.SnapshotURL),
			slog.String("media_dir", library.Dir()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
