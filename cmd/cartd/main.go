package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ahinestrog/gomarketplace/internal/cart"
	"github.com/ahinestrog/gomarketplace/internal/config"
	"github.com/ahinestrog/gomarketplace/internal/events"
	"github.com/ahinestrog/gomarketplace/internal/httpapi"
	"github.com/ahinestrog/gomarketplace/internal/kv"
)

const shutdownGrace = 5 * time.Second

func main() {
	// Logger
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	if cfg.ServiceEnv != "dev" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("db", cfg.DBPath).
		Str("rabbit", cfg.Redacted().RabbitURL).
		Msg("starting cart service")

	// Señales para apagado limpio
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	db, err := kv.OpenSQLite(ctx, cfg.DBPath)
	must(err)
	defer db.Close()
	backend, err := kv.NewCached(db, cfg.CacheSize)
	must(err)

	// Rabbit
	var notifier cart.Notifier = events.Nop{}
	pub, err := events.NewPublisher(cfg.RabbitURL, cfg.Exchange, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ not available, continuing without events")
	} else {
		defer pub.Close()
		notifier = pub
	}

	store, err := cart.New(backend,
		cart.WithKey(cfg.StorageKey),
		cart.WithLogger(log.With().Str("component", "cart").Logger()),
		cart.WithNotifier(notifier),
	)
	must(err)
	// Load failures are logged by the store, which starts empty.
	_ = store.Load(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(store, log.Logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	must(err)
	log.Info().Str("addr", ln.Addr().String()).Msg("HTTP listening")
	// The deferred store and publisher closes run only after serve has
	// drained in-flight requests.
	must(serve(ctx, srv, ln))
}

// serve runs srv on ln until ctx is done, then shuts it down. It returns
// only after Shutdown has finished, so callers can release what the
// handlers use.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Warn().Msg("shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	<-serveErr
	return nil
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
