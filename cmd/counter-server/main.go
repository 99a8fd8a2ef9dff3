package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tckz/password-counter/internal/config"
	"github.com/tckz/password-counter/internal/counter"
	"github.com/tckz/password-counter/internal/httpapi"
	"github.com/tckz/password-counter/internal/log"
	"github.com/tckz/password-counter/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
	cfg     *config.Config
)

var (
	optShutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
)

func init() {
	cfg = config.Load(counter.BackendMemory)
	cfg.RegisterFlags(flag.CommandLine)
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "listen address")
	flag.Parse()

	logger = log.Must(log.NewSugar(log.WithLogLevel(cfg.LogLevel), log.WithApp(myName)))
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)
	defer logger.Infof("done")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		logger.Fatalf("*** run: %v", err)
	}
}

func run(ctx context.Context) error {
	store, err := counter.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("counter.Open: %w", err)
	}
	defer store.Close()

	svc := service.New(store, service.WithLogger(logger))
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewHandler(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Infof("listen=%s, backend=%s, table=%s", cfg.ListenAddr, cfg.Store.Backend, cfg.Store.TableName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Infof("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), *optShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("Shutdown: %w", err)
		}
		return nil
	})

	return eg.Wait()
}
