package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tckz/password-counter/internal/config"
	"github.com/tckz/password-counter/internal/counter"
	"github.com/tckz/password-counter/internal/log"
	"github.com/tckz/password-counter/internal/service"
	"go.uber.org/zap"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
	cfg     *config.Config
)

var (
	optCount = flag.Int64("count", -1, "new counter value, >= 0")
)

func init() {
	cfg = config.Load(counter.BackendDynamoDB)
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger = log.Must(log.NewSugar(log.WithLogLevel(cfg.LogLevel), log.WithApp(myName)))
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)

	if *optCount < 0 {
		logger.Fatalf("*** --count must be specified and >= 0.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := counter.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatalf("*** counter.Open: %v", err)
	}
	defer store.Close()

	// go through the service so the write is validated and stamped the same way
	svc := service.New(store, service.WithLogger(logger))
	n, err := svc.UpdateCounter(ctx, fmt.Sprintf(`{"count":%d}`, *optCount))
	if err != nil {
		logger.Errorf("UpdateCounter: %v", err)
		return
	}
	logger.Infof("count=%d", n)
}
