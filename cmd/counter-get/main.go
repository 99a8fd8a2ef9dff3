package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tckz/password-counter/internal/config"
	"github.com/tckz/password-counter/internal/counter"
	"github.com/tckz/password-counter/internal/log"
	"go.uber.org/zap"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
	cfg     *config.Config
)

var (
	optID = flag.String("id", counter.RecordID, "record id")
)

func init() {
	cfg = config.Load(counter.BackendDynamoDB)
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger = log.Must(log.NewSugar(log.WithLogLevel(cfg.LogLevel), log.WithApp(myName)))
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := counter.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatalf("*** counter.Open: %v", err)
	}
	defer store.Close()

	rec, err := store.Get(ctx, *optID)
	if errors.Is(err, counter.ErrNotFound) {
		fmt.Fprintf(os.Stdout, "id=%s not found\n", *optID)
		return
	}
	if err != nil {
		logger.Errorf("Get: %v", err)
		return
	}

	fmt.Fprintf(os.Stdout, "%+v\n", *rec)
}
