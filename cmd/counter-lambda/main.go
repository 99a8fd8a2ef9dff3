package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/tckz/password-counter/internal/config"
	"github.com/tckz/password-counter/internal/counter"
	"github.com/tckz/password-counter/internal/lambdaapi"
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

func init() {
	cfg = config.Load(counter.BackendDynamoDB)
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger = log.Must(log.NewSugar(log.WithLogLevel(cfg.LogLevel), log.WithApp(myName)))
}

func main() {
	logger.Infof("ver=%s, backend=%s, table=%s", version, cfg.Store.Backend, cfg.Store.TableName)

	// The store outlives every invocation of this execution environment.
	store, err := counter.Open(context.Background(), cfg.Store, logger)
	if err != nil {
		logger.Fatalf("*** counter.Open: %v", err)
	}
	defer store.Close()

	svc := service.New(store, service.WithLogger(logger))
	lambda.Start(lambdaapi.NewHandler(svc, logger).Handle)
}
