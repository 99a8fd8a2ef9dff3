package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tckz/password-counter/internal/log"
	vh "github.com/tckz/vegetahelper"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optRate = &vh.RateFlag{
		Rate: &vegeta.Rate{
			Freq: 30,
			Per:  1 * time.Second,
		}}
	optDuration = flag.Duration("duration", 10*time.Second, "Duration of the test [0 = forever]")
	optOutput   = flag.String("output", "", "/path/to/results.bin or 'stdout'")
	optWorkers  = flag.Uint64("workers", vegeta.DefaultWorkers, "Number of workers")
	optLogLevel = flag.String("log-level", "info", "info|warn|error")
	optTarget   = flag.String("target", "http://localhost:8080/", "URL of counter service")
	optPost     = flag.Bool("post", false, "POST random counts instead of GET")
	optMaxCount = flag.Int64("max-count", 1000000, "upper bound of random counts")
)

func init() {
	flag.Var(optRate, "rate", "Number of requests per time unit")
}

// resultSink returns where results are encoded and how to release it.
func resultSink(out string) (io.Writer, func() error, error) {
	if out == "stdout" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newRequest(ctx context.Context) (*http.Request, error) {
	if !*optPost {
		return http.NewRequestWithContext(ctx, http.MethodGet, *optTarget, nil)
	}
	body := fmt.Sprintf(`{"count":%d}`, rand.Int63n(*optMaxCount))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *optTarget, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// hit is one attack against the counter service; anything but 200 fails.
func hit(client *http.Client) func(ctx context.Context) (*vh.HitResult, error) {
	return func(ctx context.Context) (result *vh.HitResult, retErr error) {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status=%d", resp.StatusCode)
		}
		return result, nil
	}
}

type tally struct {
	total  uint64
	failed uint64
}

// drain encodes every result until res is closed.
func drain(res <-chan *vegeta.Result, enc vegeta.Encoder) (tally, error) {
	var t tally
	for r := range res {
		t.total++
		if r.Error != "" {
			t.failed++
		}
		if err := enc.Encode(r); err != nil {
			return t, fmt.Errorf("Encode: %w", err)
		}
	}
	return t, nil
}

func main() {
	flag.Parse()

	logger = log.Must(log.NewSugar(log.WithLogLevel(*optLogLevel), log.WithApp(myName)))
	logger.Infof("ver=%s, args=%s", version, os.Args)

	if *optOutput == "" {
		logger.Fatalf("*** --output must be specified.")
	}

	// the attacker stops on cancel and closes its result channel
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		logger.Fatalf("*** run: %v", err)
	}
}

func run(ctx context.Context) error {
	w, closeOut, err := resultSink(*optOutput)
	if err != nil {
		return fmt.Errorf("resultSink: %w", err)
	}
	defer closeOut()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	atk := vh.NewAttacker(hit(&http.Client{Timeout: 10 * time.Second}), vh.WithWorkers(*optWorkers))
	res := atk.Attack(ctx, *optRate.Rate, *optDuration, "counter")

	t, err := drain(res, vegeta.NewEncoder(w))
	if err != nil {
		cancel()
		// let the attacker wind down before the output is closed
		for range res {
		}
		return err
	}

	logger.Infof("requests=%s, failed=%s", humanize.Comma(int64(t.total)), humanize.Comma(int64(t.failed)))
	return nil
}
