package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/okian/containertiming/pkg/logger"
)

const outputFilePermission = 0600

// ErrVerification marks a run whose reports did not hold up.
var ErrVerification = errors.New("report verification failed")

// Run executes the complete load test and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting container timing load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("containers", cfg.Containers),
		logger.Int("children", cfg.Children),
		logger.Int("batches", cfg.Batches),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", cfg.Seed),
		logger.String("strategy", cfg.Strategy),
	)

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if status, err := client.Get(ctx, "/healthz", nil); err != nil || status != http.StatusOK {
		return stats, fmt.Errorf("service health check failed: %w", statusError(status, err))
	}

	gen := NewGenerator(cfg.Seed)
	layout := gen.Layout(cfg.Containers, cfg.Children)
	var domResp DOMResponse
	status, err := client.Post(ctx, "/v1/dom", map[string]any{"mutations": layout.Mutations()}, &domResp)
	if err != nil || status != http.StatusOK {
		return stats, fmt.Errorf("layout upload failed: %w", statusError(status, err))
	}
	stats.ElementsInserted = domResp.Applied
	stats.ElementsTagged = domResp.Internal + domResp.UserSupplied
	if len(domResp.Errors) > 0 {
		log.Warn(ctx, "layout partially applied", logger.Int("errors", len(domResp.Errors)))
	}

	batches := gen.Batches(layout, cfg.Batches)
	stats.BatchesGenerated = len(batches)
	delivered := submit(ctx, client, cfg.Workers, batches, stats)

	log.Info(ctx, "waiting for batches to be processed", logger.Duration("settle", cfg.Settle))
	select {
	case <-ctx.Done():
		return stats, ctx.Err()
	case <-time.After(cfg.Settle):
	}

	painted := Painted(layout, delivered)
	stats.ContainersPainted = len(painted)
	reports := make(map[string]ContainerReport, len(painted))
	for id := range painted {
		var r ContainerReport
		status, err := client.Get(ctx, "/v1/containers/"+url.PathEscape(id), &r)
		if err != nil {
			return stats, fmt.Errorf("fetch report %s: %w", id, err)
		}
		if status == http.StatusOK {
			reports[id] = r
		}
	}
	stats.ContainersReported = len(reports)

	if cfg.OutputFile != "" {
		if err := saveRun(cfg.OutputFile, layout, batches); err != nil {
			log.Warn(ctx, "failed to save generated run", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if verr := Verify(cfg.Strategy, painted, reports); verr != nil {
		violations := multierr.Errors(verr)
		stats.Violations = len(violations)
		for _, v := range violations {
			log.Error(ctx, "verification violation", logger.Error(v))
		}
		return stats, fmt.Errorf("%w: %d violations", ErrVerification, len(violations))
	}

	log.Info(ctx, "load test completed",
		logger.Int("accepted", stats.BatchesAccepted),
		logger.Int("duplicate", stats.BatchesDuplicate),
		logger.Int("rejected", stats.BatchesRejected),
		logger.Int("failed", stats.BatchesFailed),
		logger.Int("containersReported", stats.ContainersReported),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// submit posts batches with a pool of workers and returns the ones the
// service took. Across workers order is not guaranteed.
func submit(ctx context.Context, client *HTTPClient, workers int, batches []BatchRequest, stats *Stats) []BatchRequest {
	var (
		accepted, duplicate, rejected, failed atomic.Int64

		mu        sync.Mutex
		delivered []BatchRequest
	)

	ch := make(chan BatchRequest, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range ch {
				var ack AckResponse
				status, err := client.Post(ctx, "/v1/batches", b, &ack)
				switch {
				case err != nil:
					failed.Add(1)
				case status == http.StatusAccepted:
					accepted.Add(1)
					mu.Lock()
					delivered = append(delivered, b)
					mu.Unlock()
				case status == http.StatusOK && ack.Duplicate:
					duplicate.Add(1)
				case status == http.StatusTooManyRequests:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case ch <- b:
			}
		}
	}()
	wg.Wait()

	stats.BatchesAccepted = int(accepted.Load())
	stats.BatchesDuplicate = int(duplicate.Load())
	stats.BatchesRejected = int(rejected.Load())
	stats.BatchesFailed = int(failed.Load())
	return delivered
}

func statusError(status int, err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected status %d", status)
}

func saveRun(path string, layout Layout, batches []BatchRequest) error {
	data, err := json.MarshalIndent(map[string]any{"layout": layout, "batches": batches}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, outputFilePermission)
}
