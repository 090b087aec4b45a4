package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/git"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/notify"
	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

// runtime wires the optional ledger, metrics and notifier around one
// orchestrator. Runs are serialized.
type runtime struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     *prometheus.Registry
	store        eventstore.Store
	notifier     notify.Notifier
	orchestrator *pipeline.Orchestrator

	mu   sync.Mutex
	last *pipeline.Report
}

type runtimeOptions struct {
	syncSource bool // run the git sync stage before every build
	metrics    bool // always create a registry (for --metrics-addr)
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, ro runtimeOptions) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, notifier: notify.Noop{}}
	opts := []pipeline.Option{pipeline.WithLogger(logger)}

	if ro.metrics || cfg.Metrics.Textfile != "" {
		rt.registry = prometheus.NewRegistry()
		opts = append(opts, pipeline.WithRecorder(metrics.NewPrometheusRecorder(rt.registry)))
	}

	if cfg.State.LedgerPath != "" {
		store, err := eventstore.NewSQLiteStore(cfg.State.LedgerPath)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open build ledger").
				WithContext("path", cfg.State.LedgerPath).Build()
		}
		rt.store = store
		opts = append(opts, pipeline.WithStore(store))
	}

	if cfg.Notify.NATSURL != "" {
		n, err := notify.Connect(ctx, cfg.Notify.NATSURL, cfg.Notify.Subject, cfg.RetryPolicy(), logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.notifier = n
		opts = append(opts, pipeline.WithNotifier(n))
	}

	if ro.syncSource && cfg.Source.CloneURL != "" {
		client := git.NewClient(cfg.RetryPolicy(), logger)
		opts = append(opts, pipeline.WithSourceSync(func(ctx context.Context) (git.Result, error) {
			return client.Sync(ctx, syncOptions(cfg))
		}))
	}

	rt.orchestrator = pipeline.New(cfg, opts...)
	return rt, nil
}

func syncOptions(cfg *config.Config) git.Options {
	return git.Options{
		URL:    cfg.Source.CloneURL,
		Branch: cfg.Source.Branch,
		Dir:    cfg.Source.Root,
		Token:  cfg.Sync.Token,
		Depth:  cfg.Sync.Depth,
	}
}

// build runs the pipeline once and exports metrics.
func (rt *runtime) build(ctx context.Context, trigger string) (*pipeline.Report, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	report, err := rt.orchestrator.Run(ctx, trigger)
	rt.last = report
	if rt.registry != nil && rt.cfg.Metrics.Textfile != "" {
		if werr := metrics.WriteTextfile(rt.cfg.Metrics.Textfile, rt.registry); werr != nil {
			rt.logger.Warn("Failed to write metrics textfile", logfields.Path(rt.cfg.Metrics.Textfile), logfields.Error(werr))
		}
	}
	return report, err
}

func (rt *runtime) lastReport() *pipeline.Report {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.last
}

// Close releases the ledger and the notifier.
func (rt *runtime) Close() {
	if rt.notifier != nil {
		rt.notifier.Close()
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("Failed to close build ledger", logfields.Error(err))
		}
	}
}

// handler serves /metrics and /healthz. healthz reports the last run.
func (rt *runtime) handler() http.Handler {
	mux := http.NewServeMux()
	if rt.registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(rt.registry))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if r := rt.lastReport(); r != nil {
			notice := r.Notice()
			body["last_run"] = notice
			if r.Err != nil {
				body["status"] = "degraded"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

// serve starts the metrics server on addr until ctx is done. An empty addr
// is a no-op.
func (rt *runtime) serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to listen for metrics").
			WithContext("addr", addr).Build()
	}
	srv := &http.Server{Handler: rt.handler(), ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			rt.logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	rt.logger.Info("Serving metrics", slog.String("addr", ln.Addr().String()))
	return nil
}
