// Command waymap probes web targets for SQL and OS command injection by
// sending sampled payloads and matching error signatures in the responses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/waymap/waymap/pkg/cli"
	"github.com/waymap/waymap/pkg/config"
	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/duration"
	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/httpclient"
	"github.com/waymap/waymap/pkg/interactive"
	"github.com/waymap/waymap/pkg/metrics"
	"github.com/waymap/waymap/pkg/payloads"
	"github.com/waymap/waymap/pkg/probe"
	"github.com/waymap/waymap/pkg/report"
	"github.com/waymap/waymap/pkg/scan"
	"github.com/waymap/waymap/pkg/signatures"
	"github.com/waymap/waymap/pkg/tracing"
	"github.com/waymap/waymap/pkg/ui"
)

func main() {
	ctx, cancel := cli.SignalContext(context.Background(), duration.ShutdownGrace, os.Stderr)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one scan and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, os.LookupEnv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return defaults.ExitSuccess
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		ui.FprintError(stderr, err.Error())
		return defaults.ExitUserError
	}

	ui.SetSilent(cfg.Silent)
	if f, ok := stdout.(*os.File); cfg.NoColor || !ok || !ui.IsTerminal(f) {
		ui.SetNoColor(true)
	}
	logger := newLogger(stderr, cfg)

	ui.PrintBanner(stdout)

	sc, err := newScanner(ctx, cfg, stdin, stdout, logger)
	if err != nil {
		ui.FprintError(stderr, err.Error())
		return cli.ExitCode(scan.Summary{}, err)
	}
	defer sc.close(logger)

	// The console reporter already explains interrupts and declines.
	sum, runErr := sc.run(ctx, cfg.MetricsAddr, logger)
	if runErr != nil && !errors.Is(runErr, finding.ErrInterrupted) && !errors.Is(runErr, finding.ErrUserAbort) {
		ui.FprintError(stderr, runErr.Error())
	}
	return cli.ExitCode(sum, runErr)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case cfg.Verbose:
		level = slog.LevelDebug
	case cfg.Silent:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// scanner holds everything one run owns and must release.
type scanner struct {
	targets    []string
	session    *scan.Session
	dispatcher *probe.Dispatcher
	recorder   *metrics.Recorder
	tracer     *tracing.Provider
	jsonl      *report.JSONL
	template   *report.Template
	client     *http.Client
}

func newScanner(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (_ *scanner, err error) {
	sc := &scanner{}
	defer func() {
		if err != nil {
			sc.close(logger)
		}
	}()

	store, err := loadSignatures(cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	userAgents, err := loadUserAgents(cfg)
	if err != nil {
		return nil, err
	}
	if sc.targets, err = cfg.LoadTargets(); err != nil {
		return nil, err
	}
	logger.Debug("definitions loaded",
		slog.String("kind", cfg.Kind),
		slog.Int("signatures", store.Len()),
		slog.Int("payloads", len(catalog)),
		slog.Int("user_agents", len(userAgents)),
		slog.Int("targets", len(sc.targets)))

	hc := httpclient.DefaultConfig()
	hc.Timeout = cfg.Timeout
	hc.Proxy = cfg.Proxy
	hc.InsecureSkipVerify = cfg.Insecure
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	sc.client = client

	if sc.recorder, err = metrics.New(); err != nil {
		return nil, err
	}
	if sc.tracer, err = tracing.Setup(ctx, tracing.Options{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
	}); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(math.Max(1, math.Ceil(cfg.RateLimit))))
	}

	sampler := payloads.NewEntropySampler()
	var uaRand *rand.Rand
	if cfg.Seed != 0 {
		sampler = payloads.NewSeededSampler(cfg.Seed)
		uaRand = rand.New(rand.NewPCG(cfg.Seed, ^cfg.Seed))
	}

	if sc.dispatcher, err = probe.New(probe.Config{
		Client:      client,
		Matcher:     store,
		UserAgents:  userAgents,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		Rand:        uaRand,
		Limiter:     limiter,
		Logger:      logger,
		Metrics:     sc.recorder,
		Tracer:      sc.tracer.Tracer(),
	}); err != nil {
		return nil, err
	}

	reporters := []scan.Reporter{ui.NewConsole(stdout, cfg.Kind)}
	if cfg.OutputFile != "" {
		if sc.jsonl, err = report.CreateJSONL(cfg.OutputFile); err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
		}
		reporters = append(reporters, sc.jsonl)
	}
	if cfg.ReportTemplate != "" {
		if sc.template, err = report.NewTemplate(stdout, cfg.ReportTemplate); err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
		}
		reporters = append(reporters, sc.template)
	}

	var prompter scan.Prompter = interactive.NewLinePrompter(stdin, stdout)
	if cfg.Batch != "" {
		fixed, err := interactive.ParseBatch(cfg.Batch, stdout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
		}
		prompter = fixed
	}

	severity := finding.High
	if cfg.Kind == defaults.KindCMDI {
		severity = finding.Critical
	}

	sc.session, err = scan.NewSession(scan.Config{
		Prober:     sc.dispatcher,
		Sampler:    sampler,
		Catalog:    catalog,
		SampleSize: cfg.SampleSize,
		Prompter:   prompter,
		Reporter:   scan.Reporters(reporters...),
		Severity:   severity,
		Logger:     logger,
		Metrics:    sc.recorder,
		Tracer:     sc.tracer.Tracer(),
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// run scans every target while the metrics server, if any, runs alongside.
// A metrics server failure is logged and does not stop the scan.
func (sc *scanner) run(ctx context.Context, metricsAddr string, logger *slog.Logger) (scan.Summary, error) {
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()

	var g errgroup.Group
	if metricsAddr != "" {
		g.Go(func() error {
			return sc.recorder.Serve(serveCtx, metricsAddr, logger)
		})
	}

	var (
		sum    scan.Summary
		runErr error
	)
	g.Go(func() error {
		defer stopServe()
		sum, runErr = sc.session.Run(ctx, sc.targets)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
	return sum, runErr
}

func (sc *scanner) close(logger *slog.Logger) {
	if sc.dispatcher != nil {
		sc.dispatcher.Close()
	}
	if sc.client != nil {
		httpclient.Close(sc.client)
	}
	if sc.jsonl != nil {
		if err := sc.jsonl.Close(); err != nil {
			ui.PrintError(err.Error())
		}
	}
	if sc.template != nil {
		if err := sc.template.Close(); err != nil {
			ui.PrintError(err.Error())
		}
	}
	if sc.tracer != nil {
		if err := sc.tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("trace export incomplete", slog.Any("error", err))
		}
	}
}

func loadSignatures(cfg *config.Config) (*signatures.Store, error) {
	if cfg.SignatureFile != "" {
		return signatures.LoadFile(cfg.SignatureFile)
	}
	return signatures.Default(cfg.Kind)
}

func loadCatalog(cfg *config.Config) ([]string, error) {
	if cfg.PayloadFile != "" {
		return payloads.LoadCatalog(cfg.PayloadFile)
	}
	return payloads.DefaultCatalog(cfg.Kind)
}

func loadUserAgents(cfg *config.Config) ([]string, error) {
	if cfg.UAFile != "" {
		return httpclient.LoadUserAgents(cfg.UAFile)
	}
	return httpclient.DefaultUserAgents(), nil
}
