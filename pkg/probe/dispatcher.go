package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/duration"
	"github.com/waymap/waymap/pkg/fingerprint"
	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/httpclient"
	"github.com/waymap/waymap/pkg/iohelper"
	"github.com/waymap/waymap/pkg/metrics"
	"github.com/waymap/waymap/pkg/tracing"
	"github.com/waymap/waymap/pkg/workerpool"
)

// Config configures a Dispatcher.
type Config struct {
	// Client sends the probes (required).
	Client Doer

	// Matcher classifies response bodies (required).
	Matcher Matcher

	// UserAgents is drawn from uniformly per request. Empty sends
	// defaults.UAMinimal.
	UserAgents []string

	// Concurrency bounds in-flight requests (default: 5).
	Concurrency int

	// Timeout is the per-request deadline (default: 10s).
	Timeout time.Duration

	// Rand drives user-agent selection. Nil seeds from entropy.
	Rand *rand.Rand

	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter

	// MaxBodySize caps how much of each body is read (default: 1MB).
	MaxBodySize int64

	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Tracer  trace.Tracer
}

// Dispatcher runs probe batches on a shared bounded pool.
type Dispatcher struct {
	cfg    Config
	pool   *workerpool.Pool
	logger *slog.Logger
	tracer trace.Tracer

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New validates cfg and starts a Dispatcher. Call Close when done.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}
	if cfg.Matcher == nil {
		return nil, ErrNoMatcher
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.ProbeTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = []string{defaults.UAMinimal}
	}

	d := &Dispatcher{
		cfg:    cfg,
		pool:   workerpool.New(cfg.Concurrency),
		logger: cfg.Logger,
		tracer: cfg.Tracer,
		rng:    cfg.Rand,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.tracer == nil {
		d.tracer = tracing.Noop()
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	d.pool.OnPanic = func(r any) {
		d.logger.Error("probe panicked", slog.Any("panic", r))
	}
	return d, nil
}

// Concurrency returns the in-flight bound.
func (d *Dispatcher) Concurrency() int {
	return d.pool.Cap()
}

// Close waits for every in-flight probe, including abandoned ones, and
// releases the pool.
func (d *Dispatcher) Close() {
	d.pool.Close()
}

// ProbeAll probes url once per distinct payload and streams results in
// completion order. The channel closes after the last probe finishes.
// Cancelling ctx stops dispatching and aborts requests in flight.
func (d *Dispatcher) ProbeAll(ctx context.Context, url string, payloads []string) <-chan Result {
	payloads = dedupe(payloads)
	results := make(chan Result, len(payloads))

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(results)
		}()

		for _, payload := range payloads {
			if ctx.Err() != nil || Abandoned(ctx) {
				return
			}
			ua := d.pickUserAgent()

			wg.Add(1)
			err := d.pool.Submit(ctx, func() {
				defer wg.Done()
				results <- d.Probe(ctx, url, payload, ua)
			})
			if err != nil {
				wg.Done()
				d.logger.Debug("probe dispatch stopped",
					slog.String("url", url),
					slog.String("error", err.Error()))
				return
			}
		}
	}()

	return results
}

// pickUserAgent draws from the configured list. Only the producer
// goroutine calls it, so a seeded source yields a reproducible sequence.
func (d *Dispatcher) pickUserAgent() string {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.cfg.UserAgents[d.rng.IntN(len(d.cfg.UserAgents))]
}

// Probe sends one GET to url+payload and classifies the response.
func (d *Dispatcher) Probe(ctx context.Context, url, payload, userAgent string) Result {
	target := url + payload
	res := Result{URL: url, Payload: payload, Target: target, UserAgent: userAgent}

	ctx, span := d.tracer.Start(ctx, "probe", trace.WithAttributes(
		attribute.String("waymap.url", url),
		attribute.String("waymap.payload", payload),
		attribute.String("url.full", target),
	))
	defer span.End()

	if d.cfg.Limiter != nil {
		if err := d.cfg.Limiter.Wait(ctx); err != nil {
			return d.fail(span, res, httpclient.Classify(err), err)
		}
	}

	d.cfg.Metrics.ProbeStarted()
	start := time.Now()
	res = d.send(ctx, res)
	res.Duration = time.Since(start)

	if Abandoned(ctx) {
		d.cfg.Metrics.ProbeAbandoned()
		d.logger.Debug("abandoned probe finished",
			slog.String("target", res.Target),
			slog.String("outcome", res.Outcome()))
		return res
	}
	d.cfg.Metrics.ProbeFinished(res.Outcome(), res.Duration)

	if res.Failed() {
		d.logFailure(res)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "probe failed")
		return res
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", res.StatusCode),
		attribute.Bool("waymap.vulnerable", res.Vulnerable),
	)
	if res.Vulnerable {
		span.SetAttributes(attribute.String("waymap.backend", res.Backend))
	}
	return res
}

func (d *Dispatcher) send(ctx context.Context, res Result) Result {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requote(res.Target), nil)
	if err != nil {
		return d.failure(res, httpclient.KindRequest, err)
	}
	req.Header.Set("User-Agent", res.UserAgent)

	resp, err := d.cfg.Client.Do(req)
	if err != nil {
		return d.failure(res, httpclient.Classify(err), err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	body, truncated, err := iohelper.ReadBody(resp.Body, d.cfg.MaxBodySize)
	if err != nil {
		kind := httpclient.Classify(err)
		if kind == httpclient.KindConnection {
			kind = httpclient.KindBody
		}
		return d.failure(res, kind, err)
	}

	res.StatusCode = resp.StatusCode
	res.Headers = fingerprint.Headers(resp.Header)
	res.Body = string(body)
	res.Truncated = truncated
	res.BodyHash = BodyHash(body)
	res.Backend, res.Vulnerable = d.cfg.Matcher.Match(res.Body)
	return res
}

// failure builds the network-failure shape of a Result.
func (d *Dispatcher) failure(res Result, kind string, err error) Result {
	res.Err = &finding.NetworkProbeError{Target: res.Target, Kind: kind, Err: err}
	res.Vulnerable = false
	res.Backend = ""
	return res
}

func (d *Dispatcher) logFailure(res Result) {
	var npe *finding.NetworkProbeError
	kind := httpclient.KindConnection
	if errors.As(res.Err, &npe) {
		kind = npe.Kind
	}
	level := slog.LevelWarn
	if kind == httpclient.KindCanceled {
		level = slog.LevelDebug
	}
	d.logger.Log(context.Background(), level, "probe failed",
		slog.String("target", res.Target),
		slog.String("kind", kind),
		slog.String("error", res.Err.Error()))
}

// fail records a failure that happened before a request was sent.
func (d *Dispatcher) fail(span trace.Span, res Result, kind string, err error) Result {
	res = d.failure(res, kind, err)
	d.logFailure(res)
	span.RecordError(res.Err)
	span.SetStatus(codes.Error, "probe not sent")
	return res
}

// BodyHash returns the murmur3 fingerprint of body in the "mmh3:<int32>" form.
func BodyHash(body []byte) string {
	return fmt.Sprintf("mmh3:%d", int32(murmur3.Sum32(body)))
}

// dedupe drops repeated payloads, keeping first occurrences in order.
func dedupe(payloads []string) []string {
	seen := make(map[string]struct{}, len(payloads))
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
