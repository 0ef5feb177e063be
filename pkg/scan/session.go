package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/fingerprint"
	"github.com/waymap/waymap/pkg/metrics"
	"github.com/waymap/waymap/pkg/probe"
	"github.com/waymap/waymap/pkg/tracing"
)

// Question is the text of the continue prompt.
const Question = "Vulnerable URL found. Do you want to continue testing other URLs? (y/n): "

// Prober streams probe results for one URL. *probe.Dispatcher satisfies it.
type Prober interface {
	ProbeAll(ctx context.Context, url string, payloads []string) <-chan probe.Result
}

// Sampler draws k payloads from a catalog. *payloads.Sampler satisfies it.
type Sampler interface {
	Sample(catalog []string, k int) ([]string, error)
}

// Prompter asks the user a yes/no question. A true answer continues.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// PhaseFunc observes state machine transitions. url is empty for IDLE,
// ABORTED and DONE.
type PhaseFunc func(p Phase, url string)

// Config configures a Session.
type Config struct {
	Prober  Prober  // required
	Sampler Sampler // required

	// Catalog is the payload pool sampled for every URL.
	Catalog []string

	// SampleSize is the number of payloads per URL (default: 10).
	SampleSize int

	// Prompter answers the continue question. Nil continues without asking.
	Prompter Prompter

	// Reporter receives progress. Nil discards it.
	Reporter Reporter

	// Severity is stamped on every finding (default: high).
	Severity finding.Severity

	// RunID identifies the run in reports (default: a random UUID).
	RunID string

	// OnPhase, when set, observes every phase transition.
	OnPhase PhaseFunc

	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Tracer  trace.Tracer
}

// Session runs scans. A Session may be reused for sequential runs but not
// for concurrent ones.
type Session struct {
	cfg      Config
	reporter Reporter
	logger   *slog.Logger
	tracer   trace.Tracer

	running atomic.Bool
	state   State
	phase   Phase
}

// NewSession validates cfg and applies defaults.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Prober == nil {
		return nil, ErrNoProber
	}
	if cfg.Sampler == nil {
		return nil, ErrNoSampler
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = defaults.SampleSize
	}
	if cfg.Severity == "" {
		cfg.Severity = finding.High
	}
	if !cfg.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, cfg.Severity)
	}

	s := &Session{
		cfg:      cfg,
		reporter: cfg.Reporter,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
	}
	if s.reporter == nil {
		s.reporter = NopReporter{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracing.Noop()
	}
	return s, nil
}

// State returns a copy of the run state. Call it after Run returns.
func (s *Session) State() State {
	return s.state
}

// Phase returns the last phase entered.
func (s *Session) Phase() Phase {
	return s.phase
}

// Run scans urls in order. Blank and repeated URLs are skipped.
//
// The error is nil when every URL was processed, finding.ErrUserAbort when
// the user declined to continue, finding.ErrInterrupted when ctx ended
// first, and a wrapped load or sampling error when the run could not
// proceed. The Summary is populated in every case.
func (s *Session) Run(ctx context.Context, urls []string) (Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	runID := s.cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	targets := uniqueTargets(urls)

	s.state = State{}
	s.enter(PhaseIdle, "")

	sum := Summary{
		RunID:   runID,
		Targets: len(targets),
		URLs:    make([]URLReport, 0, len(targets)),
		Started: time.Now(),
	}

	ctx, span := s.tracer.Start(ctx, "scan", trace.WithAttributes(
		attribute.String("waymap.run_id", runID),
		attribute.Int("waymap.targets", len(targets)),
	))
	defer span.End()

	s.logger.Info("scan started",
		slog.String("run_id", runID),
		slog.Int("targets", len(targets)),
		slog.Int("sample_size", s.cfg.SampleSize))
	s.reporter.ScanStarted(runID, len(targets))

	var runErr error
	for i, target := range targets {
		if ctx.Err() != nil {
			runErr = finding.ErrInterrupted
			break
		}
		rep, err := s.scanURL(ctx, runID, target, i, len(targets))
		if err != nil {
			if rep.Status != "" {
				sum.URLs = append(sum.URLs, rep)
			}
			runErr = err
			break
		}
		sum.URLs = append(sum.URLs, rep)
	}

	sum.Tech = s.state.DetectedTech
	sum.Finished = time.Now()
	switch {
	case errors.Is(runErr, finding.ErrInterrupted):
		sum.Outcome, sum.Reason = OutcomeAborted, ReasonInterrupted
		s.enter(PhaseAborted, "")
	case errors.Is(runErr, finding.ErrUserAbort):
		sum.Outcome, sum.Reason = OutcomeAborted, ReasonDeclined
		s.enter(PhaseAborted, "")
	case runErr != nil:
		sum.Outcome = OutcomeAborted
		s.enter(PhaseAborted, "")
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "scan failed")
	default:
		sum.Outcome = OutcomeDone
		s.enter(PhaseDone, "")
	}

	span.SetAttributes(
		attribute.String("waymap.outcome", string(sum.Outcome)),
		attribute.Int("waymap.findings", len(sum.Findings())),
	)
	s.logger.Info("scan finished",
		slog.String("run_id", runID),
		slog.String("outcome", string(sum.Outcome)),
		slog.String("reason", sum.Reason),
		slog.Int("findings", len(sum.Findings())),
		slog.Duration("took", sum.Duration()))
	s.reporter.ScanFinished(sum)
	return sum, runErr
}

// scanURL processes one target. A non-nil error ends the run; the report
// is populated only when the URL itself was fully resolved.
func (s *Session) scanURL(ctx context.Context, runID, url string, index, total int) (URLReport, error) {
	sample, err := s.cfg.Sampler.Sample(s.cfg.Catalog, s.cfg.SampleSize)
	if err != nil {
		return URLReport{}, fmt.Errorf("scan %s: %w", url, err)
	}

	ctx, span := s.tracer.Start(ctx, "scan.url", trace.WithAttributes(
		attribute.String("waymap.url", url),
	))
	defer span.End()

	rep := URLReport{URL: url, Started: time.Now()}
	s.enter(PhaseProbing, url)
	s.reporter.URLStarted(url, index, total)
	s.logger.Debug("probing url",
		slog.String("url", url),
		slog.Int("payloads", len(sample)))

	batchCtx, abandon := probe.WithAbandon(ctx)
	defer abandon()
	results := s.cfg.Prober.ProbeAll(batchCtx, url, sample)
	for {
		var (
			r  probe.Result
			ok bool
		)
		select {
		case <-ctx.Done():
			return URLReport{}, finding.ErrInterrupted
		case r, ok = <-results:
		}
		if ctx.Err() != nil {
			return URLReport{}, finding.ErrInterrupted
		}
		if !ok {
			break
		}

		rep.Probes++
		if r.Failed() {
			rep.Failures++
			continue
		}
		if r.Vulnerable {
			// The channel is buffered so the producer never blocks on the
			// results left unread.
			abandon()
			return s.vulnerable(ctx, runID, rep, r)
		}
	}

	rep.Status = StatusExhausted
	rep.Finished = time.Now()
	s.enter(PhaseExhausted, url)
	s.reporter.Exhausted(url)
	s.reporter.URLFinished(rep)
	s.cfg.Metrics.URLFinished(StatusExhausted)
	span.SetAttributes(attribute.String("waymap.status", StatusExhausted))
	return rep, nil
}

// vulnerable handles the first positive result for a URL.
func (s *Session) vulnerable(ctx context.Context, runID string, rep URLReport, r probe.Result) (URLReport, error) {
	if s.state.DetectedTech == "" {
		s.state.DetectedTech = fingerprint.Identify(r.Headers)
		s.reporter.TechDetected(s.state.DetectedTech)
	}

	f := finding.Finding{
		RunID:      runID,
		URL:        r.URL,
		Target:     r.Target,
		Parameter:  Parameter(r.URL),
		Payload:    r.Payload,
		Backend:    r.Backend,
		Tech:       s.state.DetectedTech,
		Severity:   s.cfg.Severity,
		StatusCode: r.StatusCode,
		BodyHash:   r.BodyHash,
		FoundAt:    time.Now(),
	}
	s.logger.Info("vulnerable url",
		slog.String("target", f.Target),
		slog.String("backend", f.Backend),
		slog.String("tech", f.Tech))
	s.reporter.Vulnerable(f)
	s.cfg.Metrics.Finding(f.Backend)

	rep.Status = StatusVulnerable
	rep.Finding = &f

	if s.state.Decision == DecisionUnset {
		d, err := s.ask(ctx)
		if err != nil {
			return URLReport{}, err
		}
		s.state.Decision = d
	}

	rep.Finished = time.Now()
	s.enter(PhaseVulnerableFound, rep.URL)
	s.reporter.URLFinished(rep)
	s.cfg.Metrics.URLFinished(StatusVulnerable)

	if s.state.Decision == DecisionStop {
		return rep, finding.ErrUserAbort
	}
	return rep, nil
}

// ask runs the one prompt of the run. A failed read other than
// cancellation counts as a stop.
func (s *Session) ask(ctx context.Context) (Decision, error) {
	if s.cfg.Prompter == nil {
		return DecisionContinue, nil
	}
	ok, err := s.cfg.Prompter.Confirm(ctx, Question)
	if ctx.Err() != nil {
		return DecisionUnset, finding.ErrInterrupted
	}
	if err != nil {
		s.logger.Warn("prompt failed, stopping", slog.String("error", err.Error()))
		return DecisionStop, nil
	}
	if ok {
		return DecisionContinue, nil
	}
	return DecisionStop, nil
}

func (s *Session) enter(p Phase, url string) {
	s.phase = p
	if s.cfg.OnPhase != nil {
		s.cfg.OnPhase(p, url)
	}
}

// Parameter returns the text between the first and second "?" of url, or
// "N/A" when that is empty. "a?b?c" yields "b".
func Parameter(url string) string {
	parts := strings.Split(url, "?")
	if len(parts) < 2 || parts[1] == "" {
		return "N/A"
	}
	return parts[1]
}

// uniqueTargets trims urls and drops blanks and repeats, keeping order.
func uniqueTargets(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
