package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waymap/waymap/pkg/finding"
	"github.com/waymap/waymap/pkg/payloads"
	"github.com/waymap/waymap/pkg/probe"
	"github.com/waymap/waymap/pkg/signatures"
	"github.com/waymap/waymap/pkg/testutil"
)

// fakeProber replays canned results per URL in a fixed completion order.
type fakeProber struct {
	mu      sync.Mutex
	probed  []string
	results map[string][]probe.Result
	block   map[string]bool
	ctxs    []context.Context
}

func (p *fakeProber) ProbeAll(ctx context.Context, url string, sample []string) <-chan probe.Result {
	p.mu.Lock()
	p.probed = append(p.probed, url)
	p.ctxs = append(p.ctxs, ctx)
	canned := p.results[url]
	block := p.block[url]
	p.mu.Unlock()

	ch := make(chan probe.Result, len(sample)+len(canned))
	if block {
		// Never completes; only cancellation unblocks the session.
		return ch
	}
	for _, r := range canned {
		ch <- r
	}
	if canned == nil {
		for _, pl := range sample {
			ch <- probe.Result{URL: url, Payload: pl, Target: url + pl, StatusCode: 200}
		}
	}
	close(ch)
	return ch
}

func (p *fakeProber) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

type fixedPrompter struct {
	answer bool
	err    error
	calls  int
	hook   func()
}

func (p *fixedPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	p.calls++
	if p.hook != nil {
		p.hook()
	}
	return p.answer, p.err
}

// recorder captures reporter calls as compact event strings.
type recorder struct {
	events  []string
	summary Summary
}

func (r *recorder) ScanStarted(runID string, targets int) {
	r.events = append(r.events, fmt.Sprintf("start %d", targets))
}
func (r *recorder) URLStarted(url string, index, total int) {
	r.events = append(r.events, fmt.Sprintf("url %d/%d %s", index+1, total, url))
}
func (r *recorder) TechDetected(tech string) { r.events = append(r.events, "tech "+tech) }
func (r *recorder) Vulnerable(f finding.Finding) {
	r.events = append(r.events, "vuln "+f.URL+" "+f.Backend)
}
func (r *recorder) Exhausted(url string) { r.events = append(r.events, "exhausted "+url) }
func (r *recorder) URLFinished(rep URLReport) {
	r.events = append(r.events, "done "+rep.URL+" "+rep.Status)
}
func (r *recorder) ScanFinished(s Summary) {
	r.summary = s
	r.events = append(r.events, "finish "+string(s.Outcome)+" "+s.Reason)
}

func (r *recorder) has(prefix string) bool {
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

var catalog = []string{"'", "\"", "' OR '1'='1", "1 AND 1=1", "--", "')", "1;", "' #", "admin'--", "1 OR 1=1", "\\", "`"}

const (
	url1 = "http://a.test/item.php?id=1"
	url2 = "http://b.test/news.asp?cat=2&page=3"
	url3 = "http://c.test/search"
)

func vulnResult(url, payload, backend string, headers map[string]string) probe.Result {
	return probe.Result{
		URL: url, Payload: payload, Target: url + payload,
		Vulnerable: true, Backend: backend, Headers: headers, StatusCode: 500,
	}
}

func cleanResult(url, payload string) probe.Result {
	return probe.Result{URL: url, Payload: payload, Target: url + payload, StatusCode: 200}
}

func netFailure(url, payload string) probe.Result {
	return probe.Result{
		URL: url, Payload: payload, Target: url + payload,
		Err: &finding.NetworkProbeError{Target: url + payload, Kind: "connection", Err: errors.New("refused")},
	}
}

type harness struct {
	prober   *fakeProber
	prompter *fixedPrompter
	rec      *recorder
	phases   []string
	session  *Session
}

func newHarness(t *testing.T, prober *fakeProber, prompter *fixedPrompter) *harness {
	t.Helper()
	h := &harness{prober: prober, prompter: prompter, rec: &recorder{}}
	cfg := Config{
		Prober:   prober,
		Sampler:  payloads.NewSeededSampler(1),
		Catalog:  catalog,
		Reporter: h.rec,
		RunID:    "run-1",
		OnPhase: func(p Phase, url string) {
			if url != "" {
				h.phases = append(h.phases, p.String()+" "+url)
				return
			}
			h.phases = append(h.phases, p.String())
		},
	}
	if prompter != nil {
		cfg.Prompter = prompter
	}
	s, err := NewSession(cfg)
	require.NoError(t, err)
	h.session = s
	return h
}

func TestRun_StopAfterSecondURL(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url2: {
			cleanResult(url2, "1;"),
			vulnResult(url2, "'", "Microsoft SQL Server", map[string]string{"Server": "Microsoft-IIS/10.0"}),
		},
	}}
	prompter := &fixedPrompter{answer: false}
	h := newHarness(t, prober, prompter)

	sum, err := h.session.Run(context.Background(), []string{url1, url2, url3})

	require.ErrorIs(t, err, finding.ErrUserAbort)
	assert.Equal(t, []string{url1, url2}, prober.Probed(), "url3 must never be probed")
	assert.Equal(t, 1, prompter.calls)
	assert.Equal(t, PhaseAborted, h.session.Phase())
	assert.Equal(t, "ABORTED", h.phases[len(h.phases)-1])
	assert.Equal(t, DecisionStop, h.session.State().Decision)

	assert.Equal(t, OutcomeAborted, sum.Outcome)
	assert.Equal(t, ReasonDeclined, sum.Reason)
	require.Len(t, sum.URLs, 2)
	assert.Equal(t, StatusExhausted, sum.URLs[0].Status)
	assert.Equal(t, StatusVulnerable, sum.URLs[1].Status)
	require.Len(t, sum.Findings(), 1)

	f := sum.Findings()[0]
	assert.Equal(t, "Microsoft SQL Server", f.Backend)
	assert.Equal(t, "cat=2&page=3", f.Parameter)
	assert.Equal(t, url2+"'", f.Target)
	assert.Equal(t, "Microsoft-IIS/10.0", f.Tech)
	assert.Equal(t, "run-1", f.RunID)
	assert.Equal(t, finding.High, f.Severity)

	assert.Equal(t, "finish aborted declined", h.rec.events[len(h.rec.events)-1])
}

func TestRun_ContinueWithoutReprompt(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "MySQL", map[string]string{"X-Powered-By": "PHP/7.4"})},
		url2: {cleanResult(url2, "--"), vulnResult(url2, "\"", "PostgreSQL", map[string]string{"Server": "nginx"})},
	}}
	prompter := &fixedPrompter{answer: true}
	h := newHarness(t, prober, prompter)

	sum, err := h.session.Run(context.Background(), []string{url1, url2, url3})

	require.NoError(t, err)
	assert.Equal(t, []string{url1, url2, url3}, prober.Probed())
	assert.Equal(t, 1, prompter.calls, "prompt is asked once per run")
	assert.Equal(t, OutcomeDone, sum.Outcome)
	assert.Empty(t, sum.Reason)
	assert.Len(t, sum.Findings(), 2)
	assert.Equal(t, "DONE", h.phases[len(h.phases)-1])
	assert.Equal(t, DecisionContinue, h.session.State().Decision)

	assert.Equal(t, []string{
		"IDLE",
		"PROBING " + url1,
		"VULNERABLE_FOUND " + url1,
		"PROBING " + url2,
		"VULNERABLE_FOUND " + url2,
		"PROBING " + url3,
		"EXHAUSTED " + url3,
		"DONE",
	}, h.phases)
}

func TestRun_TechDetectedOnce(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "MySQL", map[string]string{"X-Powered-By": "PHP/7.4"})},
		url2: {vulnResult(url2, "'", "MySQL", map[string]string{"Server": "nginx"})},
	}}
	h := newHarness(t, prober, &fixedPrompter{answer: true})

	sum, err := h.session.Run(context.Background(), []string{url1, url2})
	require.NoError(t, err)

	var techs []string
	for _, e := range h.rec.events {
		if strings.HasPrefix(e, "tech ") {
			techs = append(techs, e)
		}
	}
	assert.Equal(t, []string{"tech PHP/7.4"}, techs)
	assert.Equal(t, "PHP/7.4", sum.Tech)
	for _, f := range sum.Findings() {
		assert.Equal(t, "PHP/7.4", f.Tech)
	}
}

func TestRun_UnknownTech(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "SQLite", nil)},
	}}
	h := newHarness(t, prober, &fixedPrompter{answer: true})

	_, err := h.session.Run(context.Background(), []string{url1})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", h.session.State().DetectedTech)
}

func TestRun_FirstCompletedPositiveWins(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {
			cleanResult(url1, "--"),
			vulnResult(url1, "')", "Oracle", nil),
			vulnResult(url1, "'", "MySQL", nil),
		},
	}}
	h := newHarness(t, prober, &fixedPrompter{answer: true})

	sum, err := h.session.Run(context.Background(), []string{url1})
	require.NoError(t, err)
	require.Len(t, sum.Findings(), 1)
	assert.Equal(t, "Oracle", sum.Findings()[0].Backend)
	assert.Equal(t, "')", sum.Findings()[0].Payload)
	assert.Equal(t, 2, sum.URLs[0].Probes)
}

func TestRun_AbandonsBatchBeforePrompt(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "MySQL", nil), cleanResult(url1, "--")},
	}}
	var atPrompt bool
	prompter := &fixedPrompter{answer: true, hook: func() {
		atPrompt = probe.Abandoned(prober.ctxs[0])
	}}
	h := newHarness(t, prober, prompter)

	_, err := h.session.Run(context.Background(), []string{url1})
	require.NoError(t, err)
	require.Equal(t, 1, prompter.calls)
	assert.True(t, atPrompt, "remaining results are abandoned while the user decides")
}

func TestRun_AllNetworkErrorsExhausted(t *testing.T) {
	var failures []probe.Result
	for _, p := range catalog[:10] {
		failures = append(failures, netFailure(url1, p))
	}
	prober := &fakeProber{results: map[string][]probe.Result{url1: failures}}
	prompter := &fixedPrompter{}
	h := newHarness(t, prober, prompter)

	sum, err := h.session.Run(context.Background(), []string{url1})

	require.NoError(t, err)
	assert.Equal(t, 0, prompter.calls)
	require.Len(t, sum.URLs, 1)
	assert.Equal(t, StatusExhausted, sum.URLs[0].Status)
	assert.Equal(t, 10, sum.URLs[0].Failures)
	assert.True(t, h.rec.has("exhausted "+url1))
	assert.Equal(t, OutcomeDone, sum.Outcome)
}

func TestRun_InterruptDuringProbing(t *testing.T) {
	tracker := testutil.TrackGoroutines()
	prober := &fakeProber{block: map[string]bool{url2: true}}
	h := newHarness(t, prober, &fixedPrompter{answer: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var (
		sum Summary
		err error
	)
	go func() {
		defer close(done)
		sum, err = h.session.Run(ctx, []string{url1, url2, url3})
	}()

	require.Eventually(t, func() bool {
		return len(prober.Probed()) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not unwind after cancel")
	}

	require.ErrorIs(t, err, finding.ErrInterrupted)
	assert.False(t, errors.Is(err, finding.ErrUserAbort))
	assert.Equal(t, ReasonInterrupted, sum.Reason)
	assert.True(t, sum.Interrupted())
	require.Len(t, sum.URLs, 1, "half-processed url is not reported")
	assert.False(t, h.rec.has("done "+url2))
	assert.Equal(t, []string{url1, url2}, prober.Probed())
	assert.Equal(t, "finish aborted interrupted", h.rec.events[len(h.rec.events)-1])
	tracker.CheckLeaks(t, 1)
}

func TestRun_InterruptAtPrompt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "MySQL", nil)},
	}}
	prompter := &fixedPrompter{err: context.Canceled, hook: cancel}
	h := newHarness(t, prober, prompter)

	sum, err := h.session.Run(ctx, []string{url1, url2})

	require.ErrorIs(t, err, finding.ErrInterrupted)
	assert.Empty(t, sum.URLs)
	assert.Equal(t, []string{url1}, prober.Probed())
	assert.False(t, h.rec.has("done "))
}

func TestRun_PromptErrorStops(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "MySQL", nil)},
	}}
	h := newHarness(t, prober, &fixedPrompter{answer: true, err: io.ErrUnexpectedEOF})

	_, err := h.session.Run(context.Background(), []string{url1, url2})
	require.ErrorIs(t, err, finding.ErrUserAbort)
	assert.Equal(t, []string{url1}, prober.Probed())
}

func TestRun_NilPrompterContinues(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "MySQL", nil)},
	}}
	h := newHarness(t, prober, nil)

	sum, err := h.session.Run(context.Background(), []string{url1, url2})
	require.NoError(t, err)
	assert.Len(t, sum.URLs, 2)
}

func TestRun_InsufficientPayloads(t *testing.T) {
	prober := &fakeProber{}
	s, err := NewSession(Config{
		Prober:     prober,
		Sampler:    payloads.NewSeededSampler(1),
		Catalog:    catalog[:3],
		SampleSize: 10,
	})
	require.NoError(t, err)

	sum, err := s.Run(context.Background(), []string{url1, url2})
	require.ErrorIs(t, err, finding.ErrInsufficientPayloads)
	assert.Empty(t, prober.Probed())
	assert.Equal(t, OutcomeAborted, sum.Outcome)
	assert.Empty(t, sum.Reason)
}

func TestRun_DedupesTargets(t *testing.T) {
	prober := &fakeProber{}
	h := newHarness(t, prober, nil)

	sum, err := h.session.Run(context.Background(), []string{url1, " ", url2, url1 + " ", url2})
	require.NoError(t, err)
	assert.Equal(t, []string{url1, url2}, prober.Probed())
	assert.Equal(t, 2, sum.Targets)
}

func TestRun_EmptyTargets(t *testing.T) {
	h := newHarness(t, &fakeProber{}, nil)
	sum, err := h.session.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, sum.Outcome)
	assert.Equal(t, []string{"IDLE", "DONE"}, h.phases)
}

func TestRun_StateResetsBetweenRuns(t *testing.T) {
	prober := &fakeProber{results: map[string][]probe.Result{
		url1: {vulnResult(url1, "'", "MySQL", map[string]string{"Server": "nginx"})},
	}}
	prompter := &fixedPrompter{answer: true}
	h := newHarness(t, prober, prompter)

	_, err := h.session.Run(context.Background(), []string{url1})
	require.NoError(t, err)
	_, err = h.session.Run(context.Background(), []string{url1})
	require.NoError(t, err)
	assert.Equal(t, 2, prompter.calls, "each run asks once")
}

// End to end through the real dispatcher and the embedded MySQL signatures.
func TestRun_WithDispatcher(t *testing.T) {
	const mysqlErr = "You have an error in your SQL syntax; check the manual that corresponds to your MySQL server version"

	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		body := "<html>ok</html>"
		if req.URL.Host == "b.test" && strings.Contains(req.URL.RawQuery, "'") {
			body = mysqlErr
		}
		h := http.Header{}
		h.Set("X-Powered-By", "PHP/8.1")
		return &http.Response{StatusCode: 200, Header: h, Body: io.NopCloser(strings.NewReader(body))}, nil
	})

	store, err := signatures.Default("sql")
	require.NoError(t, err)
	d, err := probe.New(probe.Config{Client: client, Matcher: store})
	require.NoError(t, err)
	defer d.Close()

	allQuotes := []string{"'", "' OR '1'='1", "')", "' #", "admin'--", "1'", "'--", "' AND '1'='1", "'||'", "';"}
	rec := &recorder{}
	s, err := NewSession(Config{
		Prober:   d,
		Sampler:  payloads.NewSeededSampler(42),
		Catalog:  allQuotes,
		Prompter: &fixedPrompter{answer: false},
		Reporter: rec,
	})
	require.NoError(t, err)

	sum, err := s.Run(context.Background(), []string{url1, url2, url3})
	require.ErrorIs(t, err, finding.ErrUserAbort)
	require.Len(t, sum.Findings(), 1)
	assert.Equal(t, "MySQL", sum.Findings()[0].Backend)
	assert.Equal(t, url2, sum.Findings()[0].URL)
	assert.Equal(t, "PHP/8.1", sum.Tech)
	assert.NotEmpty(t, sum.RunID)
	assert.False(t, rec.has("url 3/3"))
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(Config{Sampler: payloads.NewSeededSampler(1)})
	assert.ErrorIs(t, err, ErrNoProber)
	_, err = NewSession(Config{Prober: &fakeProber{}})
	assert.ErrorIs(t, err, ErrNoSampler)
	_, err = NewSession(Config{Prober: &fakeProber{}, Sampler: payloads.NewSeededSampler(1), Severity: "urgent"})
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestParameter(t *testing.T) {
	assert.Equal(t, "id=1", Parameter("http://a.test/p.php?id=1"))
	assert.Equal(t, "a=1&b=2", Parameter("http://a.test/?a=1&b=2"))
	assert.Equal(t, "N/A", Parameter("http://a.test/path"))
	assert.Equal(t, "N/A", Parameter("http://a.test/path?"))
	assert.Equal(t, "b", Parameter("a?b?c"))
	assert.Equal(t, "id=1", Parameter("http://a.test/p.php?id=1?x=2"))
	assert.Equal(t, "N/A", Parameter("http://a.test/p??x=2"))
}

func TestPhaseAndDecisionStrings(t *testing.T) {
	assert.Equal(t, "VULNERABLE_FOUND", PhaseVulnerableFound.String())
	assert.Equal(t, "UNKNOWN", Phase(42).String())
	assert.True(t, PhaseDone.Terminal())
	assert.False(t, PhaseExhausted.Terminal())
	assert.Equal(t, "stop", DecisionStop.String())
	assert.Equal(t, "unset", DecisionUnset.String())
}

func TestReporters_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	r := Reporters(a, nil, b)
	r.ScanStarted("x", 2)
	r.Exhausted(url1)
	assert.Equal(t, a.events, b.events)
	assert.Equal(t, []string{"start 2", "exhausted " + url1}, a.events)
}
