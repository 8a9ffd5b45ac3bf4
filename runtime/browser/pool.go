// Package browser acquires JS-rendered pages through a pooled headless
// Chrome with an anti-detection profile. Only the backends whose search or
// documents are rendered client-side go through here; everything else uses
// the plain HTTP session pool.
package browser

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/telemetry"
)

type (
	// Config sizes the pool and its behavior profile.
	Config struct {
		// MaxContexts caps parallel browser contexts. Zero means
		// DefaultMaxContexts.
		MaxContexts int64
		// MaxQueue bounds callers waiting for a context slot.
		MaxQueue int64
		// FastMode skips per-character typing and the human warm-up
		// gestures before form submission.
		FastMode bool
		// NavigateTimeout is the hard deadline for one navigation plus
		// extraction cycle. Zero means DefaultNavigateTimeout.
		NavigateTimeout time.Duration
	}

	// Pool lazily launches a single browser instance and hands out fresh
	// contexts, one per navigation, so no state leaks across requests.
	Pool struct {
		cfg    Config
		logger telemetry.Logger

		mu          sync.Mutex
		allocCtx    context.Context
		allocCancel context.CancelFunc

		slots   *semaphore.Weighted
		waiters atomic.Int64

		// run executes a chromedp action list in a fresh context. Tests
		// replace it to exercise pool behavior without a browser.
		run func(ctx context.Context, actions ...chromedp.Action) error
	}

	// WaitCondition declares when a navigation is considered settled:
	// either a DOM predicate (Selector) or a quiet window (Idle).
	WaitCondition struct {
		Selector string
		Idle     time.Duration
	}
)

const (
	DefaultMaxContexts     = 4
	DefaultMaxQueue        = 16
	DefaultNavigateTimeout = 60 * time.Second

	viewportWidth  = 1920
	viewportHeight = 1080
	timezoneID     = "Europe/Istanbul"
	// Istanbul, consistent with the locale and timezone profile.
	geoLatitude  = 41.0082
	geoLongitude = 28.9784
)

// NewPool constructs a pool; the browser itself launches on first use.
func NewPool(cfg Config, logger telemetry.Logger) *Pool {
	if cfg.MaxContexts <= 0 {
		cfg.MaxContexts = DefaultMaxContexts
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = DefaultMaxQueue
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = DefaultNavigateTimeout
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	p := &Pool{cfg: cfg, logger: logger, slots: semaphore.NewWeighted(cfg.MaxContexts)}
	p.run = p.runInFreshContext
	return p
}

// Navigate opens url in a fresh stealth context, waits for cond and returns
// the final DOM-serialized HTML.
func (p *Pool) Navigate(ctx context.Context, url string, cond WaitCondition) (string, error) {
	return p.drive(ctx, url, nil, cond)
}

// FillAndSubmit opens url, executes the declarative plan and returns the
// serialized DOM once cond holds.
func (p *Pool) FillAndSubmit(ctx context.Context, url string, plan Plan, cond WaitCondition) (string, error) {
	if err := plan.Validate(); err != nil {
		return "", legal.Invalidf("form_plan", "%v", err)
	}
	return p.drive(ctx, url, plan, cond)
}

// Shutdown closes the browser instance. Idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
		p.allocCtx = nil
	}
}

func (p *Pool) drive(ctx context.Context, url string, plan Plan, cond WaitCondition) (string, error) {
	if p.waiters.Add(1) > p.cfg.MaxQueue {
		p.waiters.Add(-1)
		return "", legal.Exhaustedf("browser context queue is full")
	}
	err := p.slots.Acquire(ctx, 1)
	p.waiters.Add(-1)
	if err != nil {
		return "", legal.Timeoutf("waiting for a browser context: %v", err)
	}
	defer p.slots.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigateTimeout)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.ActionFunc(func(c context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthJS).Do(c)
			return err
		}),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		emulation.SetTimezoneOverride(timezoneID),
		emulation.SetGeolocationOverride().
			WithLatitude(geoLatitude).
			WithLongitude(geoLongitude).
			WithAccuracy(25),
		chromedp.Navigate(url),
	}
	if !p.cfg.FastMode {
		actions = append(actions, humanWarmup()...)
	}
	actions = append(actions, p.planActions(plan)...)
	actions = append(actions, waitActions(cond)...)

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := p.run(runCtx, actions...); err != nil {
		if runCtx.Err() != nil || ctx.Err() != nil {
			return "", legal.Timeoutf("browser navigation to %s exceeded its deadline", url)
		}
		return "", legal.BackendFailuref(0, "", "browser navigation failed: %v", err)
	}
	if isChallengePage(html) {
		return "", legal.AccessDeniedf("bot challenge page detected at %s", url)
	}
	return html, nil
}

// runInFreshContext lazily launches the shared browser and executes actions
// in a brand-new context that is discarded afterwards.
func (p *Pool) runInFreshContext(ctx context.Context, actions ...chromedp.Action) error {
	alloc, err := p.allocator()
	if err != nil {
		return err
	}
	tabCtx, cancelTab := chromedp.NewContext(alloc)
	defer cancelTab()
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}
	return chromedp.Run(tabCtx, actions...)
}

func (p *Pool) allocator() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.allocCtx != nil {
		return p.allocCtx, nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "tr-TR"),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.UserAgent(strings.ReplaceAll(defaultBrowserUA, "HeadlessChrome", "Chrome")),
	)
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return p.allocCtx, nil
}

const defaultBrowserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

// planActions compiles a declarative plan into chromedp primitives.
func (p *Pool) planActions(plan Plan) []chromedp.Action {
	var actions []chromedp.Action
	for _, step := range plan {
		switch step.Action {
		case ActionFill:
			if p.cfg.FastMode {
				actions = append(actions, chromedp.SetValue(step.Selector, step.Value, chromedp.ByQuery))
			} else {
				actions = append(actions,
					chromedp.Click(step.Selector, chromedp.ByQuery),
					chromedp.SendKeys(step.Selector, step.Value, chromedp.ByQuery),
				)
			}
		case ActionSelect:
			actions = append(actions, chromedp.SetAttributeValue(step.Selector, "value", step.Value, chromedp.ByQuery),
				chromedp.Evaluate(`document.querySelector(`+strconv.Quote(step.Selector)+`).dispatchEvent(new Event('change', {bubbles: true}))`, nil))
		case ActionClick:
			actions = append(actions, chromedp.Click(step.Selector, chromedp.ByQuery))
		case ActionWaitVisible:
			actions = append(actions, chromedp.WaitVisible(step.Selector, chromedp.ByQuery))
		case ActionSleep:
			d, _ := time.ParseDuration(step.Value)
			actions = append(actions, chromedp.Sleep(d))
		case ActionScroll:
			px := step.Value
			if px == "" {
				px = "250"
			}
			actions = append(actions, chromedp.Evaluate(`window.scrollBy(0, `+px+`)`, nil))
		}
	}
	return actions
}

// humanWarmup performs a couple of mouse moves and a small scroll so the
// session looks interactive before any form submission.
func humanWarmup() []chromedp.Action {
	return []chromedp.Action{
		chromedp.ActionFunc(func(c context.Context) error {
			return input.DispatchMouseEvent(input.MouseMoved, 640, 340).Do(c)
		}),
		chromedp.ActionFunc(func(c context.Context) error {
			return input.DispatchMouseEvent(input.MouseMoved, 910, 520).Do(c)
		}),
		chromedp.Evaluate(`window.scrollBy(0, 180)`, nil),
		chromedp.Sleep(150 * time.Millisecond),
	}
}

func waitActions(cond WaitCondition) []chromedp.Action {
	var actions []chromedp.Action
	if cond.Selector != "" {
		actions = append(actions, chromedp.WaitVisible(cond.Selector, chromedp.ByQuery))
	}
	if cond.Idle > 0 {
		actions = append(actions, chromedp.Sleep(cond.Idle))
	}
	return actions
}

// isChallengePage recognizes the interstitials the procurement sites serve
// when they suspect automation.
func isChallengePage(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(lower, "cf-challenge") ||
		strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "doğrulama gerekiyor") ||
		strings.Contains(lower, "captcha-delivery")
}
