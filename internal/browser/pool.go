package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// Config holds the pool's sizing and lifecycle knobs.
type Config struct {
	MinInstances   int
	MaxInstances   int
	LaunchTimeout  time.Duration
	AcquireTimeout time.Duration
	MaxUses        int // recycle an instance after this many borrows
	IdleTimeout    time.Duration
	Headless       bool
	UserAgent      string
}

// DefaultConfig returns the standard launch profile.
func DefaultConfig() Config {
	return Config{
		MinInstances:   1,
		MaxInstances:   3,
		LaunchTimeout:  30 * time.Second,
		AcquireTimeout: 60 * time.Second,
		MaxUses:        40,
		IdleTimeout:    5 * time.Minute,
		Headless:       true,
	}
}

// ErrAcquireTimeout is returned when every instance stays busy past the
// acquire deadline. Callers treat it as an attempt failure, not a job
// failure.
var ErrAcquireTimeout = fmt.Errorf("browser_acquire_timeout: no browser available")

// Instance is one long-lived headless browser. Borrowers get exclusive use
// until release; per-job isolation comes from fresh tab contexts, not from
// the browser itself.
type Instance struct {
	browserCtx  context.Context
	browserStop context.CancelFunc
	allocStop   context.CancelFunc
	uses        int
	idleSince   time.Time
}

// Context returns the browser-level chromedp context. Job code must derive
// fresh tab contexts from it rather than using it directly.
func (i *Instance) Context() context.Context {
	return i.browserCtx
}

// Pool is a bounded set of long-lived headless browsers with validation on
// borrow, use-count recycling, and acquire backpressure.
type Pool struct {
	cfg    Config
	logger arbor.ILogger

	mu     sync.Mutex
	idle   []*Instance
	total  int
	slots  chan struct{}
	closed bool
}

// NewPool creates the pool and pre-launches the minimum instance count.
// Launch failures at startup are tolerated as long as one instance comes up.
func NewPool(cfg Config, logger arbor.ILogger) (*Pool, error) {
	if cfg.MaxInstances <= 0 {
		return nil, fmt.Errorf("max instances must be positive, got %d", cfg.MaxInstances)
	}
	if cfg.MinInstances > cfg.MaxInstances {
		cfg.MinInstances = cfg.MaxInstances
	}

	p := &Pool{
		cfg:    cfg,
		logger: logger,
		slots:  make(chan struct{}, cfg.MaxInstances),
	}
	for i := 0; i < cfg.MaxInstances; i++ {
		p.slots <- struct{}{}
	}

	launched := 0
	var lastErr error
	for i := 0; i < cfg.MinInstances; i++ {
		inst, err := p.launch()
		if err != nil {
			lastErr = err
			logger.Warn().Err(err).Int("index", i).Msg("Browser warm-up launch failed")
			continue
		}
		p.idle = append(p.idle, inst)
		p.total++
		launched++
	}
	if cfg.MinInstances > 0 && launched == 0 {
		return nil, fmt.Errorf("failed to launch any browser instance: %w", lastErr)
	}

	logger.Info().
		Int("launched", launched).
		Int("max_instances", cfg.MaxInstances).
		Bool("headless", cfg.Headless).
		Msg("Browser pool initialized")

	return p, nil
}

// Acquire borrows an instance, blocking up to the configured timeout when
// the pool is saturated. Dead instances found on borrow are replaced
// transparently.
func (p *Pool) Acquire(ctx context.Context) (*Instance, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	select {
	case <-p.slots:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrAcquireTimeout
	}

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.slots <- struct{}{}
			return nil, fmt.Errorf("browser pool is closed")
		}
		var inst *Instance
		expired := false
		if n := len(p.idle); n > 0 {
			inst = p.idle[n-1]
			p.idle = p.idle[:n-1]
			expired = p.surplusExpired(inst)
		}
		p.mu.Unlock()

		if inst == nil {
			launched, err := p.launch()
			if err != nil {
				p.slots <- struct{}{}
				return nil, fmt.Errorf("browser launch failed: %w", err)
			}
			p.mu.Lock()
			p.total++
			p.mu.Unlock()
			return launched, nil
		}

		if !expired && p.validate(inst) {
			return inst, nil
		}

		// Disconnected or idle-expired instance: destroy and loop to
		// replace it.
		p.destroy(inst)
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
	}
}

// Release returns an instance to the pool. Instances past their use budget
// are destroyed instead of parked; idle expiry is checked on the next borrow.
func (p *Pool) Release(inst *Instance) {
	if inst == nil {
		return
	}
	defer func() { p.slots <- struct{}{} }()

	inst.uses++
	inst.idleSince = time.Now()

	p.mu.Lock()
	recycle := p.closed ||
		(p.cfg.MaxUses > 0 && inst.uses >= p.cfg.MaxUses)
	if !recycle {
		p.idle = append(p.idle, inst)
		p.mu.Unlock()
		return
	}
	p.total--
	p.mu.Unlock()

	p.destroy(inst)
	p.logger.Debug().Int("uses", inst.uses).Msg("Browser instance recycled")
}

// Close drains and destroys every instance. In-flight borrowers fail on
// their next acquire.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	instances := p.idle
	p.idle = nil
	p.total = 0
	p.mu.Unlock()

	for _, inst := range instances {
		p.destroy(inst)
	}
	p.logger.Info().Int("destroyed", len(instances)).Msg("Browser pool closed")
}

// launch starts one headless browser and verifies it responds.
func (p *Pool) launch() (*Instance, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("js-flags", "--max-old-space-size=2048"),
	)
	if p.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.cfg.UserAgent))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, p.cfg.LaunchTimeout)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserStop()
		allocStop()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	return &Instance{
		browserCtx:  browserCtx,
		browserStop: browserStop,
		allocStop:   allocStop,
		idleSince:   time.Now(),
	}, nil
}

// validate rejects instances whose browser context has died.
func (p *Pool) validate(inst *Instance) bool {
	if inst.browserCtx.Err() != nil {
		return false
	}
	checkCtx, cancel := context.WithTimeout(inst.browserCtx, 5*time.Second)
	defer cancel()
	var title string
	return chromedp.Run(checkCtx, chromedp.Title(&title)) == nil
}

func (p *Pool) destroy(inst *Instance) {
	inst.browserStop()
	inst.allocStop()
}

// surplusExpired reports whether the instance is above the minimum and has
// sat idle past the idle timeout. Caller holds the mutex.
func (p *Pool) surplusExpired(inst *Instance) bool {
	if p.cfg.IdleTimeout <= 0 || p.total <= p.cfg.MinInstances {
		return false
	}
	return time.Since(inst.idleSince) > p.cfg.IdleTimeout
}
