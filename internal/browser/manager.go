package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Manager acquires browser resources per operation and guarantees release
// on every exit path. Credential-bearing operations always get a brand-new
// browser process; a single shared browser serves non-credentialed probes.
type Manager struct {
	config common.BrowserConfig
	logger arbor.ILogger

	// Per-platform concurrency bound and pacing. Too many simultaneous
	// automated sessions against one site looks like a bot swarm and draws
	// rate limiting.
	semaphores map[models.Platform]*semaphore.Weighted
	limiters   map[models.Platform]*rate.Limiter
	semMu      sync.Mutex

	// Shared probe browser, created lazily, never used for cookie operations
	probeCtx         context.Context
	probeCancel      context.CancelFunc
	probeAllocCancel context.CancelFunc
	probeMu          sync.Mutex

	// Remote debugging ports handed to interactive sessions
	portsInUse map[int]bool
	portMu     sync.Mutex

	shutdown bool
}

// NewManager creates a browser resource manager
func NewManager(config common.BrowserConfig, logger arbor.ILogger) *Manager {
	return &Manager{
		config:     config,
		logger:     logger,
		semaphores: make(map[models.Platform]*semaphore.Weighted),
		limiters:   make(map[models.Platform]*rate.Limiter),
		portsInUse: make(map[int]bool),
	}
}

// WithPage acquires a page per the scope, runs fn, and always tears the
// underlying browser down afterward. Teardown failures are logged and
// swallowed so they never mask fn's own result.
func (m *Manager) WithPage(ctx context.Context, scope interfaces.BrowserScope, fn func(ctx context.Context, page interfaces.Page) error) error {
	if err := m.throttle(ctx, scope.Platform); err != nil {
		return err
	}
	defer m.release(scope.Platform)

	timeout := scope.Timeout
	if timeout <= 0 {
		timeout = m.config.OperationTimeoutDuration()
	}
	opCtx, opCancel := context.WithTimeout(ctx, timeout)
	defer opCancel()

	if scope.Isolated {
		return m.withIsolatedPage(opCtx, scope, fn)
	}
	return m.withProbePage(opCtx, scope, fn)
}

// withIsolatedPage creates a dedicated browser process for this single call
func (m *Manager) withIsolatedPage(ctx context.Context, scope interfaces.BrowserScope, fn func(ctx context.Context, page interfaces.Page) error) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	defer func() {
		// Release on every exit path. Cancellation failures must not mask
		// the operation's own result.
		defer func() {
			if r := recover(); r != nil {
				m.logger.Warn().
					Str("panic", fmt.Sprintf("%v", r)).
					Msg("Recovered from panic during browser teardown")
			}
		}()
		browserCancel()
		allocCancel()
		m.logger.Debug().
			Str("platform", scope.Platform.String()).
			Msg("Isolated browser context released")
	}()

	if err := m.startupProbe(browserCtx); err != nil {
		return err
	}

	m.logger.Debug().
		Str("platform", scope.Platform.String()).
		Msg("Isolated browser context created")

	return fn(ctx, m.newPage(browserCtx, true))
}

// withProbePage opens a fresh tab on the shared probe browser. Cookie
// operations are rejected on these pages to prevent state bleed across
// tenants and platforms.
func (m *Manager) withProbePage(ctx context.Context, scope interfaces.BrowserScope, fn func(ctx context.Context, page interfaces.Page) error) error {
	probeCtx, err := m.sharedProbeBrowser()
	if err != nil {
		return err
	}

	tabCtx, tabCancel := chromedp.NewContext(probeCtx)
	defer func() {
		tabCancel()
		m.logger.Debug().
			Str("platform", scope.Platform.String()).
			Msg("Probe tab released")
	}()

	// Bound the tab's work by the operation context
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx, m.newPage(tabCtx, false))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("probe operation timed out: %w", ctx.Err())
	}
}

// OpenInteractive opens a long-lived browser with a viewable remote
// debugging endpoint for the interactive session broker
func (m *Manager) OpenInteractive(ctx context.Context, platform models.Platform) (*interfaces.InteractiveHandle, error) {
	port, err := m.claimPort()
	if err != nil {
		return nil, err
	}

	opts := append(m.allocatorOptions(),
		chromedp.Flag("remote-debugging-address", "0.0.0.0"),
		chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", port)),
	)

	// Detached from the request context: the session outlives the HTTP call
	// that started it and is closed by capture, explicit close, or the sweep.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := m.startupProbe(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		m.freePort(port)
		return nil, err
	}

	var closeOnce sync.Once
	handle := &interfaces.InteractiveHandle{
		Page:        m.newPage(browserCtx, true),
		LiveViewURL: fmt.Sprintf("http://%s:%d", m.config.RemoteDebuggingHost, port),
		Close: func() {
			closeOnce.Do(func() {
				browserCancel()
				allocCancel()
				m.freePort(port)
				m.logger.Debug().
					Str("platform", platform.String()).
					Int("port", port).
					Msg("Interactive browser context released")
			})
		},
	}

	m.logger.Info().
		Str("platform", platform.String()).
		Str("live_view_url", handle.LiveViewURL).
		Msg("Interactive browser context created")

	return handle, nil
}

// Shutdown tears down the shared probe browser
func (m *Manager) Shutdown() error {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	m.shutdown = true
	if m.probeCtx != nil {
		m.probeCancel()
		m.probeAllocCancel()
		m.probeCtx = nil
		m.logger.Info().Msg("Shared probe browser shut down")
	}
	return nil
}

// startupProbe verifies the browser actually launched. Launch failure is a
// configuration fault (missing executable, bad flags), distinct from
// in-page automation errors, and is never retried.
func (m *Manager) startupProbe(browserCtx context.Context) error {
	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		m.logger.Error().Err(err).Msg("Browser failed startup probe")
		return fmt.Errorf("%w: %v", interfaces.ErrBrowserUnavailable, err)
	}
	return nil
}

func (m *Manager) sharedProbeBrowser() (context.Context, error) {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	if m.shutdown {
		return nil, fmt.Errorf("%w: manager is shut down", interfaces.ErrBrowserUnavailable)
	}
	if m.probeCtx != nil {
		return m.probeCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := m.startupProbe(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	m.probeCtx = browserCtx
	m.probeCancel = browserCancel
	m.probeAllocCancel = allocCancel

	m.logger.Info().Msg("Shared probe browser started")
	return m.probeCtx, nil
}

func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	return append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.config.Headless),
		chromedp.Flag("disable-gpu", m.config.DisableGPU),
		chromedp.Flag("no-sandbox", m.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(m.config.UserAgent),
	)
}

func (m *Manager) newPage(browserCtx context.Context, credentialed bool) *page {
	return &page{
		browserCtx:   browserCtx,
		credentialed: credentialed,
		navTimeout:   m.config.NavigationTimeoutDuration(),
		selTimeout:   m.config.SelectorTimeoutDuration(),
		logger:       m.logger,
	}
}

// throttle acquires the per-platform slot and waits out the pacing delay
func (m *Manager) throttle(ctx context.Context, platform models.Platform) error {
	m.semMu.Lock()
	sem, ok := m.semaphores[platform]
	if !ok {
		sem = semaphore.NewWeighted(int64(m.config.MaxPerPlatform))
		m.semaphores[platform] = sem
	}
	limiter, ok := m.limiters[platform]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(m.config.RequestDelayDuration()), 1)
		m.limiters[platform] = limiter
	}
	m.semMu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("cancelled while waiting for browser slot: %w", err)
	}
	if err := limiter.Wait(ctx); err != nil {
		sem.Release(1)
		return fmt.Errorf("cancelled while pacing: %w", err)
	}
	return nil
}

func (m *Manager) release(platform models.Platform) {
	m.semMu.Lock()
	sem := m.semaphores[platform]
	m.semMu.Unlock()
	if sem != nil {
		sem.Release(1)
	}
}

func (m *Manager) claimPort() (int, error) {
	m.portMu.Lock()
	defer m.portMu.Unlock()

	for offset := 0; offset < 100; offset++ {
		port := m.config.RemoteDebuggingPortBase + offset
		if !m.portsInUse[port] {
			m.portsInUse[port] = true
			return port, nil
		}
	}
	return 0, fmt.Errorf("no remote debugging ports available")
}

func (m *Manager) freePort(port int) {
	m.portMu.Lock()
	defer m.portMu.Unlock()
	delete(m.portsInUse, port)
}

// Stats reports manager occupancy for the status endpoint
func (m *Manager) Stats() map[string]interface{} {
	m.portMu.Lock()
	interactive := len(m.portsInUse)
	m.portMu.Unlock()

	m.probeMu.Lock()
	probeRunning := m.probeCtx != nil
	m.probeMu.Unlock()

	return map[string]interface{}{
		"interactive_sessions": interactive,
		"probe_browser":        probeRunning,
		"max_per_platform":     m.config.MaxPerPlatform,
	}
}

var _ interfaces.BrowserManager = (*Manager)(nil)
