package browser

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/browser/stealth"
	"github.com/xkilldash9x/notecrawl/internal/config"
)

// Manager owns one Chrome process and hands out tabs from it.
type Manager struct {
	logger  *zap.Logger
	cfg     config.BrowserConfig
	persona stealth.Persona

	// allocatorCtx owns the process; browserCtx is the first target and keeps
	// the browser alive. Every page derives from browserCtx.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	// wg tracks open pages for a graceful shutdown.
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ Session = (*Manager)(nil)

const defaultLaunchTimeout = 60 * time.Second

// NewLauncher returns a Launcher that starts Chrome with cfg. The persona is
// drawn once here, so a rebuilt browser keeps the same identity.
func NewLauncher(cfg config.BrowserConfig, logger *zap.Logger) Launcher {
	persona := stealth.NewPersona(rand.New(rand.NewSource(time.Now().UnixNano())))
	return LauncherFunc(func(ctx context.Context) (Session, error) {
		return Launch(ctx, cfg, persona, logger)
	})
}

// Launch starts the browser, waits for it to answer and restores saved cookies.
func Launch(ctx context.Context, cfg config.BrowserConfig, persona stealth.Persona, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger:  logger.Named("browser_manager"),
		cfg:     cfg,
		persona: persona,
	}
	m.logger.Info("Launching browser...", zap.Bool("headless", cfg.Headless))

	// The process must outlive the request that started it.
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(Detach(ctx), allocatorOptions(cfg, persona)...)
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx,
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	)

	// The first Run allocates the browser and binds its lifetime to the context
	// it is given, so it must not carry a deadline. The deadline is enforced here.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(m.browserCtx) }()

	launchTimeout := cfg.LaunchTimeout
	if launchTimeout <= 0 {
		launchTimeout = defaultLaunchTimeout
	}
	timer := time.NewTimer(launchTimeout)
	defer timer.Stop()
	var err error
	select {
	case err = <-started:
	case <-timer.C:
		err = fmt.Errorf("browser did not start within %s", launchTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		m.terminate()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	if err := m.restoreCookies(ctx); err != nil {
		m.logger.Warn("Failed to restore saved login state.", zap.Error(err))
	}

	m.logger.Info("Browser launched successfully.",
		zap.Int64("width", persona.Width),
		zap.Int64("height", persona.Height),
	)
	return m, nil
}

type flag struct {
	name  string
	value interface{}
}

// launchFlags lists the command line switches layered over chromedp's defaults.
func launchFlags(cfg config.BrowserConfig, goos string) []flag {
	flags := []flag{
		{"enable-automation", false},
		{"headless", cfg.Headless},
		{"disable-blink-features", "AutomationControlled"},
		{"disable-extensions", true},
		{"disable-gpu", cfg.Headless},
	}

	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags = append(flags, flag{name, value})
		} else {
			flags = append(flags, flag{name, true})
		}
	}

	if goos == "linux" {
		flags = append(flags,
			flag{"no-sandbox", true},
			flag{"disable-dev-shm-usage", true},
			flag{"disable-setuid-sandbox", true},
		)
	}
	return flags
}

func allocatorOptions(cfg config.BrowserConfig, persona stealth.Persona) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(cfg, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	opts = append(opts,
		chromedp.UserAgent(persona.UserAgent),
		chromedp.WindowSize(int(persona.Width), int(persona.Height)),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	return opts
}

// runBrowser executes actions on the initial target.
func (m *Manager) runBrowser(ctx context.Context, actions ...chromedp.Action) error {
	if m.browserCtx.Err() != nil {
		return ErrClosed
	}
	runCtx, cancel := CombineContext(m.browserCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (m *Manager) restoreCookies(ctx context.Context) error {
	saved, err := ReadCookies(m.cfg.AuthStatePath)
	if err != nil {
		return err
	}
	cookies := FilterDomain(saved, m.cfg.CookieDomain)
	if len(cookies) == 0 {
		m.logger.Info("No saved login state found.")
		return nil
	}

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, c.Param())
	}
	if err := m.runBrowser(ctx, network.SetCookies(params)); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	m.logger.Info("Restored saved login state.", zap.Int("cookies", len(params)))
	return nil
}

// SaveState writes the platform's cookies to the auth state file.
func (m *Manager) SaveState(ctx context.Context) error {
	var all []*network.Cookie
	err := m.runBrowser(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		all, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to read browser cookies: %w", err)
	}

	cookies := FilterDomain(FromNetwork(all), m.cfg.CookieDomain)
	if err := WriteCookies(m.cfg.AuthStatePath, cookies); err != nil {
		return err
	}
	m.logger.Info("Login state saved.", zap.String("path", m.cfg.AuthStatePath), zap.Int("cookies", len(cookies)))
	return nil
}

// Alive opens a throwaway tab and loads about:blank in it.
func (m *Manager) Alive(ctx context.Context) bool {
	if m.browserCtx.Err() != nil {
		return false
	}
	tabCtx, closeTab := chromedp.NewContext(m.browserCtx)
	defer closeTab()

	probeCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	if m.cfg.ProbeTimeout > 0 {
		var cancelTimeout context.CancelFunc
		probeCtx, cancelTimeout = context.WithTimeout(probeCtx, m.cfg.ProbeTimeout)
		defer cancelTimeout()
	}

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		m.logger.Warn("Browser liveness probe failed.", zap.Error(err))
		return false
	}
	return true
}

// NewPage opens a tab with the stealth persona applied.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	if m.browserCtx.Err() != nil {
		return nil, ErrClosed
	}
	tabCtx, closeTab := chromedp.NewContext(m.browserCtx)
	// Create the target without a deadline; see Launch.
	if err := chromedp.Run(tabCtx); err != nil {
		closeTab()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	p := &cdpPage{
		ctx:     tabCtx,
		cancel:  closeTab,
		logger:  m.logger.Named("page"),
		centerX: float64(m.persona.Width) / 2,
		centerY: float64(m.persona.Height) / 2,
	}
	if err := p.run(ctx, 0, stealth.Apply(m.persona, m.logger)); err != nil {
		closeTab()
		return nil, fmt.Errorf("failed to prepare tab: %w", err)
	}

	m.wg.Add(1)
	p.release = m.wg.Done
	return p, nil
}

// Close waits for open pages to be released, bounded by ctx, and then
// terminates the browser process. It is safe to call more than once.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		m.logger.Info("Browser shutdown initiated.")

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
		}

		m.terminate()
		m.logger.Info("Browser process terminated.")
	})
	return nil
}

func (m *Manager) terminate() {
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}
}
