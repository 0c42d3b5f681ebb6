// Package browser launches one private Chromium per registry query and
// exposes its single tab through the registry.Page operations.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/rnp/config"
	"github.com/use-agent/rnp/registry"
	"github.com/ysmood/gson"
)

// Fixed page geometry.
const (
	ViewportWidth  = 1280
	ViewportHeight = 800
)

// Launcher starts sessions from a BrowserConfig. It is safe for concurrent
// use; sessions never share a browser process.
type Launcher struct {
	cfg    config.BrowserConfig
	log    *slog.Logger
	active atomic.Int32
}

// NewLauncher returns a Launcher. A nil logger means slog.Default().
func NewLauncher(cfg config.BrowserConfig, log *slog.Logger) *Launcher {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 80 * time.Second
	}
	return &Launcher{cfg: cfg, log: log}
}

// Active returns the number of open sessions.
func (l *Launcher) Active() int {
	return int(l.active.Load())
}

// Launch starts a browser (or attaches to cfg.CDPURL in a fresh incognito
// context), opens one page and configures it. Nothing is left running when
// Launch fails.
//
// Lifecycle:
//
//  1. Start Chromium with sandbox-free flags, or connect to CDPURL
//  2. Open one page (incognito context if remote)
//  3. Viewport 1280x800
//  4. Stealth injection and extra headers (before any navigation)
//  5. Hijack router for blocked resource types
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	s := &Session{
		timeout: l.cfg.PageTimeout,
		log:     l.log,
	}

	// ── 1. Browser ───────────────────────────────────────────────────
	var controlURL string
	if l.cfg.CDPURL != "" {
		controlURL = l.cfg.CDPURL
		s.remote = true
	} else {
		ln := l.newProcess()
		u, err := ln.Context(ctx).Launch()
		if err != nil {
			// Cleanup would block on a process that never started.
			ln.Kill()
			return nil, fmt.Errorf("browser: launch chromium: %w", err)
		}
		s.process = ln
		controlURL = u
	}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		_ = s.release()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	// Page operations carry their own deadlines; teardown must outlive ctx.
	b = b.Context(context.Background())
	s.browser = b

	// ── 2. Page ──────────────────────────────────────────────────────
	owner := b
	if s.remote {
		inc, err := b.Incognito()
		if err != nil {
			_ = s.release()
			return nil, fmt.Errorf("browser: incognito context: %w", err)
		}
		s.incognito = inc
		owner = inc
	}
	page, err := owner.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.release()
		return nil, fmt.Errorf("browser: open page: %w", err)
	}
	s.page = page

	// ── 3. Viewport ──────────────────────────────────────────────────
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  ViewportWidth,
		Height: ViewportHeight,
	}); err != nil {
		_ = s.release()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	// ── 4. Stealth ───────────────────────────────────────────────────
	if l.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			l.log.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	// ── 4b. Extra request headers ────────────────────────────────────
	if len(l.cfg.ExtraHeaders) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(l.cfg.ExtraHeaders),
		}).Call(page); err != nil {
			l.log.Warn("failed to set extra headers", "error", err)
		}
	}

	// ── 5. Resource blocking ─────────────────────────────────────────
	s.router = setupHijack(page, l.cfg.BlockedResourceTypes, l.cfg.BlockTrackers)

	l.active.Add(1)
	s.onClose = func() { l.active.Add(-1) }
	l.log.Debug("browser session opened", "remote", s.remote, "controlURL", controlURL)
	return s, nil
}

// newProcess builds the Chromium launcher. The flags let Chromium run in
// containers without user namespaces or a large /dev/shm.
func (l *Launcher) newProcess() *launcher.Launcher {
	ln := launcher.New().
		Headless(l.cfg.Headless).
		NoSandbox(l.cfg.NoSandbox)

	if l.cfg.BrowserBin != "" {
		ln = ln.Bin(l.cfg.BrowserBin)
	}
	if l.cfg.Proxy != "" {
		ln = ln.Proxy(l.cfg.Proxy)
	}

	if l.cfg.NoSandbox {
		ln.Set(flags.Flag("disable-setuid-sandbox"))
	}
	ln.Set(flags.Flag("disable-dev-shm-usage"))
	ln.Set(flags.Flag("disable-gpu"))
	if l.cfg.SingleProcess {
		ln.Set(flags.Flag("single-process"))
	}
	ln.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	ln.Delete(flags.Flag("enable-automation"))
	ln.Set(flags.Flag("disable-extensions"))
	ln.Set(flags.Flag("disable-component-update"))
	ln.Set(flags.Flag("no-first-run"))
	return ln
}

var _ registry.Session = (*Session)(nil)

// Session is one browser with one page. It implements registry.Session.
type Session struct {
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	process   *launcher.Launcher
	router    *rod.HijackRouter
	remote    bool
	timeout   time.Duration
	log       *slog.Logger

	once     sync.Once
	closeErr error
	onClose  func()
}

// Close tears the session down: hijack router, page, browser (or the
// incognito context when attached remotely) and the Chromium process with
// its profile directory. Only the first call does work.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.closeErr = s.release()
		if s.onClose != nil {
			s.onClose()
		}
		s.log.Debug("browser session closed", "error", s.closeErr)
	})
	return s.closeErr
}

// release frees whatever has been acquired so far. Rod calls here use the
// browser's own context, so cleanup still works after a query's context
// has expired.
func (s *Session) release() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
		}
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	switch {
	case s.incognito != nil:
		if err := s.incognito.Close(); err != nil {
			errs = append(errs, fmt.Errorf("dispose incognito context: %w", err))
		}
	case s.browser != nil && !s.remote:
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.process != nil {
		s.process.Kill()
		s.process.Cleanup()
	}
	return errors.Join(errs...)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
