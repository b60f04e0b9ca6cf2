package scraper

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pbiscrape/config"
	"github.com/use-agent/pbiscrape/dom"
	"github.com/use-agent/pbiscrape/models"
)

// State is the lifecycle state of a Scraper.
type State int

const (
	StateUninitialized State = iota
	StateOpen
	StateScraping
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpen:
		return "session-open"
	case StateScraping:
		return "scraping"
	case StateClosed:
		return "session-closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Scraper owns one browser session pointed at one dashboard.
// It is not safe for concurrent use.
type Scraper struct {
	cfg config.Config

	launcher *launcher.Launcher // nil when attached over CDP
	conn     io.Closer          // CDP websocket, nil when launched locally
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	state    State
}

// New creates a Scraper. No browser is started until Initialize.
func New(cfg config.Config) *Scraper {
	return &Scraper{cfg: cfg}
}

// State returns the current lifecycle state.
func (s *Scraper) State() State { return s.state }

// Initialize opens the browser session, navigates to the dashboard and
// waits for the table element. Every failure is fatal for the run; the
// caller should still call Cleanup to release what was acquired.
func (s *Scraper) Initialize(ctx context.Context) error {
	if s.state != StateUninitialized {
		return fmt.Errorf("scraper: initialize called in state %s", s.state)
	}

	if err := s.connect(ctx); err != nil {
		return err
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}
	s.page = page
	s.state = StateOpen

	// ── Stealth injection (before navigation) ────────────────────────
	if s.cfg.Browser.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			logger().Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── Resource blocking (before navigation) ────────────────────────
	s.router = setupHijack(page, newBlockRules(s.cfg.Browser.BlockedResources, s.cfg.Browser.BlockedHosts))

	// ── Navigate ─────────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.Scraper.NavigationTimeout)
	defer cancel()

	p := page.Context(navCtx)
	if err := p.Navigate(s.cfg.PowerBIURL); err != nil {
		return categorizeError(err, "navigation to dashboard failed")
	}
	if err := p.WaitLoad(); err != nil {
		logger().Warn("page load event not observed, proceeding", "error", err)
	}
	logger().Info("dashboard opened", "url", s.cfg.PowerBIURL)

	// ── Wait for the table widget ────────────────────────────────────
	if _, err := s.waitTable(ctx); err != nil {
		return err
	}
	logger().Info("table element present", "xpath", s.cfg.TableXPath)
	return nil
}

// connect launches a local browser, or attaches to the configured CDP URL.
func (s *Scraper) connect(ctx context.Context) error {
	if cdpURL := s.cfg.Browser.CDPURL; cdpURL != "" {
		// Cleanup closes this connection, never the remote browser.
		ws := &cdp.WebSocket{}
		if err := ws.Connect(ctx, cdpURL, nil); err != nil {
			return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to CDP URL", err)
		}
		browser := rod.New().Client(cdp.New().Start(ws))
		if err := browser.Connect(); err != nil {
			_ = ws.Close()
			return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to CDP URL", err)
		}
		s.conn = ws
		s.browser = browser
		logger().Info("attached to browser", "controlURL", cdpURL)
		return nil
	}

	l := launcher.New().
		Headless(s.cfg.Browser.Headless).
		NoSandbox(s.cfg.Browser.NoSandbox)

	if s.cfg.Browser.BrowserBin != "" {
		l = l.Bin(s.cfg.Browser.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	logger().Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	s.launcher = l
	s.browser = browser
	return nil
}

// waitTable waits up to the configured timeout for the table element. The
// returned element is bound to ctx, not to the wait deadline.
func (s *Scraper) waitTable(ctx context.Context) (*rod.Element, error) {
	if s.page == nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "browser session is not open", nil)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.Scraper.WaitTimeout)
	defer cancel()

	el, err := s.page.Context(waitCtx).ElementX(s.cfg.TableXPath)
	if err != nil {
		return nil, categorizeError(err, "table element did not appear")
	}
	return el.Context(ctx), nil
}

// Locate finds the scroll container of the table element.
func (s *Scraper) Locate(ctx context.Context) (*dom.Scrollable, error) {
	if s.state != StateOpen && s.state != StateScraping {
		return nil, fmt.Errorf("scraper: locate called in state %s", s.state)
	}
	el, err := s.waitTable(ctx)
	if err != nil {
		return nil, err
	}
	return dom.FindScrollableParent(ctx, newRodNode(el), dom.FindOptions{
		MaxDepth: s.cfg.Scraper.MaxAncestorDepth,
	})
}

// Cleanup closes the page and, when it was launched by us, the browser.
// An attached browser keeps running; only the CDP connection is closed.
// It is safe to call more than once.
func (s *Scraper) Cleanup() {
	if s.browser == nil {
		return
	}

	if s.router != nil {
		_ = s.router.Stop()
		s.router = nil
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			logger().Warn("cleanup: failed to close page", "error", err)
		}
		s.page = nil
	}
	if s.launcher != nil {
		if err := s.browser.Close(); err != nil {
			logger().Warn("cleanup: failed to close browser", "error", err)
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logger().Warn("cleanup: failed to close CDP connection", "error", err)
		}
		s.conn = nil
	}

	s.browser = nil
	s.state = StateClosed
	logger().Info("browser session closed")
}
