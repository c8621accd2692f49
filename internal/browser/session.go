package browser

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/durapage/durapage/internal/retry"
)

const (
	defaultInteractTimeout = 10 * time.Second

	// action-chain interactions drive the page mouse and keyboard and get
	// extra attempts on top of the configured policy
	actionAttemptsBonus = 2
)

// Session is a stealth browser tab with retry-wrapped interaction primitives.
// All element lookup and actions are delegated to the rod driver.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	tab      *rod.Page
	logger   *slog.Logger
	policy   retry.Policy
}

func NewSession(b *rod.Browser, l *launcher.Launcher, policy retry.Policy, log *slog.Logger) *Session {
	return &Session{
		browser:  b,
		launcher: l,
		logger:   log,
		policy:   policy,
	}
}

// Tab returns the session tab, opening it with the stealth patches applied on
// first use.
func (s *Session) Tab() (*rod.Page, error) {
	if s.tab != nil {
		return s.tab, nil
	}
	tab, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("failure creating stealth tab: %w", err)
	}
	s.tab = tab
	return tab, nil
}

type interactOptions struct {
	element *rod.Element
	timeout time.Duration
}

type Option func(*interactOptions)

// WithElement interacts with a pre-resolved element instead of looking the
// selector up.
func WithElement(element *rod.Element) Option {
	return func(options *interactOptions) {
		options.element = element
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(options *interactOptions) {
		options.timeout = timeout
	}
}

func newInteractOptions(opts ...Option) interactOptions {
	options := interactOptions{
		timeout: defaultInteractTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (s *Session) actionPolicy() retry.Policy {
	policy := s.policy
	policy.Attempts += actionAttemptsBonus
	return policy
}

// Click looks the selector up and clicks it, retrying the whole lookup+action
// on failure. The driver failure is propagated once retries exhaust.
func (s *Session) Click(selector string, opts ...Option) error {
	options := newInteractOptions(opts...)
	return retry.Do(s.browser.GetContext(), s.policy, s.logger, fmt.Sprintf("click %s", selector), func() error {
		element, err := s.resolveElement(selector, options)
		if err != nil {
			return err
		}
		if err = element.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("failure clicking on element %s: %w", selector, err)
		}
		s.logger.Info("clicked element", slog.String("selector", selector))
		return nil
	})
}

// Input clears the element matched by the selector and types text into it,
// retrying the whole lookup+action on failure.
func (s *Session) Input(selector, text string, opts ...Option) error {
	options := newInteractOptions(opts...)
	return retry.Do(s.browser.GetContext(), s.policy, s.logger, fmt.Sprintf("input %s", selector), func() error {
		element, err := s.resolveElement(selector, options)
		if err != nil {
			return err
		}
		if err = element.SelectAllText(); err != nil {
			return fmt.Errorf("failure selecting text of element %s: %w", selector, err)
		}
		if err = element.Input(text); err != nil {
			return fmt.Errorf("failure inputting value in element %s: %w", selector, err)
		}
		s.logger.Info("inputted text into element", slog.String("selector", selector))
		return nil
	})
}

// ActionClick clicks the element through the page mouse after hovering it.
func (s *Session) ActionClick(selector string, opts ...Option) error {
	options := newInteractOptions(opts...)
	return retry.Do(s.browser.GetContext(), s.actionPolicy(), s.logger, fmt.Sprintf("action click %s", selector), func() error {
		if err := s.mouseClick(selector, options); err != nil {
			return err
		}
		s.logger.Info("clicked element through action chain", slog.String("selector", selector))
		return nil
	})
}

// ActionInput clicks the element through the page mouse and types the text
// through the page input domain.
func (s *Session) ActionInput(selector, text string, opts ...Option) error {
	options := newInteractOptions(opts...)
	return retry.Do(s.browser.GetContext(), s.actionPolicy(), s.logger, fmt.Sprintf("action input %s", selector), func() error {
		if err := s.mouseClick(selector, options); err != nil {
			return err
		}
		tab, err := s.Tab()
		if err != nil {
			return err
		}
		if err = tab.InsertText(text); err != nil {
			return fmt.Errorf("failure inserting text into element %s: %w", selector, err)
		}
		s.logger.Info("inputted text into element through action chain", slog.String("selector", selector))
		return nil
	})
}

func (s *Session) mouseClick(selector string, options interactOptions) error {
	element, err := s.resolveElement(selector, options)
	if err != nil {
		return err
	}
	if err = element.Hover(); err != nil {
		return fmt.Errorf("failure hovering over element %s: %w", selector, err)
	}
	tab, err := s.Tab()
	if err != nil {
		return err
	}
	if err = tab.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failure clicking mouse on element %s: %w", selector, err)
	}
	return nil
}

func (s *Session) resolveElement(selector string, options interactOptions) (*rod.Element, error) {
	if options.element != nil {
		return options.element, nil
	}
	tab, err := s.Tab()
	if err != nil {
		return nil, err
	}
	element, err := tab.Timeout(options.timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("failure finding element %s: %w", selector, err)
	}
	return element.CancelTimeout(), nil
}

func (s *Session) Navigate(url string) error {
	tab, err := s.Tab()
	if err != nil {
		return err
	}
	if err = tab.Navigate(url); err != nil {
		return fmt.Errorf("failure navigating to url %s: %w", url, err)
	}
	if err = tab.WaitLoad(); err != nil {
		return fmt.Errorf("failure waiting for tab %s to load: %w", url, err)
	}
	return nil
}

func (s *Session) SetCookies(cookies []*proto.NetworkCookieParam) error {
	if err := s.browser.SetCookies(cookies); err != nil {
		return fmt.Errorf("failure setting browser cookies: %w", err)
	}
	return nil
}

// ClearCookies wipes the entire browser cookie store.
func (s *Session) ClearCookies() error {
	if err := s.browser.SetCookies(nil); err != nil {
		return fmt.Errorf("failure clearing browser cookies: %w", err)
	}
	return nil
}

// HTMLAttribute scrapes an attribute value from the current page HTML.
func (s *Session) HTMLAttribute(selector, attribute string) (*string, error) {
	html, err := s.pageHTML()
	if err != nil {
		return nil, err
	}
	return selectorAttributeScrape(strings.NewReader(html), selector, attribute)
}

// HasSelector reports whether the current page HTML contains the selector.
func (s *Session) HasSelector(selector string) (bool, error) {
	html, err := s.pageHTML()
	if err != nil {
		return false, err
	}
	return selectorExists(strings.NewReader(html), selector)
}

func (s *Session) pageHTML() (string, error) {
	tab, err := s.Tab()
	if err != nil {
		return "", err
	}
	html, err := tab.HTML()
	if err != nil {
		return "", fmt.Errorf("failure retrieving tab html: %w", err)
	}
	return html, nil
}

func (s *Session) Close() error {
	if s.launcher != nil {
		defer s.launcher.Cleanup()
	}
	if err := s.browser.Close(); err != nil {
		return fmt.Errorf("failure closing browser: %w", err)
	}
	return nil
}

func selectorExists(body io.Reader, selector string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return false, fmt.Errorf("failure creating goquery document from tab html: %w", err)
	}
	return doc.Find(selector).Length() > 0, nil
}

func selectorAttributeScrape(body io.Reader, selector, attribute string) (*string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failure creating goquery document from tab html: %w", err)
	}
	value, ok := doc.Find(selector).Attr(attribute)
	if !ok {
		return nil, fmt.Errorf("failure scraping tab html for selector %s and attribute %s", selector, attribute)
	}
	return &value, nil
}
