// Package memory provides a scripted in-memory browser for tests. Each
// navigation on a Page consumes the next PageView from its script, so a
// simulated site is expressed as the sequence of pages a strategy will see.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jobvago/scraper/internal/browser"
)

// Element is a scripted DOM element.
type Element struct {
	TextValue string
	TextErr   error
	Attrs     map[string]string
	Visible   bool
	ClickErr  error
	Children  map[string][]*Element

	mu     sync.Mutex
	clicks int
}

// Text returns the scripted text or error.
func (e *Element) Text(_ context.Context) (string, error) {
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.TextValue, nil
}

// Attribute looks up a scripted attribute.
func (e *Element) Attribute(name string) (string, bool) {
	value, ok := e.Attrs[name]
	return value, ok
}

// IsVisible returns the scripted visibility flag.
func (e *Element) IsVisible(_ context.Context, _ time.Duration) bool {
	return e.Visible
}

// Click records the click and returns the scripted error.
func (e *Element) Click(_ context.Context) error {
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	return e.ClickErr
}

// Locate returns the scripted children for selector.
func (e *Element) Locate(_ context.Context, selector string) ([]browser.Element, error) {
	return wrap(e.Children[selector]), nil
}

// Clicks reports how many times the element was clicked.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// PageView is what one navigation renders: elements per selector, or a
// navigation failure.
type PageView struct {
	NavigateErr error
	Elements    map[string][]*Element
}

// Page replays a script of PageViews, one per Navigate call. Navigations
// beyond the script render empty pages.
type Page struct {
	Views []PageView

	mu              sync.Mutex
	visits          []string
	filterInstalled bool
	closed          bool
}

// Navigate records the visit and fails if the current view says so.
func (p *Page) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	p.visits = append(p.visits, url)
	view := p.currentLocked()
	p.mu.Unlock()
	return view.NavigateErr
}

// InstallResourceFilter records that a filter was installed.
func (p *Page) InstallResourceFilter(_ browser.ResourceFilter) error {
	p.mu.Lock()
	p.filterInstalled = true
	p.mu.Unlock()
	return nil
}

// WaitVisible reports whether the current view has a match for selector.
func (p *Page) WaitVisible(_ context.Context, selector string, _ time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.currentLocked().Elements[selector]) > 0
}

// Locate returns the current view's elements for selector.
func (p *Page) Locate(_ context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return wrap(p.currentLocked().Elements[selector]), nil
}

// Close marks the page closed.
func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Visits returns the navigated URLs in order.
func (p *Page) Visits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visits...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// FilterInstalled reports whether a resource filter was installed.
func (p *Page) FilterInstalled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filterInstalled
}

func (p *Page) currentLocked() PageView {
	idx := len(p.visits) - 1
	if idx < 0 || idx >= len(p.Views) {
		return PageView{}
	}
	return p.Views[idx]
}

// Session hands out scripted pages.
type Session struct {
	NewPageErr error
	Page       *Page

	mu         sync.Mutex
	pagesMade  int
	closeCalls int
}

// NewSession returns a Session serving the given page.
func NewSession(page *Page) *Session {
	return &Session{Page: page}
}

// NewPage returns the scripted page or error.
func (s *Session) NewPage() (browser.Page, error) {
	if s.NewPageErr != nil {
		return nil, s.NewPageErr
	}
	s.mu.Lock()
	s.pagesMade++
	s.mu.Unlock()
	if s.Page == nil {
		s.Page = &Page{}
	}
	return s.Page, nil
}

// Close records the session shutdown.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()
	return nil
}

// PagesOpened reports how many pages were acquired from the session.
func (s *Session) PagesOpened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagesMade
}

// CloseCalls reports how many times the session was closed.
func (s *Session) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func wrap(elements []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(elements))
	for _, e := range elements {
		out = append(out, e)
	}
	return out
}
