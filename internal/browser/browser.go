// Package browser defines the interfaces for the browser automation
// collaborator. The abstraction keeps site strategies independent of a
// specific engine; the chromedp implementation lives alongside, and
// the memory subpackage provides a scripted double for tests.
package browser

import (
	"context"
	"time"
)

// ResourceFilter decides whether a sub-resource request should be blocked,
// given its resource type ("Image", "Stylesheet", ...). Returning true
// blocks the request.
type ResourceFilter func(resourceType string) bool

// BlockHeavySubresources blocks images, stylesheets, fonts and media.
// Strategies install it once per page to cut load time and bandwidth.
func BlockHeavySubresources(resourceType string) bool {
	switch resourceType {
	case "Image", "Stylesheet", "Font", "Media":
		return true
	}
	return false
}

// Session is a running browser from which pages (tabs) are acquired.
type Session interface {
	// NewPage opens a fresh page. The caller owns the page exclusively
	// and must close it on every exit path.
	NewPage() (Page, error)

	// Close shuts the browser down. Pages must not be used afterwards.
	Close() error
}

// Page is a single browser tab.
type Page interface {
	// Navigate loads url and waits for the DOM to be ready, bounded by
	// timeout. The context cancels the navigation early.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// InstallResourceFilter registers filter for every subsequent
	// navigation on this page.
	InstallResourceFilter(filter ResourceFilter) error

	// WaitVisible reports whether an element matching selector becomes
	// visible within timeout.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool

	// Locate returns all elements currently matching selector. A selector
	// matching nothing yields an empty set, not an error.
	Locate(ctx context.Context, selector string) ([]Element, error)

	// Close releases the tab.
	Close() error
}

// Element is a handle to a DOM node on a page.
type Element interface {
	// Text returns the rendered text content of the element.
	Text(ctx context.Context) (string, error)

	// Attribute returns the value of the named attribute and whether it
	// is present.
	Attribute(name string) (string, bool)

	// IsVisible reports whether the element becomes visible within timeout.
	IsVisible(ctx context.Context, timeout time.Duration) bool

	// Click clicks the element.
	Click(ctx context.Context) error

	// Locate returns the descendant elements matching selector.
	Locate(ctx context.Context, selector string) ([]Element, error)
}
