package scrape

import (
	"context"

	"github.com/jobvago/scraper/internal/browser"
)

// Strategy is the per-site discovery capability. One instance exists per
// configured site and owns that site's pagination policy.
type Strategy interface {
	// Site returns the site identifier the strategy discovers for.
	Site() string

	// Discover drives the site's pagination state machine, calling yield
	// for each record as soon as it is extracted. The produced sequence
	// is finite and not restartable; a fresh call begins at page one.
	//
	// Navigation failures and exhausted results end discovery quietly;
	// only errors that make the whole site unusable (for example a page
	// could not be acquired from the session) are returned.
	Discover(ctx context.Context, session browser.Session, yield func(JobRecord)) error
}
