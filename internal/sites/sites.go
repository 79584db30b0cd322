// Package sites binds site identifiers to their strategy constructors.
// Adding a site means adding a descriptor here plus its strategy package;
// the orchestrator never changes.
package sites

import (
	"github.com/jobvago/scraper/internal/scrape"
	"github.com/jobvago/scraper/internal/sites/internshala"
)

// Descriptors returns the static site table in its fixed run order.
func Descriptors() []scrape.SiteDescriptor {
	return []scrape.SiteDescriptor{
		{
			SiteID:    internshala.SiteID,
			PageLimit: 500,
			New:       internshala.New,
		},
	}
}
