// Package scrape contains the discovery-and-dispatch pipeline: the job
// record entity, the per-site strategy contract, the site registry and
// factory, the size-bounded batcher, and the multi-site orchestrator.
package scrape

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// JobRecord is one normalized job posting as discovered on a site.
// Title, CompanyName, Location, OriginalURL and Source are always populated;
// the remaining fields are optional and omitted from JSON when absent.
// Records are passed by value and never mutated after construction.
type JobRecord struct {
	Title         string     `json:"title"`
	CompanyName   string     `json:"company_name"`
	Location      string     `json:"location"`
	RawSalaryText string     `json:"raw_salary_text,omitempty"`
	OriginalURL   string     `json:"original_url"`
	Description   string     `json:"description,omitempty"`
	Skills        []string   `json:"skills,omitempty"`
	PostedDate    *time.Time `json:"posted_date,omitempty"`
	ScrapedAt     time.Time  `json:"scraped_at"`
	Source        string     `json:"source"`
}

// NewRecord validates the required fields, stamps ScrapedAt if unset, and
// returns the record. OriginalURL must already be absolute; relative hrefs
// are resolved with ResolveURL before a record is constructed.
func NewRecord(rec JobRecord) (JobRecord, error) {
	if strings.TrimSpace(rec.Title) == "" {
		return JobRecord{}, fmt.Errorf("job record: title is empty")
	}
	if strings.TrimSpace(rec.CompanyName) == "" {
		return JobRecord{}, fmt.Errorf("job record: company name is empty")
	}
	if strings.TrimSpace(rec.Location) == "" {
		return JobRecord{}, fmt.Errorf("job record: location is empty")
	}
	if rec.Source == "" {
		return JobRecord{}, fmt.Errorf("job record: source is empty")
	}
	parsed, err := url.Parse(rec.OriginalURL)
	if err != nil {
		return JobRecord{}, fmt.Errorf("job record: parse original url: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return JobRecord{}, fmt.Errorf("job record: original url %q is not absolute", rec.OriginalURL)
	}
	if rec.ScrapedAt.IsZero() {
		rec.ScrapedAt = time.Now().UTC()
	}
	return rec, nil
}

// ResolveURL resolves href against base, returning an absolute URL.
// An already-absolute href is returned unchanged.
func ResolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	resolved := baseURL.ResolveReference(ref)
	if !resolved.IsAbs() || resolved.Host == "" {
		return "", fmt.Errorf("resolved url %q is not absolute", resolved.String())
	}
	return resolved.String(), nil
}

// Marshal serializes the record to its wire form, one JSON object per
// queued message.
func (r JobRecord) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal job record: %w", err)
	}
	return data, nil
}
