package scrape

import "fmt"

// ConfigurationError indicates an unknown site id or a missing required
// configuration value. It aborts the affected operation immediately.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %q", e.Key)
	}
	return fmt.Sprintf("configuration error: %q: %s", e.Key, e.Reason)
}

// StrategyLoadError indicates a site's strategy implementation could not be
// constructed. It is caught per site; the run continues with the next site.
type StrategyLoadError struct {
	SiteID string
	Err    error
}

func (e *StrategyLoadError) Error() string {
	return fmt.Sprintf("load strategy for site %q: %v", e.SiteID, e.Err)
}

func (e *StrategyLoadError) Unwrap() error { return e.Err }
