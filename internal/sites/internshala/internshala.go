// Package internshala implements the discovery strategy for internshala.com.
package internshala

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobvago/scraper/internal/browser"
	"github.com/jobvago/scraper/internal/scrape"
)

// SiteID is the registry key for this strategy.
const SiteID = "internshala"

const (
	defaultURLTemplate = "https://internshala.com/jobs/page-%d"

	cardSelector     = "div[internshipid]"
	titleSelector    = ".job-internship-name a"
	companySelector  = "p.company-name"
	locationSelector = "p.locations a"
	salarySelector   = ".row-1-item span.desktop"
	popupSelector    = "#close_popup"
)

const (
	defaultNavTimeout = 40 * time.Second
	defaultCardWait   = 10 * time.Second
	defaultPopupWait  = 2 * time.Second
	defaultPageDelay  = time.Second
)

// Strategy paginates internshala's job listing, extracting one record per
// job card. Knobs are read from the descriptor's parameter map:
// url_template, nav_timeout_seconds, card_wait_seconds, page_delay_ms.
type Strategy struct {
	siteID      string
	urlTemplate string
	pageLimit   int
	navTimeout  time.Duration
	cardWait    time.Duration
	popupWait   time.Duration
	pageDelay   time.Duration
	logger      *zap.Logger
}

// New constructs the strategy from its descriptor.
func New(desc scrape.SiteDescriptor, logger *zap.Logger) (scrape.Strategy, error) {
	template := desc.Param("url_template", defaultURLTemplate)
	if !strings.Contains(template, "%d") {
		return nil, fmt.Errorf("url template %q has no page placeholder", template)
	}
	s := &Strategy{
		siteID:      desc.SiteID,
		urlTemplate: template,
		pageLimit:   desc.PageLimit,
		navTimeout:  defaultNavTimeout,
		cardWait:    defaultCardWait,
		popupWait:   defaultPopupWait,
		pageDelay:   defaultPageDelay,
		logger:      logger,
	}
	if err := applyDurationParam(desc, "nav_timeout_seconds", time.Second, &s.navTimeout); err != nil {
		return nil, err
	}
	if err := applyDurationParam(desc, "card_wait_seconds", time.Second, &s.cardWait); err != nil {
		return nil, err
	}
	if err := applyDurationParam(desc, "page_delay_ms", time.Millisecond, &s.pageDelay); err != nil {
		return nil, err
	}
	return s, nil
}

// Site returns the site identifier.
func (s *Strategy) Site() string { return s.siteID }

// Discover walks the listing page by page. Pagination ends when a page
// yields zero valid cards, when navigation fails, or when the page limit
// is reached. The single page acquired from the session is closed on
// every exit path.
func (s *Strategy) Discover(ctx context.Context, session browser.Session, yield func(scrape.JobRecord)) error {
	page, err := session.NewPage()
	if err != nil {
		return fmt.Errorf("acquire page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			s.logger.Warn("failed to close page", zap.Error(cerr))
		}
	}()

	if err := page.InstallResourceFilter(browser.BlockHeavySubresources); err != nil {
		s.logger.Warn("failed to install resource filter", zap.Error(err))
	}

	total := 0
	for pageNumber := 1; pageNumber <= s.pageLimit; pageNumber++ {
		if ctx.Err() != nil {
			return fmt.Errorf("discovery canceled: %w", ctx.Err())
		}
		targetURL := fmt.Sprintf(s.urlTemplate, pageNumber)
		s.logger.Info("navigating",
			zap.Int("page", pageNumber),
			zap.String("url", targetURL),
		)
		if err := page.Navigate(ctx, targetURL, s.navTimeout); err != nil {
			// Treated as end of results, not a site failure.
			s.logger.Warn("navigation failed; stopping discovery",
				zap.Int("page", pageNumber),
				zap.Error(err),
			)
			return nil
		}

		s.dismissPopup(ctx, page)

		extracted := s.extractPage(ctx, page, yield)
		if extracted == 0 {
			s.logger.Info("no valid cards on page; assuming end of results",
				zap.Int("page", pageNumber),
			)
			return nil
		}
		total += extracted
		s.logger.Info("page extracted",
			zap.Int("page", pageNumber),
			zap.Int("records", extracted),
			zap.Int("total", total),
		)

		if pageNumber < s.pageLimit {
			if err := sleep(ctx, s.pageDelay); err != nil {
				return fmt.Errorf("discovery canceled: %w", err)
			}
		}
	}
	s.logger.Info("reached page limit; stopping discovery",
		zap.Int("page_limit", s.pageLimit),
		zap.Int("total", total),
	)
	return nil
}

// extractPage pulls every job card off the current page. A card whose
// extraction fails is skipped; the rest of the page is still processed.
func (s *Strategy) extractPage(ctx context.Context, page browser.Page, yield func(scrape.JobRecord)) int {
	if !page.WaitVisible(ctx, cardSelector, s.cardWait) {
		return 0
	}
	cards, err := page.Locate(ctx, cardSelector)
	if err != nil {
		s.logger.Warn("failed to locate job cards", zap.Error(err))
		return 0
	}
	s.logger.Debug("found candidate cards", zap.Int("count", len(cards)))

	extracted := 0
	for i, card := range cards {
		record, err := s.extractCard(ctx, card)
		if err != nil {
			s.logger.Debug("skipping card",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		yield(record)
		extracted++
	}
	return extracted
}

func (s *Strategy) extractCard(ctx context.Context, card browser.Element) (scrape.JobRecord, error) {
	titleLink, err := firstElement(ctx, card, titleSelector)
	if err != nil {
		return scrape.JobRecord{}, err
	}
	title, err := titleLink.Text(ctx)
	if err != nil {
		return scrape.JobRecord{}, fmt.Errorf("title text: %w", err)
	}
	href, ok := titleLink.Attribute("href")
	if !ok || strings.TrimSpace(href) == "" {
		return scrape.JobRecord{}, fmt.Errorf("title link has no href")
	}
	originalURL, err := scrape.ResolveURL(s.baseURL(), href)
	if err != nil {
		return scrape.JobRecord{}, err
	}

	companyEl, err := firstElement(ctx, card, companySelector)
	if err != nil {
		return scrape.JobRecord{}, err
	}
	company, err := companyEl.Text(ctx)
	if err != nil {
		return scrape.JobRecord{}, fmt.Errorf("company text: %w", err)
	}

	location, err := s.joinedLocations(ctx, card)
	if err != nil {
		return scrape.JobRecord{}, err
	}

	// Salary is optional; its absence never fails the card.
	salary := ""
	if salaryEls, lerr := card.Locate(ctx, salarySelector); lerr == nil && len(salaryEls) > 0 {
		if text, terr := salaryEls[0].Text(ctx); terr == nil {
			salary = strings.TrimSpace(text)
		}
	}

	return scrape.NewRecord(scrape.JobRecord{
		Title:         strings.TrimSpace(title),
		CompanyName:   strings.TrimSpace(company),
		Location:      location,
		RawSalaryText: salary,
		OriginalURL:   originalURL,
		Source:        s.siteID,
	})
}

func (s *Strategy) joinedLocations(ctx context.Context, card browser.Element) (string, error) {
	elements, err := card.Locate(ctx, locationSelector)
	if err != nil {
		return "", fmt.Errorf("locate locations: %w", err)
	}
	parts := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			return "", fmt.Errorf("location text: %w", err)
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no locations on card")
	}
	return strings.Join(parts, ", "), nil
}

// dismissPopup closes the newsletter overlay when present. Its absence is
// not an error.
func (s *Strategy) dismissPopup(ctx context.Context, page browser.Page) {
	elements, err := page.Locate(ctx, popupSelector)
	if err != nil || len(elements) == 0 {
		return
	}
	button := elements[0]
	if !button.IsVisible(ctx, s.popupWait) {
		return
	}
	if err := button.Click(ctx); err != nil {
		s.logger.Debug("failed to dismiss popup", zap.Error(err))
		return
	}
	_ = sleep(ctx, 500*time.Millisecond)
}

func (s *Strategy) baseURL() string {
	// The listing template carries the scheme and host relative hrefs
	// resolve against.
	return fmt.Sprintf(s.urlTemplate, 1)
}

func firstElement(ctx context.Context, scope browser.Element, selector string) (browser.Element, error) {
	elements, err := scope.Locate(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", selector, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return elements[0], nil
}

func applyDurationParam(desc scrape.SiteDescriptor, name string, unit time.Duration, target *time.Duration) error {
	raw, ok := desc.Params[name]
	if !ok || raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fmt.Errorf("parameter %q must be a non-negative integer, got %q", name, raw)
	}
	*target = time.Duration(value) * unit
	return nil
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
