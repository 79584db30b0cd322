package internshala

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	browsermemory "github.com/jobvago/scraper/internal/browser/memory"
	"github.com/jobvago/scraper/internal/scrape"
)

func testStrategy(t *testing.T, pageLimit int, params map[string]string) scrape.Strategy {
	t.Helper()
	merged := map[string]string{"page_delay_ms": "1"}
	for name, value := range params {
		merged[name] = value
	}
	strategy, err := New(scrape.SiteDescriptor{
		SiteID:    SiteID,
		PageLimit: pageLimit,
		Params:    merged,
	}, zap.NewNop())
	require.NoError(t, err)
	return strategy
}

func jobCard(index int) *browsermemory.Element {
	return &browsermemory.Element{
		Children: map[string][]*browsermemory.Element{
			titleSelector: {{
				TextValue: fmt.Sprintf("Software Engineer %d", index),
				Attrs:     map[string]string{"href": fmt.Sprintf("/job/detail/%d", index)},
			}},
			companySelector:  {{TextValue: "Acme Corp"}},
			locationSelector: {{TextValue: "Mumbai"}, {TextValue: "Pune"}},
			salarySelector:   {{TextValue: "₹ 4 - 6 LPA"}},
		},
	}
}

func listingView(cards ...*browsermemory.Element) browsermemory.PageView {
	return browsermemory.PageView{
		Elements: map[string][]*browsermemory.Element{cardSelector: cards},
	}
}

func discover(t *testing.T, strategy scrape.Strategy, page *browsermemory.Page) []scrape.JobRecord {
	t.Helper()
	session := browsermemory.NewSession(page)
	var records []scrape.JobRecord
	err := strategy.Discover(context.Background(), session, func(record scrape.JobRecord) {
		records = append(records, record)
	})
	require.NoError(t, err)
	return records
}

func TestDiscoverStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	page := &browsermemory.Page{Views: []browsermemory.PageView{
		listingView(jobCard(1), jobCard(2), jobCard(3), jobCard(4), jobCard(5)),
		listingView(jobCard(6), jobCard(7), jobCard(8), jobCard(9), jobCard(10)),
		listingView(),
	}}
	strategy := testStrategy(t, 100, nil)

	records := discover(t, strategy, page)

	assert.Len(t, records, 10)
	require.Len(t, page.Visits(), 3)
	assert.Equal(t, "https://internshala.com/jobs/page-1", page.Visits()[0])
	assert.Equal(t, "https://internshala.com/jobs/page-3", page.Visits()[2])
	assert.True(t, page.Closed())
	assert.True(t, page.FilterInstalled())
}

func TestDiscoverHonorsPageLimit(t *testing.T) {
	t.Parallel()

	// Every page has cards, so only the limit can stop pagination.
	views := make([]browsermemory.PageView, 10)
	for i := range views {
		views[i] = listingView(jobCard(i*2), jobCard(i*2+1))
	}
	page := &browsermemory.Page{Views: views}
	strategy := testStrategy(t, 3, nil)

	records := discover(t, strategy, page)

	assert.Len(t, records, 6)
	assert.Len(t, page.Visits(), 3)
	assert.True(t, page.Closed())
}

func TestDiscoverSkipsBrokenCard(t *testing.T) {
	t.Parallel()

	broken := jobCard(2)
	broken.Children[titleSelector][0].TextErr = errors.New("node detached")
	page := &browsermemory.Page{Views: []browsermemory.PageView{
		listingView(jobCard(0), jobCard(1), broken, jobCard(3), jobCard(4)),
		listingView(),
	}}
	strategy := testStrategy(t, 100, nil)

	records := discover(t, strategy, page)

	require.Len(t, records, 4)
	titles := make([]string, len(records))
	for i, record := range records {
		titles[i] = record.Title
	}
	assert.Equal(t, []string{
		"Software Engineer 0",
		"Software Engineer 1",
		"Software Engineer 3",
		"Software Engineer 4",
	}, titles)
}

func TestDiscoverResolvesRelativeURLs(t *testing.T) {
	t.Parallel()

	page := &browsermemory.Page{Views: []browsermemory.PageView{
		listingView(jobCard(7)),
		listingView(),
	}}
	strategy := testStrategy(t, 100, nil)

	records := discover(t, strategy, page)

	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "https://internshala.com/job/detail/7", record.OriginalURL)
	assert.Equal(t, "Acme Corp", record.CompanyName)
	assert.Equal(t, "Mumbai, Pune", record.Location)
	assert.Equal(t, "₹ 4 - 6 LPA", record.RawSalaryText)
	assert.Equal(t, SiteID, record.Source)
	assert.False(t, record.ScrapedAt.IsZero())
}

func TestDiscoverTreatsMissingSalaryAsOptional(t *testing.T) {
	t.Parallel()

	card := jobCard(1)
	delete(card.Children, salarySelector)
	page := &browsermemory.Page{Views: []browsermemory.PageView{
		listingView(card),
		listingView(),
	}}
	strategy := testStrategy(t, 100, nil)

	records := discover(t, strategy, page)

	require.Len(t, records, 1)
	assert.Empty(t, records[0].RawSalaryText)
}

func TestDiscoverDismissesPopup(t *testing.T) {
	t.Parallel()

	popup := &browsermemory.Element{Visible: true}
	view := listingView(jobCard(1))
	view.Elements[popupSelector] = []*browsermemory.Element{popup}
	page := &browsermemory.Page{Views: []browsermemory.PageView{
		view,
		listingView(),
	}}
	strategy := testStrategy(t, 100, nil)

	records := discover(t, strategy, page)

	assert.Len(t, records, 1)
	assert.Equal(t, 1, popup.Clicks())
}

func TestDiscoverIgnoresHiddenPopup(t *testing.T) {
	t.Parallel()

	popup := &browsermemory.Element{Visible: false}
	view := listingView(jobCard(1))
	view.Elements[popupSelector] = []*browsermemory.Element{popup}
	page := &browsermemory.Page{Views: []browsermemory.PageView{
		view,
		listingView(),
	}}
	strategy := testStrategy(t, 100, nil)

	discover(t, strategy, page)

	assert.Zero(t, popup.Clicks())
}

func TestDiscoverStopsOnNavigationFailure(t *testing.T) {
	t.Parallel()

	page := &browsermemory.Page{Views: []browsermemory.PageView{
		listingView(jobCard(1), jobCard(2)),
		{NavigateErr: errors.New("net::ERR_TIMED_OUT")},
	}}
	strategy := testStrategy(t, 100, nil)

	records := discover(t, strategy, page)

	assert.Len(t, records, 2)
	assert.Len(t, page.Visits(), 2)
	assert.True(t, page.Closed())
}

func TestDiscoverFirstPageNavigationFailureYieldsNothing(t *testing.T) {
	t.Parallel()

	page := &browsermemory.Page{Views: []browsermemory.PageView{
		{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")},
	}}
	strategy := testStrategy(t, 100, nil)

	records := discover(t, strategy, page)

	assert.Empty(t, records)
	assert.True(t, page.Closed())
}

func TestDiscoverFailsWhenPageCannotOpen(t *testing.T) {
	t.Parallel()

	session := browsermemory.NewSession(nil)
	session.NewPageErr = errors.New("browser gone")
	strategy := testStrategy(t, 100, nil)

	err := strategy.Discover(context.Background(), session, func(scrape.JobRecord) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire page")
}

func TestDiscoverStopsWhenContextCanceled(t *testing.T) {
	t.Parallel()

	page := &browsermemory.Page{Views: []browsermemory.PageView{
		listingView(jobCard(1)),
	}}
	strategy := testStrategy(t, 100, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := browsermemory.NewSession(page)
	err := strategy.Discover(ctx, session, func(scrape.JobRecord) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, page.Closed())
}

func TestDiscoverUsesCustomURLTemplate(t *testing.T) {
	t.Parallel()

	page := &browsermemory.Page{Views: []browsermemory.PageView{
		listingView(jobCard(1)),
		listingView(),
	}}
	strategy := testStrategy(t, 100, map[string]string{
		"url_template": "https://internshala.com/internships/page-%d",
	})

	records := discover(t, strategy, page)

	require.Len(t, records, 1)
	assert.Equal(t, "https://internshala.com/internships/page-1", page.Visits()[0])
	assert.Equal(t, "https://internshala.com/job/detail/1", records[0].OriginalURL)
}

func TestNewRejectsBadParams(t *testing.T) {
	t.Parallel()

	_, err := New(scrape.SiteDescriptor{
		SiteID: SiteID,
		Params: map[string]string{"url_template": "https://internshala.com/jobs"},
	}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(scrape.SiteDescriptor{
		SiteID: SiteID,
		Params: map[string]string{"nav_timeout_seconds": "soon"},
	}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(scrape.SiteDescriptor{
		SiteID: SiteID,
		Params: map[string]string{"page_delay_ms": "-5"},
	}, zap.NewNop())
	assert.Error(t, err)
}
