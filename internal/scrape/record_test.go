package scrape

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordStampsScrapedAt(t *testing.T) {
	t.Parallel()

	record, err := NewRecord(JobRecord{
		Title:       "Backend Engineer",
		CompanyName: "Acme",
		Location:    "Mumbai",
		OriginalURL: "https://internshala.com/job/detail/123",
		Source:      "internshala",
	})
	require.NoError(t, err)
	assert.False(t, record.ScrapedAt.IsZero())
}

func TestNewRecordRejectsMissingFields(t *testing.T) {
	t.Parallel()

	valid := JobRecord{
		Title:       "Backend Engineer",
		CompanyName: "Acme",
		Location:    "Mumbai",
		OriginalURL: "https://internshala.com/job/detail/123",
		Source:      "internshala",
	}

	for name, mutate := range map[string]func(*JobRecord){
		"title":    func(r *JobRecord) { r.Title = "  " },
		"company":  func(r *JobRecord) { r.CompanyName = "" },
		"location": func(r *JobRecord) { r.Location = "" },
		"source":   func(r *JobRecord) { r.Source = "" },
	} {
		rec := valid
		mutate(&rec)
		_, err := NewRecord(rec)
		assert.Error(t, err, "expected rejection for missing %s", name)
	}
}

func TestNewRecordRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := NewRecord(JobRecord{
		Title:       "Backend Engineer",
		CompanyName: "Acme",
		Location:    "Mumbai",
		OriginalURL: "/job/detail/123",
		Source:      "internshala",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not absolute")
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	resolved, err := ResolveURL("https://internshala.com/jobs/page-1", "/job/detail/123")
	require.NoError(t, err)
	assert.Equal(t, "https://internshala.com/job/detail/123", resolved)

	absolute, err := ResolveURL("https://internshala.com/jobs/page-1", "https://other.example/x")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example/x", absolute)

	_, err = ResolveURL("not a url\x7f", "/x")
	assert.Error(t, err)
}

func TestRecordRoundTripPreservesFields(t *testing.T) {
	t.Parallel()

	posted := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	scraped := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	record, err := NewRecord(JobRecord{
		Title:         "Data Engineer",
		CompanyName:   "Widgets Ltd",
		Location:      "Mumbai, Delhi",
		RawSalaryText: "₹ 5 - 7 LPA",
		OriginalURL:   "https://internshala.com/job/detail/456",
		Description:   "Build pipelines.",
		Skills:        []string{"go", "sql"},
		PostedDate:    &posted,
		ScrapedAt:     scraped,
		Source:        "internshala",
	})
	require.NoError(t, err)

	data, err := record.Marshal()
	require.NoError(t, err)

	var decoded JobRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, record, decoded)
}

func TestRecordAbsentOptionalsStayAbsent(t *testing.T) {
	t.Parallel()

	record, err := NewRecord(JobRecord{
		Title:       "Analyst",
		CompanyName: "Acme",
		Location:    "Pune",
		OriginalURL: "https://internshala.com/job/detail/789",
		Source:      "internshala",
	})
	require.NoError(t, err)

	data, err := record.Marshal()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"raw_salary_text", "description", "skills", "posted_date"} {
		_, present := raw[key]
		assert.False(t, present, "optional field %q should be omitted", key)
	}

	var decoded JobRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded.RawSalaryText)
	assert.Nil(t, decoded.Skills)
	assert.Nil(t, decoded.PostedDate)
}
