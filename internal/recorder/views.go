package recorder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/loctrack/internal/location"
)

// DefaultPerPage is the history page size when none is given.
const DefaultPerPage = 10

// ExportVersion is written to every export document.
const ExportVersion = "1.0"

// Stats summarizes the stored samples.
type Stats struct {
	Total uint64           `json:"total"`
	First *location.Sample `json:"first"`
	Last  *location.Sample `json:"last"`
}

// Stats returns the total with the oldest and newest sample.
func (r *Recorder) Stats() Stats {
	var st Stats
	st.Total = r.store.Count()
	if first, ok := r.store.First(); ok {
		st.First = &first
	}
	if last, ok := r.store.Last(); ok {
		st.Last = &last
	}
	return st
}

// Page is one page of history.
type Page struct {
	Samples    []location.Sample `json:"samples"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	Total      uint64            `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// Page returns history page n (1-based), newest first.
// A perPage of zero or less means DefaultPerPage.
func (r *Recorder) Page(page, perPage int) (Page, error) {
	if page < 1 {
		return Page{}, location.NewQueryError("page must be at least 1, got %d", page)
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	total := r.store.Count()
	samples, err := r.store.Query(perPage, (page-1)*perPage)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Samples:    samples,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int((total + uint64(perPage) - 1) / uint64(perPage)),
	}, nil
}

// Document is the export file layout.
type Document struct {
	Version      string            `json:"version"`
	ExportDate   string            `json:"exportDate"`
	TotalRecords int               `json:"totalRecords"`
	Locations    []location.Sample `json:"locations"`
}

// exportDateLayout is RFC 3339 with milliseconds, always UTC.
const exportDateLayout = "2006-01-02T15:04:05.000Z"

// Export renders up to maxRecords samples, newest first, as an indented
// JSON document. maxRecords <= 0 means store.DefaultExportLimit.
func (r *Recorder) Export(maxRecords int) ([]byte, error) {
	samples := r.store.ExportAll(maxRecords)
	doc := Document{
		Version:      ExportVersion,
		ExportDate:   r.now().UTC().Format(exportDateLayout),
		TotalRecords: len(samples),
		Locations:    samples,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// ExportFileName returns the suggested file name for an export made now.
func (r *Recorder) ExportFileName() string {
	return FileName(r.now())
}

// FileName returns "location-data-YYYY-MM-DD.json" for the UTC date of t.
func FileName(t time.Time) string {
	return "location-data-" + t.UTC().Format(time.DateOnly) + ".json"
}
