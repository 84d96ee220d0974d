// Package fred is a client for the FRED (Federal Reserve Economic Data)
// REST API. Responses are returned as raw JSON documents.
package fred

import "fmt"

// ListOptions are the paging and ordering options shared by list endpoints.
type ListOptions struct {
	Limit     *int
	Offset    *int
	OrderBy   string
	SortOrder string
}

// SearchOptions select series by text or by tags.
type SearchOptions struct {
	SearchText      string
	SearchType      string
	TagNames        []string
	ExcludeTagNames []string
	FilterVariable  string
	FilterValue     string
	ListOptions
}

// SeriesOptions select observations of one series.
type SeriesOptions struct {
	SeriesID          string
	ObservationStart  string
	ObservationEnd    string
	Limit             *int
	Offset            *int
	SortOrder         string
	Units             string
	Frequency         string
	AggregationMethod string
	OutputType        *int
	VintageDates      string
}

// APIError is a non-2xx answer from the FRED API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("FRED API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("FRED API error %d: %s", e.StatusCode, e.Message)
}
