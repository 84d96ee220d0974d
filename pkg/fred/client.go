package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const logPrefix = "fred:client"

// DefaultBaseURL is the public FRED API root.
const DefaultBaseURL = "https://api.stlouisfed.org/fred"

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 32 << 20

// Options configures a Client. Zero values use defaults.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RateLimit  float64 // requests per second; <= 0 disables limiting
	RateBurst  int
	HTTPClient *http.Client
}

// Client calls the FRED API. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &Client{baseURL: base, apiKey: opts.APIKey, http: hc, limiter: limiter}
}

// SearchSeries runs a full-text search, or a tag search when only tags are given.
func (c *Client) SearchSeries(ctx context.Context, opts SearchOptions) (json.RawMessage, error) {
	q := url.Values{}
	setList(q, opts.ListOptions)
	setJoined(q, "exclude_tag_names", opts.ExcludeTagNames)

	if opts.SearchText == "" && len(opts.TagNames) > 0 {
		setJoined(q, "tag_names", opts.TagNames)
		return c.get(ctx, "tags/series", q)
	}

	set(q, "search_text", opts.SearchText)
	set(q, "search_type", opts.SearchType)
	setJoined(q, "tag_names", opts.TagNames)
	set(q, "filter_variable", opts.FilterVariable)
	set(q, "filter_value", opts.FilterValue)
	return c.get(ctx, "series/search", q)
}

// GetSeriesData returns observations for a series.
func (c *Client) GetSeriesData(ctx context.Context, opts SeriesOptions) (json.RawMessage, error) {
	if opts.SeriesID == "" {
		return nil, errors.New("series_id is required")
	}
	q := url.Values{}
	q.Set("series_id", opts.SeriesID)
	set(q, "observation_start", opts.ObservationStart)
	set(q, "observation_end", opts.ObservationEnd)
	setInt(q, "limit", opts.Limit)
	setInt(q, "offset", opts.Offset)
	set(q, "sort_order", opts.SortOrder)
	set(q, "units", opts.Units)
	set(q, "frequency", opts.Frequency)
	set(q, "aggregation_method", opts.AggregationMethod)
	setInt(q, "output_type", opts.OutputType)
	set(q, "vintage_dates", opts.VintageDates)
	return c.get(ctx, "series/observations", q)
}

// BrowseCategories lists the children of a category; nil means the root.
func (c *Client) BrowseCategories(ctx context.Context, categoryID *int) (json.RawMessage, error) {
	q := url.Values{}
	id := 0
	if categoryID != nil {
		id = *categoryID
	}
	q.Set("category_id", strconv.Itoa(id))
	return c.get(ctx, "category/children", q)
}

// GetCategorySeries lists the series in a category.
func (c *Client) GetCategorySeries(ctx context.Context, categoryID int, opts ListOptions) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("category_id", strconv.Itoa(categoryID))
	setList(q, opts)
	return c.get(ctx, "category/series", q)
}

// BrowseReleases lists releases.
func (c *Client) BrowseReleases(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	q := url.Values{}
	setList(q, opts)
	return c.get(ctx, "releases", q)
}

// GetReleaseSeries lists the series in a release.
func (c *Client) GetReleaseSeries(ctx context.Context, releaseID int, opts ListOptions) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("release_id", strconv.Itoa(releaseID))
	setList(q, opts)
	return c.get(ctx, "release/series", q)
}

// BrowseSources lists data sources.
func (c *Client) BrowseSources(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	q := url.Values{}
	setList(q, opts)
	return c.get(ctx, "sources", q)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	q.Set("file_type", "json")
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + "/" + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s - build request: %w", logPrefix, err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug(fmt.Sprintf("%s - GET %s", logPrefix, path))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FRED request failed: %w", redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("FRED response read failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("FRED returned invalid JSON for %s", path)
	}
	return json.RawMessage(body), nil
}

// errorMessage extracts error_message from a FRED error document.
func errorMessage(body []byte) string {
	var doc struct {
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && doc.ErrorMessage != "" {
		return doc.ErrorMessage
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// redact strips the API key from transport errors, which quote the URL.
func redact(err error, apiKey string) error {
	if apiKey == "" || !strings.Contains(err.Error(), apiKey) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), apiKey, "REDACTED"))
}

func set(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value *int) {
	if value != nil {
		q.Set(key, strconv.Itoa(*value))
	}
}

func setJoined(q url.Values, key string, values []string) {
	if len(values) > 0 {
		q.Set(key, strings.Join(values, ";"))
	}
}

func setList(q url.Values, opts ListOptions) {
	setInt(q, "limit", opts.Limit)
	setInt(q, "offset", opts.Offset)
	set(q, "order_by", opts.OrderBy)
	set(q, "sort_order", opts.SortOrder)
}
