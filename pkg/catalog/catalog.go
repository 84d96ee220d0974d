// Package catalog declares the gateway's operations (browse, search,
// get_series), their parameter specs, and binds them to an Upstream.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/morezero/fred-gateway/pkg/fred"
	"github.com/morezero/fred-gateway/pkg/params"
	"github.com/morezero/fred-gateway/pkg/registry"
)

const logPrefix = "catalog:catalog"

// Operation names.
const (
	OpBrowse    = "browse"
	OpSearch    = "search"
	OpGetSeries = "get_series"
)

// Browse variants, selected by browse_type.
const (
	BrowseCategories     = "categories"
	BrowseReleases       = "releases"
	BrowseSources        = "sources"
	BrowseCategorySeries = "category_series"
	BrowseReleaseSeries  = "release_series"
)

// Defaults observed on the public surface.
const (
	DefaultBrowseLimit = 50
	DefaultSearchLimit = 25
	DefaultOffset      = 0
)

// Upstream is the data source contract the operations are bound to.
// Every method may fail with a network or HTTP-layer error.
type Upstream interface {
	SearchSeries(ctx context.Context, opts fred.SearchOptions) (json.RawMessage, error)
	GetSeriesData(ctx context.Context, opts fred.SeriesOptions) (json.RawMessage, error)
	BrowseCategories(ctx context.Context, categoryID *int) (json.RawMessage, error)
	GetCategorySeries(ctx context.Context, categoryID int, opts fred.ListOptions) (json.RawMessage, error)
	BrowseReleases(ctx context.Context, opts fred.ListOptions) (json.RawMessage, error)
	GetReleaseSeries(ctx context.Context, releaseID int, opts fred.ListOptions) (json.RawMessage, error)
	BrowseSources(ctx context.Context, opts fred.ListOptions) (json.RawMessage, error)
}

// New builds and seals a registry holding every operation bound to up.
func New(up Upstream) (*registry.Registry, error) {
	reg := registry.New()
	for _, op := range Operations(up) {
		if err := reg.Register(op); err != nil {
			return nil, fmt.Errorf("%s - %w", logPrefix, err)
		}
	}
	reg.Seal()
	return reg, nil
}

// Operations returns the operation definitions bound to up.
func Operations(up Upstream) []registry.Operation {
	return []registry.Operation{
		browseOperation(up),
		searchOperation(up),
		seriesOperation(up),
	}
}

func browseOperation(up Upstream) registry.Operation {
	return registry.Operation{
		Name:        OpBrowse,
		ToolName:    "fred_browse",
		Description: "Browse FRED categories, releases and sources, or list the series in a category or release.",
		Selector:    "browse_type",
		Params:      BrowseSpec,
		Variants: []registry.Variant{
			{
				Name:   BrowseCategories,
				Params: params.NewSpec(categoryIDField(false)),
				Handler: func(ctx context.Context, args params.Args) (any, error) {
					return up.BrowseCategories(ctx, args.IntPtr("category_id"))
				},
			},
			{
				Name: BrowseReleases,
				Handler: func(ctx context.Context, args params.Args) (any, error) {
					return up.BrowseReleases(ctx, listOptions(args))
				},
			},
			{
				Name: BrowseSources,
				Handler: func(ctx context.Context, args params.Args) (any, error) {
					return up.BrowseSources(ctx, listOptions(args))
				},
			},
			{
				Name:   BrowseCategorySeries,
				Params: params.NewSpec(categoryIDField(true)),
				Handler: func(ctx context.Context, args params.Args) (any, error) {
					id, _ := args.Int("category_id")
					return up.GetCategorySeries(ctx, id, listOptions(args))
				},
			},
			{
				Name: BrowseReleaseSeries,
				Params: params.NewSpec(params.Field{
					Name: "release_id", Kind: params.KindInteger, Required: true,
					Description: "Release ID (required for release_series)",
				}),
				Handler: func(ctx context.Context, args params.Args) (any, error) {
					id, _ := args.Int("release_id")
					return up.GetReleaseSeries(ctx, id, listOptions(args))
				},
			},
		},
	}
}

func categoryIDField(required bool) params.Field {
	desc := "Category ID; omit to browse from the root category"
	if required {
		desc = "Category ID (required for category_series)"
	}
	return params.Field{Name: "category_id", Kind: params.KindInteger, Required: required, Description: desc}
}

func searchOperation(up Upstream) registry.Operation {
	return registry.Operation{
		Name:        OpSearch,
		ToolName:    "fred_search",
		Description: "Search FRED series by text or tags, with filtering, ordering and paging.",
		Params:      SearchSpec,
		Handler: func(ctx context.Context, args params.Args) (any, error) {
			opts := fred.SearchOptions{ListOptions: listOptions(args)}
			opts.SearchText, _ = args.String("search_text")
			opts.SearchType, _ = args.String("search_type")
			opts.TagNames, _ = args.Strings("tag_names")
			opts.ExcludeTagNames, _ = args.Strings("exclude_tag_names")
			opts.FilterVariable, _ = args.String("filter_variable")
			opts.FilterValue, _ = args.String("filter_value")
			return up.SearchSeries(ctx, opts)
		},
	}
}

func seriesOperation(up Upstream) registry.Operation {
	return registry.Operation{
		Name:        OpGetSeries,
		ToolName:    "fred_get_series",
		Description: "Retrieve observations for a FRED series, with optional date range, transformation and frequency aggregation.",
		Params:      SeriesSpec,
		Handler: func(ctx context.Context, args params.Args) (any, error) {
			opts := fred.SeriesOptions{
				Limit:      args.IntPtr("limit"),
				Offset:     args.IntPtr("offset"),
				OutputType: args.IntPtr("output_type"),
			}
			opts.SeriesID, _ = args.String("series_id")
			opts.ObservationStart, _ = args.String("observation_start")
			opts.ObservationEnd, _ = args.String("observation_end")
			opts.SortOrder, _ = args.String("sort_order")
			opts.Units, _ = args.String("units")
			opts.Frequency, _ = args.String("frequency")
			opts.AggregationMethod, _ = args.String("aggregation_method")
			opts.VintageDates, _ = args.String("vintage_dates")
			return up.GetSeriesData(ctx, opts)
		},
	}
}

func listOptions(args params.Args) fred.ListOptions {
	opts := fred.ListOptions{
		Limit:  args.IntPtr("limit"),
		Offset: args.IntPtr("offset"),
	}
	opts.OrderBy, _ = args.String("order_by")
	opts.SortOrder, _ = args.String("sort_order")
	return opts
}
