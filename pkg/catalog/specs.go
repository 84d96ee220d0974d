package catalog

import "github.com/morezero/fred-gateway/pkg/params"

// Legal values of FRED enum parameters.
var (
	SortOrders         = []string{"asc", "desc"}
	SearchTypes        = []string{"full_text", "series_id"}
	FilterVariables    = []string{"frequency", "units", "seasonal_adjustment"}
	Units              = []string{"lin", "chg", "ch1", "pch", "pc1", "pca", "cch", "cca", "log"}
	Frequencies        = []string{"d", "w", "bw", "m", "q", "sa", "a", "wef", "weth", "wew", "wetu", "wem", "wesu", "wesa", "bwew", "bwem"}
	AggregationMethods = []string{"avg", "sum", "eop"}
	OutputTypes        = []string{"1", "2", "3", "4"}
)

func sortOrderField() params.Field {
	return params.Field{Name: "sort_order", Kind: params.KindEnum, Values: SortOrders, Description: "Sort direction"}
}

// BrowseSpec holds the optional fields shared by every browse_type.
var BrowseSpec = params.NewSpec(
	params.Field{Name: "limit", Kind: params.KindInteger, Default: DefaultBrowseLimit, Description: "Maximum number of results"},
	params.Field{Name: "offset", Kind: params.KindInteger, Default: DefaultOffset, Description: "Result offset for paging"},
	params.Field{Name: "order_by", Kind: params.KindString, Description: "Field to order results by"},
	sortOrderField(),
)

// SearchSpec holds the search fields.
var SearchSpec = params.NewSpec(
	params.Field{Name: "search_text", Kind: params.KindString, Description: "Words to match against series titles and notes"},
	params.Field{Name: "search_type", Kind: params.KindEnum, Values: SearchTypes, Description: "full_text or series_id"},
	params.Field{Name: "tag_names", Kind: params.KindStringList, Description: "Tags the series must carry"},
	params.Field{Name: "exclude_tag_names", Kind: params.KindStringList, Description: "Tags the series must not carry"},
	params.Field{Name: "limit", Kind: params.KindInteger, Default: DefaultSearchLimit, Description: "Maximum number of results"},
	params.Field{Name: "offset", Kind: params.KindInteger, Default: DefaultOffset, Description: "Result offset for paging"},
	params.Field{Name: "order_by", Kind: params.KindString, Description: "Field to order results by"},
	sortOrderField(),
	params.Field{Name: "filter_variable", Kind: params.KindEnum, Values: FilterVariables, Description: "Attribute to filter on"},
	params.Field{Name: "filter_value", Kind: params.KindString, Description: "Value of filter_variable"},
)

// SeriesSpec holds the series observation fields. series_id is required.
var SeriesSpec = params.NewSpec(
	params.Field{Name: "series_id", Kind: params.KindString, Required: true, Description: "FRED series ID, e.g. GDP"},
	params.Field{Name: "observation_start", Kind: params.KindDate, Description: "First observation date (YYYY-MM-DD)"},
	params.Field{Name: "observation_end", Kind: params.KindDate, Description: "Last observation date (YYYY-MM-DD)"},
	params.Field{Name: "limit", Kind: params.KindInteger, Description: "Maximum number of observations"},
	params.Field{Name: "offset", Kind: params.KindInteger, Description: "Observation offset for paging"},
	sortOrderField(),
	params.Field{Name: "units", Kind: params.KindEnum, Values: Units, Description: "Data transformation"},
	params.Field{Name: "frequency", Kind: params.KindEnum, Values: Frequencies, Description: "Aggregation frequency"},
	params.Field{Name: "aggregation_method", Kind: params.KindEnum, Values: AggregationMethods, Description: "Aggregation method for frequency conversion"},
	params.Field{Name: "output_type", Kind: params.KindEnum, Values: OutputTypes, Numeric: true, Description: "1 observations by real-time period, 2 by vintage date (all), 3 by vintage date (new and revised), 4 initial release only"},
	params.Field{Name: "vintage_dates", Kind: params.KindString, Description: "Comma-separated vintage dates"},
)
