package publish

const (
	TimeseriesFile = "product_space_timeseries.json"
	TopOverallFile = "top_products_overall.json"
	YearTotalsFile = "year_totals.json"
	LookupFile     = "product_lookup.json"

	DefaultTopOverall = 1000
	ValueUnit         = "thousand USD"
	QuantityUnit      = "metric tons"
)

type Meta struct {
	TopNPerYear *int    `json:"top_n_per_year"`
	MinValue    float64 `json:"min_value_kusd"`
	Units       Units   `json:"units"`
	Source      string  `json:"source"`
	CodesFile   string  `json:"codes_file"`
}

type Units struct {
	Value    string `json:"v"`
	Quantity string `json:"q"`
}

type Timeseries struct {
	Meta  Meta        `json:"meta"`
	Years []int       `json:"years"`
	Data  []YearBlock `json:"data"`
}

type YearBlock struct {
	Year     int            `json:"year"`
	Products []ProductEntry `json:"products"`
}

type ProductEntry struct {
	Code     int      `json:"k"`
	HS6      string   `json:"hs6"`
	Name     string   `json:"name"`
	Value    float64  `json:"v"`
	Quantity *float64 `json:"q"`
}

type OverallEntry struct {
	Code  int     `json:"k"`
	HS6   string  `json:"hs6"`
	Name  string  `json:"name"`
	Value float64 `json:"value_kusd"`
}

type YearTotalEntry struct {
	Year  int     `json:"year"`
	Total float64 `json:"total_value_kusd"`
}

type LookupEntry struct {
	Code         int     `json:"k"`
	HS6          string  `json:"hs6"`
	Name         string  `json:"name"`
	YearsPresent int     `json:"years_present"`
	Total        float64 `json:"total_value_kusd"`
	Average      float64 `json:"avg_value_kusd"`
	Max          float64 `json:"max_value_kusd"`
}

// Documents are the four independent outputs of one run.
type Documents struct {
	Timeseries Timeseries
	TopOverall []OverallEntry
	YearTotals []YearTotalEntry
	Lookup     []LookupEntry
}
