package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultTender ResultType = "tender"
	ResultMDA    ResultType = "mda"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	MDAID   string     `json:"mdaId,omitempty"`
	Status  string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterMDAID  string
	FilterStatus string
	Limit        int
	Offset       int
}

// Response is the envelope returned to callers.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// TenderRecord is the data we index for a tender.
type TenderRecord struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	MDAID       string  `json:"mdaId"`
	Status      string  `json:"status"`
	Value       float64 `json:"value"`
}

// MDARecord is the data we index for an MDA.
type MDARecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}
