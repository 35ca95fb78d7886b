package search

// InstitutionRecord is the data we index for a registered institution.
type InstitutionRecord struct {
	ID                 string `json:"id"`
	DivisionID         string `json:"divisionId"`
	InstitutionName    string `json:"institutionName"`
	NameOfKhathadar    string `json:"nameOfKhathadar"`
	KhathaOrPropertyNo string `json:"khathaOrPropertyNo"`
	PID                string `json:"pid"`
	VillageOrCity      string `json:"villageOrCity"`
	District           string `json:"district"`
}

// Query describes an institution search request. DivisionID narrows the
// search to one division's subtree; empty means all divisions.
type Query struct {
	Text       string
	DivisionID string
	Limit      int
}

// Result is a single institution hit.
type Result struct {
	ID                 string `json:"id"`
	InstitutionName    string `json:"institutionName"`
	NameOfKhathadar    string `json:"nameOfKhathadar"`
	KhathaOrPropertyNo string `json:"khathaOrPropertyNo"`
	PID                string `json:"pid"`
	VillageOrCity      string `json:"villageOrCity"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
