package analytics

// QueueRequest is the submitQueueRequest body. Most of the query block
// is fixed vendor plumbing; only the date range, report name and
// timestamp vary per submission.
type QueueRequest struct {
	Query     QueueQuery `json:"query"`
	Hash      string     `json:"hash"`
	Name      string     `json:"name"`
	Timestamp int64      `json:"timestamp"`
	Optimized bool       `json:"optimized"`
	EmailID   string     `json:"emailId"`
}

// QueueQuery is the report definition inside a QueueRequest.
type QueueQuery struct {
	Pool            string         `json:"pool"`
	IsCusGroup      int            `json:"isCusGroup"`
	CusGroup        string         `json:"cusGroup"`
	StartDate       string         `json:"startDate"`
	EndDate         string         `json:"endDate"`
	Limit           int            `json:"limit"`
	Metrics         []string       `json:"metrics"`
	Dimensions      []string       `json:"dimensions"`
	ShowQuery       int            `json:"showQuery"`
	IsDownload      int            `json:"isDownload"`
	ModelID         string         `json:"modelId"`
	ModelName       string         `json:"modelName"`
	AdminID         int            `json:"adminId"`
	QueryID         string         `json:"queryId"`
	BuID            string         `json:"buId"`
	BuName          string         `json:"buName"`
	Granularity     string         `json:"granularity"`
	IsNADisabled    string         `json:"isNADisabled"`
	IsNestedEnabled int            `json:"isNestedEnabled"`
	DataFormat      int            `json:"dataFormat"`
	SSOGroups       []string       `json:"SSOGroups"`
	Filters         map[string]any `json:"filters"`
	ShowGrandTotal  bool           `json:"showGrandTotal"`
	ShowReportTotal bool           `json:"showReportTotal"`
	ReportID        *string        `json:"reportId"`
	NestedFilter    NestedFilter   `json:"nestedFilter"`
	InfoOnly        bool           `json:"infoOnly"`
}

// NestedFilter is the vendor's dimension filter tree.
type NestedFilter struct {
	Condition string        `json:"condition"`
	Fields    []FilterField `json:"fields"`
}

// FilterField is one leaf of a NestedFilter.
type FilterField struct {
	ID          string   `json:"id,omitempty"`
	DimensionID string   `json:"dimensionId"`
	Type        string   `json:"type"`
	Values      []string `json:"values"`
	IsSQL       *bool    `json:"isSql,omitempty"`
	IsEnabled   bool     `json:"isEnabled"`
}

// QueueStatus is the normalized view of a getAllQueueStatus response.
// The raw envelope varies (top-level fields, a data object, or a data
// list), so the client flattens it before anyone looks at it.
type QueueStatus struct {
	Status   string
	Progress string
	DataSize string
	Message  string
}

// Succeeded reports whether the status string indicates completion. The
// vendor has answered with "SUCCESS", "Succeeded" and "successful", so
// the check is a substring match.
func (s QueueStatus) Succeeded() bool {
	return containsFold(s.Status, "succe")
}
