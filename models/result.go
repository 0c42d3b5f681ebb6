package models

// NotAvailable is substituted for any supplier field that cannot be resolved.
const NotAvailable = "No disponible"

// Result status markers.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SupplierDetail holds the fields read from the supplier profile card.
// Every field independently falls back to NotAvailable.
type SupplierDetail struct {
	InfoValue string
	Email     string
	Region    string
}

// NewSupplierDetail returns a SupplierDetail with every field set to NotAvailable.
func NewSupplierDetail() SupplierDetail {
	return SupplierDetail{
		InfoValue: NotAvailable,
		Email:     NotAvailable,
		Region:    NotAvailable,
	}
}

// QueryResult is the outcome of one registry query. It is either the
// success variant (Status == StatusSuccess, RNPs non-empty, supplier fields
// set) or the error variant (Status == StatusError, Error and Code set),
// never both.
type QueryResult struct {
	// RUC is the queried taxpayer identifier.
	RUC string `json:"ruc"`

	// RNPs are the normalized registry codes in document order.
	RNPs []string `json:"rnps,omitempty"`

	InfoValue string `json:"infoValue,omitempty"`
	Email     string `json:"email,omitempty"`
	Region    string `json:"region,omitempty"`

	// Error is the human-readable failure reason.
	Error string `json:"error,omitempty"`

	// Code is the machine-readable failure category (see ErrCode*).
	Code string `json:"code,omitempty"`

	// Status is StatusSuccess or StatusError.
	Status string `json:"status"`
}

// Success builds the success variant.
func Success(ruc string, rnps []string, d SupplierDetail) QueryResult {
	return QueryResult{
		RUC:       ruc,
		RNPs:      rnps,
		InfoValue: d.InfoValue,
		Email:     d.Email,
		Region:    d.Region,
		Status:    StatusSuccess,
	}
}

// Failure builds the error variant from err.
func Failure(ruc string, err error) QueryResult {
	return QueryResult{
		RUC:    ruc,
		Error:  err.Error(),
		Code:   CodeOf(err),
		Status: StatusError,
	}
}

// OK reports whether r is the success variant.
func (r QueryResult) OK() bool {
	return r.Status == StatusSuccess
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string       `json:"status"` // "healthy" or "degraded"
	Uptime   string       `json:"uptime"`
	Sessions SessionStats `json:"sessions"`
	Target   *ProbeResult `json:"target,omitempty"`
	Version  string       `json:"version"`
}

// SessionStats reports how many browser sessions are in flight.
type SessionStats struct {
	MaxConcurrent int `json:"max_concurrent"`
	Active        int `json:"active"`
}

// ProbeResult reports the reachability of the registry site.
type ProbeResult struct {
	URL        string `json:"url"`
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code,omitempty"`
	Title      string `json:"title,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}
