package cloverly

// Amount is a quantity with units as the offset API expects it.
type Amount struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// Location narrows the project search geographically.
type Location struct {
	Country    string `json:"country,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type estimateRequest struct {
	Carbon      Amount    `json:"carbon"`
	ProjectType string    `json:"project_type,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

type purchaseRequest struct {
	EstimateSlug string `json:"estimate_slug"`
}

// ProjectLocation is where an offset project operates.
type ProjectLocation struct {
	Country   string  `json:"country"`
	State     string  `json:"state,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Offset describes the project backing an estimate or purchase.
type Offset struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Registry    string          `json:"registry"`
	RegistryURL string          `json:"registry_url"`
	VintageYear int             `json:"vintage_year"`
	Location    ProjectLocation `json:"location"`
}

// Estimate is the API's priced offer.
type Estimate struct {
	ID                  string  `json:"id"`
	Slug                string  `json:"slug"`
	State               string  `json:"state"`
	TotalCostInUSDCents int64   `json:"total_cost_in_usd_cents"`
	CostInUSDCents      int64   `json:"cost_in_usd_cents"`
	FeeInUSDCents       int64   `json:"fee_in_usd_cents"`
	CarbonInKg          float64 `json:"carbon_in_kg"`
	PrettyCost          string  `json:"pretty_cost"`
	Offset              *Offset `json:"offset,omitempty"`
	Environment         string  `json:"environment"`
}

// Purchase is a completed estimate.
type Purchase struct {
	Estimate
	ReceiptURL              string `json:"receipt_url"`
	RenewableCertificateURL string `json:"renewable_certificate_url,omitempty"`
}

// Project is an entry of the project catalogue.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Registry    string          `json:"registry"`
	RegistryURL string          `json:"registry_url"`
	Location    ProjectLocation `json:"location"`
}

type projectList struct {
	Data []Project `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
}
