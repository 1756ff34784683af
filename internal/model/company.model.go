package model

// Company is the multi-tenant partition boundary. Every consent record and
// message log entry belongs to exactly one company.
type Company struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	APIKey         string `json:"api_key"`
	ProviderNumber string `json:"provider_number"` // the company's sending number at the SMS provider
}

// Client is a company's customer contact. PhoneNumber is stored normalized
// to E.164 so inbound sender matching is a plain equality lookup.
type Client struct {
	ID          int64  `json:"id"`
	CompanyID   int64  `json:"company_id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}
