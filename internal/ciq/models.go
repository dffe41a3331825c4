package ciq

import "time"

// Row is one flattened data point returned by the CIQ API: a metric
// value for a ticker in a fiscal year. Metric carries the friendly
// display name; Mnemonic the raw CIQ identifier.
type Row struct {
	Ticker   string  `json:"ticker"`
	Mnemonic string  `json:"mnemonic"`
	Metric   string  `json:"metric"`
	Year     int     `json:"year"`
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Series groups row values by metric, ordered by year ascending.
type Series struct {
	Metric string    `json:"metric"`
	Years  []int     `json:"years"`
	Values []float64 `json:"values"`
}

// inputRequest is one entry in the clientservice request batch.
type inputRequest struct {
	Function   string            `json:"function"`
	Identifier string            `json:"identifier"`
	Mnemonic   string            `json:"mnemonic"`
	Properties map[string]string `json:"properties,omitempty"`
}

// clientServiceRequest is the POST body for /gdsapi/rest/v3/clientservice.json.
type clientServiceRequest struct {
	InputRequests []inputRequest `json:"inputRequests"`
}

// sdkRow is one row of a GDSSDKResponse entry.
type sdkRow struct {
	Row []string `json:"Row"`
}

// sdkResponse is one entry of the GDSSDKResponse array. ErrMsg is empty
// on success; "Data Unavailable" marks a metric the subscription does
// not cover for the identifier.
type sdkResponse struct {
	Function   string            `json:"Function"`
	Mnemonic   string            `json:"Mnemonic"`
	Identifier string            `json:"Identifier"`
	Properties map[string]string `json:"Properties"`
	ErrMsg     string            `json:"ErrMsg"`
	Headers    []string          `json:"Headers"`
	Rows       []sdkRow          `json:"Rows"`
}

// clientServiceResponse is the response body for clientservice.json.
type clientServiceResponse struct {
	Responses []sdkResponse `json:"GDSSDKResponse"`
}

// authRequest is the POST body for the token endpoint.
type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse carries the bearer token pair.
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// token is the cached bearer token with its expiry.
type token struct {
	access  string
	refresh string
	expires time.Time
}

func (t token) valid(now time.Time) bool {
	return t.access != "" && now.Before(t.expires)
}
