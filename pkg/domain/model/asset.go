package model

import "github.com/m-mizutani/goerr/v2"

// Asset is the reference to the asset a risk is identified against.
type Asset struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Owner         string `json:"owner,omitempty"`
	BusinessValue string `json:"business_value,omitempty"`
	Criticality   string `json:"criticality,omitempty"`
}

// Validate checks required asset fields
func (a *Asset) Validate() error {
	if a.Name == "" {
		return goerr.New("asset name is required")
	}
	if a.Type == "" {
		return goerr.New("asset type is required", goerr.V("asset", a.Name))
	}
	return nil
}
