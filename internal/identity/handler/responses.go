package handler

import (
	"time"

	"aliaspay/internal/identity/models"
)

// IdentityResponse is the HTTP shape of a registry record.
type IdentityResponse struct {
	Handle      string          `json:"handle"`
	Authority   string          `json:"authority"`
	MainAddress string          `json:"main_address"`
	Details     DetailsResponse `json:"details"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DetailsResponse is the profile portion of the response.
type DetailsResponse struct {
	Bio     string `json:"bio,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Twitter string `json:"twitter,omitempty"`
	Discord string `json:"discord,omitempty"`
	Website string `json:"website,omitempty"`
}

// WhoisResponse is the HTTP response for GET /v1/addresses/{address}.
type WhoisResponse struct {
	Address string `json:"address"`
	Handle  string `json:"handle"`
}

// FromIdentity converts a registry record to its HTTP response.
func FromIdentity(identity *models.Identity) *IdentityResponse {
	return &IdentityResponse{
		Handle:      identity.Handle,
		Authority:   identity.Authority.String(),
		MainAddress: identity.MainAddress.String(),
		Details: DetailsResponse{
			Bio:     identity.Details.Bio,
			Avatar:  identity.Details.Avatar,
			Twitter: identity.Details.Twitter,
			Discord: identity.Details.Discord,
			Website: identity.Details.Website,
		},
		CreatedAt: identity.CreatedAt,
		UpdatedAt: identity.UpdatedAt,
	}
}
