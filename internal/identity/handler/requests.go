package handler

import (
	"strings"

	"aliaspay/internal/identity/models"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// CreateIdentityRequest is the HTTP request body for POST /v1/identities.
type CreateIdentityRequest struct {
	Handle  string         `json:"handle"`
	Details DetailsRequest `json:"details"`
}

// DetailsRequest carries the optional profile fields. Oversized fields are
// clipped by the service, not rejected here.
type DetailsRequest struct {
	Bio     string `json:"bio"`
	Avatar  string `json:"avatar"`
	Twitter string `json:"twitter"`
	Discord string `json:"discord"`
	Website string `json:"website"`
}

func (r *CreateIdentityRequest) Validate() error {
	r.Handle = strings.TrimSpace(r.Handle)
	return models.ValidateHandle(r.Handle)
}

func (d DetailsRequest) toModel() models.Details {
	return models.Details{
		Bio:     d.Bio,
		Avatar:  d.Avatar,
		Twitter: d.Twitter,
		Discord: d.Discord,
		Website: d.Website,
	}
}

// SetMainAddressRequest is the body for PUT /v1/identities/{handle}/main-address.
type SetMainAddressRequest struct {
	Address string `json:"address"`

	parsed domain.Address
}

func (r *SetMainAddressRequest) Validate() error {
	addr, err := domain.ParseAddress(strings.TrimSpace(r.Address))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid address")
	}
	r.parsed = addr
	return nil
}

// TransferAuthorityRequest is the body for PUT /v1/identities/{handle}/authority.
type TransferAuthorityRequest struct {
	Authority string `json:"authority"`

	parsed domain.Address
}

func (r *TransferAuthorityRequest) Validate() error {
	addr, err := domain.ParseAddress(strings.TrimSpace(r.Authority))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid authority address")
	}
	r.parsed = addr
	return nil
}
