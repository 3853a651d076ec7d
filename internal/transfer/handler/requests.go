package handler

import (
	"strings"

	"aliaspay/internal/transfer/models"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// TransferRequest is the body for POST /v1/transfers/main.
type TransferRequest struct {
	SenderHandle      string `json:"sender_handle"`
	RecipientHandle   string `json:"recipient_handle"`
	Amount            uint64 `json:"amount"`
	SessionID         string `json:"session_id"`
	Memo              string `json:"memo"`
	ExpectedRecipient string `json:"expected_recipient"`

	parsedPin domain.Address
}

func (r *TransferRequest) Validate() error {
	r.SenderHandle = strings.TrimSpace(r.SenderHandle)
	r.RecipientHandle = strings.TrimSpace(r.RecipientHandle)
	r.SessionID = strings.TrimSpace(r.SessionID)

	r.ExpectedRecipient = strings.TrimSpace(r.ExpectedRecipient)
	if r.ExpectedRecipient != "" {
		pin, err := domain.ParseAddress(r.ExpectedRecipient)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid expected_recipient address")
		}
		r.parsedPin = pin
	}
	return nil
}

func (r *TransferRequest) toModel(caller domain.Address) models.Request {
	return models.Request{
		Caller:            caller,
		SenderHandle:      r.SenderHandle,
		RecipientHandle:   r.RecipientHandle,
		Amount:            r.Amount,
		SessionID:         r.SessionID,
		Memo:              r.Memo,
		ExpectedRecipient: r.parsedPin,
	}
}

// MappingTransferRequest is the body for POST /v1/transfers/mapping.
type MappingTransferRequest struct {
	TransferRequest
	MappingType string `json:"mapping_type"`
}

func (r *MappingTransferRequest) Validate() error {
	r.MappingType = strings.TrimSpace(r.MappingType)
	return r.TransferRequest.Validate()
}

func (r *MappingTransferRequest) toModel(caller domain.Address) models.MappingRequest {
	return models.MappingRequest{
		Request:     r.TransferRequest.toModel(caller),
		MappingType: r.MappingType,
	}
}
