package handler

import (
	"time"

	"aliaspay/internal/transfer/models"
)

// TransferResponse is the HTTP shape of one executed transfer.
type TransferResponse struct {
	ID              int64     `json:"id"`
	SenderHandle    string    `json:"sender_handle"`
	RecipientHandle string    `json:"recipient_handle"`
	MappingType     string    `json:"mapping_type,omitempty"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Amount          uint64    `json:"amount"`
	PointsSpent     uint32    `json:"points_spent"`
	Memo            string    `json:"memo,omitempty"`
	ExecutedAt      time.Time `json:"executed_at"`
}

// HistoryResponse is one page of a sender's transfers, newest first.
type HistoryResponse struct {
	Transfers []TransferResponse `json:"transfers"`
	Page      int                `json:"page"`
	PageSize  int                `json:"page_size"`
}

// FromTransfer converts an executed transfer to its HTTP response.
func FromTransfer(t *models.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:              t.ID,
		SenderHandle:    t.SenderHandle,
		RecipientHandle: t.RecipientHandle,
		MappingType:     t.MappingType,
		From:            t.From.String(),
		To:              t.To.String(),
		Amount:          t.Amount,
		PointsSpent:     t.PointsSpent,
		Memo:            t.Memo,
		ExecutedAt:      t.ExecutedAt,
	}
}

// FromTransfers converts a history page.
func FromTransfers(transfers []models.Transfer, page, pageSize int) *HistoryResponse {
	out := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, *FromTransfer(&transfers[i]))
	}
	return &HistoryResponse{Transfers: out, Page: page, PageSize: pageSize}
}
