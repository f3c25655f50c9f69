package mapper

import (
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/types"
)

func PaymentToResponse(payment *entity.Payment) *types.PaymentResponse {
	if payment == nil {
		return nil
	}

	return &types.PaymentResponse{
		PaymentID:             payment.ID,
		Status:                string(payment.Status),
		Amount:                payment.Amount,
		Currency:              payment.Currency,
		ProviderTransactionID: derefString(payment.ProviderTransactionID),
		CreatedAt:             payment.CreatedAt.UTC(),
		QRCode:                derefString(payment.QRCode),
		QRCodeBase64:          derefString(payment.QRCodeBase64),
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
