package payment

import (
	"context"

	"github.com/sokopay/paygate/internal/models"
	"github.com/sokopay/paygate/pkg/types"
)

type InitiatePaymentRequest struct {
	PhoneNumber      string  `json:"phone_number" binding:"required"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	AccountReference string  `json:"account_reference" binding:"required"`
	Description      string  `json:"description"`
}

type InitiatePaymentResult struct {
	MerchantRequestID   string `json:"merchant_request_id"`
	CheckoutRequestID   string `json:"checkout_request_id"`
	ResponseDescription string `json:"response_description"`
	CustomerMessage     string `json:"customer_message"`

	// LedgerWriteErr carries a failed PENDING write. The initiation write is
	// fail-open: the caller may log this but must not surface it to the
	// paying user, whose prompt is already on their phone.
	LedgerWriteErr error `json:"-"`
}

// Scan transaction request/response (admin list pages).
type ScanTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanTransactionsResponse struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}

// PaymentService initiates push payments and reads back their state.
type PaymentService interface {
	// Initiate a push payment; on success a PENDING transaction is written.
	InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResult, error)
	// Look up a transaction by its gateway checkout request id.
	GetTransaction(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)
	// Scan transactions (used by admin list pages).
	ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error)
}
