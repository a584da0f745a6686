package handlers

import (
	"time"

	"github.com/sokopay/paygate/internal/app/service/payment"
	"github.com/sokopay/paygate/internal/app/service/statistics"
	"github.com/sokopay/paygate/internal/models"
	"github.com/sokopay/paygate/internal/platform/daraja"
	"github.com/sokopay/paygate/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespInitiatePayment wraps InitiatePaymentResult in the standard envelope.
type RespInitiatePayment struct {
	Code    response.APIResponseCode      `json:"code"`
	Message string                        `json:"message"`
	Data    payment.InitiatePaymentResult `json:"data"`
}

// RespTransaction wraps a single transaction in the standard envelope.
type RespTransaction struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SwaggerTransaction       `json:"data"`
}

// RespListTransactions wraps ScanTransactionsResponse in the standard envelope.
type RespListTransactions struct {
	Code    response.APIResponseCode         `json:"code"`
	Message string                           `json:"message"`
	Data    payment.ScanTransactionsResponse `json:"data"`
}

// RespPaymentStatistic wraps PaymentStatisticResponse in the standard envelope.
type RespPaymentStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.PaymentStatisticResponse `json:"data"`
}

// RespBreakerStatus wraps the circuit breaker snapshot in the standard envelope.
type RespBreakerStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    daraja.BreakerSnapshot   `json:"data"`
}

// SwaggerTransaction is a simplified view of models.Transaction for documentation purposes.
type SwaggerTransaction struct {
	ID                 string                   `json:"id"`
	MerchantRequestID  string                   `json:"merchant_request_id"`
	CheckoutRequestID  string                   `json:"checkout_request_id"`
	PhoneNumber        string                   `json:"phone_number"`
	Amount             float64                  `json:"amount"`
	AccountReference   string                   `json:"account_reference"`
	Status             models.TransactionStatus `json:"status"`
	MpesaReceiptNumber *string                  `json:"mpesa_receipt_number"`
	TransactionDate    *time.Time               `json:"transaction_date"`
	ResultCode         *int                     `json:"result_code"`
	ResultDesc         *string                  `json:"result_desc"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}
