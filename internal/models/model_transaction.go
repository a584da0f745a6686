package models

import (
	"time"

	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusTimeout   TransactionStatus = "TIMEOUT"
)

type TransactionExtra struct {
	// CallbackMetadata 回调里未识别的Name/Value字段原样保留
	CallbackMetadata map[string]any `json:"callback_metadata,omitempty"`
	// CallbackBalance 回调返回的账户余额
	CallbackBalance *float64 `json:"callback_balance,omitempty"`
	// CallbackPhoneNumber 回调返回的付款手机号
	CallbackPhoneNumber string `json:"callback_phone_number,omitempty"`
}

// Transaction STK push支付记录，以CheckoutRequestID作为回调对账主键
type Transaction struct {
	ID                string            `gorm:"column:id;primary_key;type:uuid" json:"id"`
	MerchantRequestID string            `gorm:"column:merchant_request_id;type:varchar(64);not null;uniqueIndex:unique_merchant_request_id" json:"merchant_request_id"`
	CheckoutRequestID string            `gorm:"column:checkout_request_id;type:varchar(64);not null;uniqueIndex:unique_checkout_request_id" json:"checkout_request_id"`
	PhoneNumber       string            `gorm:"column:phone_number;type:varchar(16);not null;index:idx_phone_number_created_at,priority:1" json:"phone_number"`
	Amount            float64           `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	AccountReference  string            `gorm:"column:account_reference;type:varchar(64);not null" json:"account_reference"`
	Description       string            `gorm:"column:description;type:varchar(256)" json:"description"`
	Status            TransactionStatus `gorm:"column:status;type:varchar(16);not null;index:idx_status" json:"status"`

	// 以下字段在回调对账前均为nil
	MpesaReceiptNumber *string    `gorm:"column:mpesa_receipt_number;type:varchar(64);default:null" json:"mpesa_receipt_number"`
	TransactionDate    *time.Time `gorm:"column:transaction_date;default:null" json:"transaction_date"`
	ResultCode         *int       `gorm:"column:result_code;default:null" json:"result_code"`
	ResultDesc         *string    `gorm:"column:result_desc;type:varchar(256);default:null" json:"result_desc"`

	Extra     datatypes.JSONType[*TransactionExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time                             `gorm:"index:idx_phone_number_created_at,priority:2,sort:desc" json:"created_at"`
	UpdatedAt time.Time                             `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}

// IsTerminal PENDING是唯一的非终态
func (t *Transaction) IsTerminal() bool {
	if t == nil {
		return false
	}
	return t.Status != TransactionStatusPending
}

func (t *Transaction) GetExtra() *TransactionExtra {
	if t == nil {
		return nil
	}
	return t.Extra.Data()
}
