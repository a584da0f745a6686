package models

import (
	"time"

	"gorm.io/datatypes"
)

type CallbackLogStatus string

const (
	CallbackLogStatusReceived     CallbackLogStatus = "received"
	CallbackLogStatusHandled      CallbackLogStatus = "handled"
	CallbackLogStatusHandleFailed CallbackLogStatus = "handle_failed"
)

// CallbackLog 网关回调审计日志，原始payload与处理结果均落库
type CallbackLog struct {
	ID                string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CheckoutRequestID string            `gorm:"column:checkout_request_id;type:varchar(64);index:idx_callback_checkout_request_id" json:"checkout_request_id"`
	MerchantRequestID string            `gorm:"column:merchant_request_id;type:varchar(64)" json:"merchant_request_id"`
	TraceID           string            `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	CallbackTime      time.Time         `gorm:"column:callback_time" json:"callback_time"`
	Data              datatypes.JSON    `gorm:"column:data;type:jsonb" json:"data"`
	Result            *datatypes.JSON   `gorm:"column:result;type:jsonb" json:"result"`
	Status            CallbackLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (CallbackLog) TableName() string { return "callback_log" }
