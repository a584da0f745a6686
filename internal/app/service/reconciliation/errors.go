package reconciliation

import "errors"

var (
	// ErrMalformedCallback 回调缺少必须的stkCallback信封字段
	ErrMalformedCallback = errors.New("reconciliation: malformed callback payload")
	// ErrUnknownTransaction 回调的CheckoutRequestID没有对应的交易记录
	ErrUnknownTransaction = errors.New("reconciliation: unknown transaction")
	// ErrPersistenceFailure 台账读写失败
	ErrPersistenceFailure = errors.New("reconciliation: persistence failure")
)
