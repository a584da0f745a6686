package daraja

import "errors"

// Error kinds surfaced by the Daraja client. Callers branch with errors.Is;
// gateway detail is attached by wrapping (fmt.Errorf("%w: ...")).
var (
	// ErrAuthFailure token交换失败或网关未返回token
	ErrAuthFailure = errors.New("daraja: authentication failed")
	// ErrInvalidPhoneNumber 手机号不符合肯尼亚MSISDN格式
	ErrInvalidPhoneNumber = errors.New("daraja: invalid phone number")
	// ErrGatewayRejected 网关受理但返回了非0的ResponseCode
	ErrGatewayRejected = errors.New("daraja: gateway rejected request")
	// ErrGatewayUnavailable 传输层错误或网关返回了非法响应
	ErrGatewayUnavailable = errors.New("daraja: gateway unavailable")
	// ErrServiceUnavailable 熔断器处于OPEN状态，直接快速失败
	ErrServiceUnavailable = errors.New("daraja: service temporarily unavailable")
	// ErrRetryExhausted 重试次数耗尽
	ErrRetryExhausted = errors.New("daraja: retry attempts exhausted")
)
