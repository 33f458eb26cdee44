package response

// 业务状态码
const (
	CodeSuccess = 0

	// 认证错误 100xx
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 订单模块错误 200xx
	ErrOrderNotFound     = 20001
	ErrInvalidTransition = 20002
	ErrInsufficientStock = 20003
	ErrPaymentNotFound   = 20004

	// 支付/结算模块错误 300xx
	ErrSignatureInvalid   = 30001
	ErrGatewayFailed      = 30002
	ErrPayoutBelowMinimum = 30003
	ErrPayoutNotLinked    = 30004
	ErrPayoutConflict     = 30005

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrNotFound        = 50004
)
