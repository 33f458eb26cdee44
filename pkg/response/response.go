package response

import (
	"errors"
	"net/http"

	"symbiotic_city/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务码
	Message string      `json:"message"` // 提示信息
	Data    interface{} `json:"data"`    // 数据
}

// ErrorBody 错误响应结构
type ErrorBody struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`             // 错误类型，如 invalid_state
	Message string `json:"message,omitempty"` // 详细信息
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, ErrorBody{
		Code:    errCode,
		Error:   kindForStatus(httpCode),
		Message: msg,
	})
}

// FromError 根据错误类型写入响应
func FromError(c *gin.Context, err error) {
	FromErrorCode(c, err, 0)
}

// FromErrorCode 同 FromError，code 非 0 时替换默认业务码
func FromErrorCode(c *gin.Context, err error, code int) {
	status, defaultCode := StatusOf(err)
	if code == 0 {
		code = defaultCode
	}
	body := ErrorBody{Code: code, Error: string(apperr.KindOf(err))}

	var e *apperr.Error
	if errors.As(err, &e) {
		body.Message = e.Message
	}
	// 内部错误不向客户端暴露细节
	if status == http.StatusInternalServerError && body.Message == "" {
		body.Message = "internal server error"
	}
	c.JSON(status, body)
}

// StatusOf 错误类型 -> (HTTP 状态码, 业务码)
func StatusOf(err error) (int, int) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, ErrInvalidParam
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, ErrTokenInvalid
	case apperr.KindForbidden:
		return http.StatusForbidden, ErrNoPermission
	case apperr.KindNotFound:
		return http.StatusNotFound, ErrNotFound
	case apperr.KindPreconditionFailed:
		return http.StatusBadRequest, ErrPayoutNotLinked
	case apperr.KindInvalidState:
		return http.StatusBadRequest, ErrInvalidTransition
	case apperr.KindSignature:
		return http.StatusBadRequest, ErrSignatureInvalid
	case apperr.KindConflict:
		return http.StatusConflict, ErrPayoutConflict
	case apperr.KindGateway:
		return http.StatusInternalServerError, ErrGatewayFailed
	default:
		return http.StatusInternalServerError, ErrServerInternal
	}
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperr.KindValidation)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperr.KindForbidden)
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	return string(apperr.KindInternal)
}
