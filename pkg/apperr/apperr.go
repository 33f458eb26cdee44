// Package apperr 定义业务错误分类，供 handler 映射为 HTTP 状态码
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类型
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindPreconditionFailed Kind = "precondition_failed"
	KindInvalidState       Kind = "invalid_state"
	KindSignature          Kind = "signature_error"
	KindGateway            Kind = "gateway_error"
	KindConflict           Kind = "conflict"
	KindInternal           Kind = "internal_error"
)

// Error 业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类型错误视为相等，便于 errors.Is(err, apperr.NotFound(""))
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.Message == ""
	}
	return false
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error         { return New(KindValidation, msg) }
func Unauthorized(msg string) *Error       { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error          { return New(KindForbidden, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }
func PreconditionFailed(msg string) *Error { return New(KindPreconditionFailed, msg) }
func InvalidState(msg string) *Error       { return New(KindInvalidState, msg) }
func Conflict(msg string) *Error           { return New(KindConflict, msg) }

// KindOf 返回错误类型，非 *Error 一律视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误类型
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
