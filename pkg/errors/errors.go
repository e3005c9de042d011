// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeProjectNotFound ErrorCode = "3001"
	CodeSessionNotFound ErrorCode = "3002"

	// 流程错误 (4xxx)
	CodePreconditionFailed ErrorCode = "4001"
	CodeSessionBusy        ErrorCode = "4002"
	CodeStaleResponse      ErrorCode = "4003"

	// 外部服务错误 (5xxx)
	CodeDatabaseError  ErrorCode = "5001"
	CodeCacheError     ErrorCode = "5002"
	CodeUpstreamError  ErrorCode = "5005"
	CodeConfigError    ErrorCode = "5006"
	CodeUpstreamSchema ErrorCode = "5007"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is 匹配预定义错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeProjectNotFound, CodeSessionNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSessionBusy, CodeStaleResponse:
		return http.StatusConflict
	case CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUpstreamError, CodeUpstreamSchema:
		return http.StatusBadGateway
	case CodeServiceUnavailable, CodeConfigError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrProjectNotFound = New(CodeProjectNotFound, "project not found")
	ErrSessionNotFound = New(CodeSessionNotFound, "session not found")

	ErrSessionBusy    = New(CodeSessionBusy, "another operation is in flight")
	ErrStaleResponse  = New(CodeStaleResponse, "response dropped: session moved on")
	ErrNoCredential   = New(CodeConfigError, "generation credential not configured")
	ErrEmptyInput     = New(CodePreconditionFailed, "concept or reference images required")
	ErrEmptyInstruct  = New(CodePreconditionFailed, "instruction must not be empty")
	ErrNoDocument     = New(CodePreconditionFailed, "no current document")
	ErrInvalidOutput  = New(CodeUpstreamSchema, "model output failed schema validation")
	ErrUpstreamFailed = New(CodeUpstreamError, "generation upstream call failed")
)

// ConfigError 缺失或无效的凭据等配置问题
func ConfigError(message string) *AppError {
	return New(CodeConfigError, message)
}

// UpstreamError 远端模型调用失败或输出不符合预期结构
func UpstreamError(message string, err error) *AppError {
	return Wrap(err, CodeUpstreamError, message)
}

// SchemaError 远端输出无法通过结构校验
func SchemaError(message string, err error) *AppError {
	return Wrap(err, CodeUpstreamSchema, message)
}

// PreconditionError 本地状态或输入不满足调用前提
func PreconditionError(message string) *AppError {
	return New(CodePreconditionFailed, message)
}

// IsConfig 判断错误链中是否含配置错误
func IsConfig(err error) bool {
	return hasCode(err, CodeConfigError)
}

// IsUpstream 判断错误链中是否含上游错误（含结构校验失败）
func IsUpstream(err error) bool {
	return hasCode(err, CodeUpstreamError, CodeUpstreamSchema)
}

// IsPrecondition 判断错误链中是否含前置条件错误
func IsPrecondition(err error) bool {
	return hasCode(err, CodePreconditionFailed)
}

func hasCode(err error, codes ...ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			for _, c := range codes {
				if appErr.Code == c {
					return true
				}
			}
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
