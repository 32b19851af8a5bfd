package constant

import "fmt"

// Error 带错误码的业务错误
type Error interface {
	error
	Code() int
	Message() string
	MessageEN() string
}

// CustomError 自定义错误实现
type CustomError struct {
	code  int
	info  ErrorInfo
	cause error
}

func (e *CustomError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("code: %d, message: %s: %v", e.code, e.info.EN, e.cause)
	}
	return fmt.Sprintf("code: %d, message: %s", e.code, e.info.EN)
}

func (e *CustomError) Code() int { return e.code }

func (e *CustomError) Message() string { return e.info.CN }

func (e *CustomError) MessageEN() string { return e.info.EN }

func (e *CustomError) Unwrap() error { return e.cause }

// NewError 创建错误
func NewError(code int) Error {
	return &CustomError{code: code, info: lookup(code)}
}

// WrapError 创建带原因的错误
func WrapError(code int, cause error) Error {
	return &CustomError{code: code, info: lookup(code), cause: cause}
}

// GetErrorInfo 获取错误信息
func GetErrorInfo(code int) (ErrorInfo, bool) {
	info, exists := ErrorMessages[code]
	return info, exists
}

func lookup(code int) ErrorInfo {
	if info, ok := ErrorMessages[code]; ok {
		return info
	}
	return ErrorInfo{CN: "未知错误", EN: "Unknown error"}
}
