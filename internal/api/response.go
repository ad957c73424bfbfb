// internal/api/response.go
package api

type ErrCode int

const (
	_                     ErrCode = 10000 + iota
	ErrCodeMalformedJSON          // 10001
	ErrCodeRequestBody            // 10002
	ErrCodeNotFound               // 10003
	ErrCodeInvalidValue           // 10004
	ErrCodeUnknownOption          // 10005
	ErrCodeDevice                 // 10006
	ErrCodeUnconfirmed            // 10007
)

type responseError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Detail  string  `json:"detail,omitempty"`
}

func newError(code ErrCode, message string, err error) responseError {
	re := responseError{Code: code, Message: message}
	if err != nil {
		re.Detail = err.Error()
	}
	return re
}

var (
	errMalformedJSON = responseError{Code: ErrCodeMalformedJSON, Message: "The JSON you provided was not well-formed."}
	errRequestBody   = responseError{Code: ErrCodeRequestBody, Message: `Provide exactly one of "value" or "option".`}
)
