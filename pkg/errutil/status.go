package errutil

import "net/http"

// CoreStatus is a transport-agnostic status code carried by BaseError.
type CoreStatus string

const (
	StatusBadRequest      CoreStatus = "BAD_REQUEST"
	StatusUnauthorized    CoreStatus = "UNAUTHORIZED"
	StatusForbidden       CoreStatus = "FORBIDDEN"
	StatusNotFound        CoreStatus = "NOT_FOUND"
	StatusConflict        CoreStatus = "CONFLICT"
	StatusTooManyRequests CoreStatus = "TOO_MANY_REQUESTS"
	StatusTimeout         CoreStatus = "TIMEOUT"
	StatusInternal        CoreStatus = "INTERNAL"
	StatusBadGateway      CoreStatus = "BAD_GATEWAY"
)

// HTTPStatus converts the CoreStatus to its closest HTTP status code equivalent.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	case StatusTooManyRequests:
		return http.StatusTooManyRequests
	case StatusTimeout:
		return http.StatusGatewayTimeout
	case StatusBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
