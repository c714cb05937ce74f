package apiErrors

import "fmt"

type ErrorCode string

const (
	EmailExists     ErrorCode = "EMAIL_EXISTS"
	TeamExists      ErrorCode = "TEAM_EXISTS"
	AlreadyMember   ErrorCode = "ALREADY_MEMBER"
	TeamHasWork     ErrorCode = "TEAM_HAS_ACTIVE_WORK"
	InvalidState    ErrorCode = "INVALID_STATE"
	ValidationError ErrorCode = "VALIDATION_ERROR"
	NotFound        ErrorCode = "NOT_FOUND"
	AuthError       ErrorCode = "AUTH_ERROR"
	Forbidden       ErrorCode = "FORBIDDEN"
	InternalError   ErrorCode = "INTERNAL_ERROR"
)

type APIError struct {
	Code    ErrorCode
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
