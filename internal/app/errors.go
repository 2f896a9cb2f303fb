package app

import "fmt"

// DomainError is an error the API maps straight onto the JSON error
// envelope: Status becomes the HTTP status, Code the stable machine code
// ("PLAN_LIMIT", "INVALID_CONTENT", ...), Message the human text and
// Details an optional payload such as the offending page id.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
