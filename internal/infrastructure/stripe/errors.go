package stripe

import "fmt"

type GatewayError struct {
	Type       string
	Code       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%s/%s]: %s (status %d)", e.Type, e.Code, e.Message, e.StatusCode)
}
