package view

// Response is the envelope every API endpoint answers with.
type Response[T any] struct {
	Data T `json:"data"`

	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"message,omitempty"`

	Request any `json:"request,omitempty"`
}

// MessageResponse and ErrorResponse exist for API documentation.
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"message,omitempty"`
}

// CreateResponse builds a response envelope. The request is echoed back on
// client errors so callers can see what the server actually parsed.
func CreateResponse[T any](data T, err error, request any, message string) Response[T] {
	resp := Response[T]{
		Data:         data,
		ErrorMessage: message,
		Request:      request,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
