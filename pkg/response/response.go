package response

// Envelope is the JSON shape every API endpoint returns: a success flag,
// the payload on success, or a human-readable error message.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK wraps data in a successful envelope.
func OK(data interface{}) Envelope {
	return Envelope{
		Success: true,
		Data:    data,
	}
}

// Error wraps a failure message.
func Error(message string) Envelope {
	return Envelope{
		Success: false,
		Message: message,
	}
}
