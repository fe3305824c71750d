package util

type Envelope map[string]any

// Fail builds the uniform error payload shared by every endpoint.
func Fail(message string) Envelope {
	return Envelope{"success": false, "error": message}
}

// OK wraps payload fields into the uniform success envelope.
func OK(fields Envelope) Envelope {
	out := Envelope{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Message is the generic-success shape used where responses must not leak
// account existence.
func Message(msg string) Envelope {
	return Envelope{"success": true, "message": msg}
}
