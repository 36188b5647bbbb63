package model

// DecodeError records a binary decode failure with a human-readable reason.
type DecodeError struct {
	Kind   string `json:"kind"`
	Pubkey string `json:"pubkey,omitempty"`
	Reason string `json:"reason"`
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return e.Reason
	}
	return e.Kind + ": " + e.Reason
}
