package domain

// Answer is the structured response returned to the caller.
// References are attributed by context inclusion, not by parsing the
// model's own citations.
type Answer struct {
	Text         string   `json:"text"`
	References   []string `json:"references,omitempty"` // ContentRecord ids the answer is grounded in
	FallbackUsed bool     `json:"fallback_used"`
	Cached       bool     `json:"cached,omitempty"`
}
