package types

// Event represents a typed, observable state change emitted by the exchange
// modules. Attributes are rendered as strings so downstream consumers do not
// need module-specific decoding.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
