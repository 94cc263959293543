package converter

// Payload is an opaque serialized value passed to the remote service, for
// example a workflow execution's input.
type Payload []byte

type Converter interface {
	// To converts the given value to a payload
	To(v any) (Payload, error)

	// From converts the given payload to a value
	From(data Payload, vptr any) error
}

var DefaultConverter Converter = &jsonConverter{}
