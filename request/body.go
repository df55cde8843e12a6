package request

import "encoding/json"

// ServiceKey is the top-level field a request body uses to select which
// service schema it should be validated against.
const ServiceKey = "service"

// Body is a client's raw request, parsed from JSON but not yet validated
// against any schema.
type Body struct {
	Data map[string]any
}

// Parse decodes raw UTF-8 JSON into a Body. The top level must be a JSON
// object.
func Parse(raw []byte) (Body, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Body{}, err
	}
	return Body{Data: data}, nil
}

// Get returns the raw value associated with key, or nil if absent.
func (b Body) Get(key string) any {
	if b.Data == nil {
		return nil
	}
	return b.Data[key]
}

// Set stores key/value in the body, initializing Data if necessary.
func (b *Body) Set(key string, value any) {
	if b.Data == nil {
		b.Data = make(map[string]any)
	}
	b.Data[key] = value
}

// Service returns the service name the request selects, per ServiceKey.
func (b Body) Service() (string, bool) {
	return Get[string](b, ServiceKey)
}

// WithoutServiceKey returns a shallow copy of data with ServiceKey
// removed, for handing to a schema validator. ServiceKey is routing
// metadata used to pick a ServiceSchema, not a field any schema declares,
// so it must not reach validateObject's unknown-key check. The input map
// is left untouched.
func WithoutServiceKey(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == ServiceKey {
			continue
		}
		out[k] = v
	}
	return out
}

// Get retrieves a field from b and attempts to cast it to T. It returns
// the zero value and false if the key is absent or holds a different Go
// representation than T.
func Get[T any](b Body, key string) (T, bool) {
	var zero T
	raw, ok := b.Data[key]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores key/value in b using the type-safe generic helper.
func Set[T any](b *Body, key string, value T) {
	b.Set(key, value)
}
