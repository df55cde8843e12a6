package schema

import "fmt"

// VarType is a closed tag over the eight variable kinds a schema
// declaration may take.
type VarType uint8

const (
	// Unknown is the zero value; an unrecognized type string fails closed
	// into it at load time.
	Unknown VarType = iota
	Int
	Float
	String
	Datetime
	IntArray
	FloatArray
	Object
	ObjectArray
)

func varTypeToString(t VarType) string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Datetime:
		return "datetime"
	case IntArray:
		return "int_array"
	case FloatArray:
		return "float_array"
	case Object:
		return "object"
	case ObjectArray:
		return "object_array"
	default:
		return "unknown"
	}
}

func varTypeFromString(s string) VarType {
	switch s {
	case "int":
		return Int
	case "float":
		return Float
	case "string":
		return String
	case "datetime":
		return Datetime
	case "int_array":
		return IntArray
	case "float_array":
		return FloatArray
	case "object":
		return Object
	case "object_array":
		return ObjectArray
	default:
		return Unknown
	}
}

// String returns the canonical lower-case name of the type.
func (t VarType) String() string {
	return varTypeToString(t)
}

// UnmarshalYAML implements yaml.Unmarshaler. An unrecognized type string
// decodes to Unknown rather than erroring; the schema loader is
// responsible for rejecting Unknown declarations explicitly, matching the
// "unknown type values fail closed" rule.
func (t *VarType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("var type: %w", err)
	}
	*t = varTypeFromString(s)
	return nil
}
