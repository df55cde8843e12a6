package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// maxObjectDepth bounds how many levels of object/object_array nesting a
// loaded schema may declare. It is enforced once, here, at load time:
// Validate only ever recurses as deep as the VarSchema tree in front of it
// permits, so bounding it here transitively bounds every request's
// validation depth too.
const maxObjectDepth = 2

// VarSchema is a single resolved variable declaration: a type tag plus the
// bound appropriate to that type. Exactly one group of fields below is
// populated, selected by Type.
type VarSchema struct {
	Type    VarType
	Default any

	// Int, Float
	Min, Max float64

	// String
	Enum []string

	// Datetime: a Go reference-time layout translated from the
	// declaration's strftime-style format string.
	Layout string

	// IntArray, FloatArray
	MaxLen             int
	InnerMin, InnerMax float64

	// Object
	Fields map[string]*VarSchema

	// ObjectArray
	ElemFields map[string]*VarSchema
}

// ServiceSchema is the full set of variable declarations for one service.
type ServiceSchema struct {
	Name string
	Vars map[string]*VarSchema
}

// rawDecl is the wire shape of a single declaration as written in YAML;
// Values is kept generic because its shape depends on Type.
type rawDecl struct {
	Type    VarType   `yaml:"type"`
	Default yaml.Node `yaml:"default"`
	Values  yaml.Node `yaml:"values"`
}

type rawDoc struct {
	Vars map[string]rawDecl `yaml:"vars"`
}

// Load reads a service's variable schema document from path and resolves
// every declaration, including nested object/object_array fields, failing
// closed on any declaration with an unrecognized type or a bound shape
// that doesn't decode, and rejecting schemas that nest objects past
// maxObjectDepth.
func Load(name, path string) (*ServiceSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	var doc rawDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema %s: parse: %w", name, err)
	}

	vars := make(map[string]*VarSchema, len(doc.Vars))
	for key, decl := range doc.Vars {
		vs, err := buildVarSchema(key, decl, 0)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		vars[key] = vs
	}
	return &ServiceSchema{Name: name, Vars: vars}, nil
}

func buildVarSchema(key string, decl rawDecl, depth int) (*VarSchema, error) {
	vs := &VarSchema{Type: decl.Type}
	if !decl.Default.IsZero() {
		if err := decl.Default.Decode(&vs.Default); err != nil {
			return nil, fmt.Errorf("var %s: default: %w", key, err)
		}
	}

	switch decl.Type {
	case Int, Float:
		var bounds [2]float64
		if err := decl.Values.Decode(&bounds); err != nil {
			return nil, fmt.Errorf("var %s: expected [min, max]: %w", key, err)
		}
		vs.Min, vs.Max = bounds[0], bounds[1]

	case String:
		if err := decl.Values.Decode(&vs.Enum); err != nil {
			return nil, fmt.Errorf("var %s: expected string enumeration: %w", key, err)
		}

	case Datetime:
		var format string
		if err := decl.Values.Decode(&format); err != nil {
			return nil, fmt.Errorf("var %s: expected strftime format string: %w", key, err)
		}
		layout, err := strftimeToGoLayout(format)
		if err != nil {
			return nil, fmt.Errorf("var %s: %w", key, err)
		}
		vs.Layout = layout

	case IntArray, FloatArray:
		var bounds [3]float64
		if err := decl.Values.Decode(&bounds); err != nil {
			return nil, fmt.Errorf("var %s: expected [max_len, inner_min, inner_max]: %w", key, err)
		}
		vs.MaxLen = int(bounds[0])
		vs.InnerMin, vs.InnerMax = bounds[1], bounds[2]

	case Object:
		if depth+1 > maxObjectDepth {
			return nil, fmt.Errorf("var %s: object nesting exceeds depth %d", key, maxObjectDepth)
		}
		var inner rawDoc
		if err := decl.Values.Decode(&inner); err != nil {
			return nil, fmt.Errorf("var %s: expected nested field mapping: %w", key, err)
		}
		fields := make(map[string]*VarSchema, len(inner.Vars))
		for innerKey, innerDecl := range inner.Vars {
			fvs, err := buildVarSchema(innerKey, innerDecl, depth+1)
			if err != nil {
				return nil, err
			}
			fields[innerKey] = fvs
		}
		vs.Fields = fields

	case ObjectArray:
		if depth+1 > maxObjectDepth {
			return nil, fmt.Errorf("var %s: object_array nesting exceeds depth %d", key, maxObjectDepth)
		}
		var wrapper struct {
			MaxLen int    `yaml:"max_len"`
			Vars   rawDoc `yaml:",inline"`
		}
		var seq []yaml.Node
		if err := decl.Values.Decode(&seq); err != nil || len(seq) != 2 {
			return nil, fmt.Errorf("var %s: expected [max_len, inner_object_schema]", key)
		}
		if err := seq[0].Decode(&wrapper.MaxLen); err != nil {
			return nil, fmt.Errorf("var %s: expected max_len: %w", key, err)
		}
		var inner rawDoc
		if err := seq[1].Decode(&inner); err != nil {
			return nil, fmt.Errorf("var %s: expected nested field mapping: %w", key, err)
		}
		fields := make(map[string]*VarSchema, len(inner.Vars))
		for innerKey, innerDecl := range inner.Vars {
			fvs, err := buildVarSchema(innerKey, innerDecl, depth+1)
			if err != nil {
				return nil, err
			}
			fields[innerKey] = fvs
		}
		vs.MaxLen = wrapper.MaxLen
		vs.ElemFields = fields

	default:
		return nil, fmt.Errorf("var %s: unknown type %q", key, decl.Type)
	}

	return vs, nil
}

// Keys returns the schema's variable names in sorted order.
func (s *ServiceSchema) Keys() []string {
	keys := make([]string, 0, len(s.Vars))
	for k := range s.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
