package schema

import (
	"fmt"
	"time"
)

// Value is a tagged union over the result of coercing one request field
// against its VarSchema. Only the field matching Type is meaningful; the
// others are left zero.
type Value struct {
	Type VarType

	Int      int64
	Float    float64
	Str      string
	Time     time.Time
	IntArr   []int64
	FloatArr []float64
	StrArr   []string
	Obj      map[string]Value
	ObjArr   []map[string]Value
}

// Raw unwraps the Value back into a plain Go value suitable for
// round-tripping through encoding/json, e.g. when echoing valid_data back
// to a client.
func (v Value) Raw() any {
	switch v.Type {
	case Int:
		return v.Int
	case Float:
		return v.Float
	case String:
		return v.Str
	case Datetime:
		return v.Time
	case IntArray:
		return v.IntArr
	case FloatArray:
		return v.FloatArr
	case Object:
		return rawObject(v.Obj)
	case ObjectArray:
		out := make([]map[string]any, len(v.ObjArr))
		for i, o := range v.ObjArr {
			out[i] = rawObject(o)
		}
		return out
	default:
		return nil
	}
}

func rawObject(o map[string]Value) map[string]any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = v.Raw()
	}
	return out
}

// Get[T] extracts a typed field out of a valid_data record by key,
// returning ok=false if the key is absent or holds a different Go
// representation than T.
func Get[T any](m map[string]Value, key string) (T, bool) {
	var zero T
	v, ok := m[key]
	if !ok {
		return zero, false
	}
	raw := v.Raw()
	t, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

func (v Value) String() string {
	return fmt.Sprintf("%v", v.Raw())
}
