package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// decimalPattern matches the "decimal point only; no locale" numeric
// string format accepted for int/float fields — no thousands separators,
// no exponents, no locale-specific decimal commas.
var decimalPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Validate applies schema to a parsed request body and returns the typed
// valid_data record, or a ValidationErrors describing every rejected
// field. Unknown top-level keys are rejected; missing keys take their
// declared default. Validation never mutates data.
//
// If schedulers is non-nil, CIS_SCHEDULER in the resulting record is
// additionally checked against it once the rest of the record validates
// cleanly; an unregistered scheduler yields ErrUnknownScheduler rather
// than a ValidationErrors, matching the spec's distinction between "bad
// request" and "bad target".
func Validate(s *ServiceSchema, data map[string]any, schedulers []string) (map[string]Value, error) {
	out, errs := validateObject(s.Vars, data, "")
	if len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	if schedulers != nil {
		name, ok := Get[string](out, "CIS_SCHEDULER")
		if !ok || !contains(schedulers, name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, name)
		}
	}
	return out, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func validateObject(fields map[string]*VarSchema, data map[string]any, path string) (map[string]Value, []FieldError) {
	var errs []FieldError
	out := make(map[string]Value, len(fields))

	for key := range data {
		if _, ok := fields[key]; !ok {
			errs = append(errs, FieldError{Path: joinPath(path, key), Reason: "unknown key"})
		}
	}

	for key, vs := range fields {
		raw, present := data[key]
		if !present {
			raw = vs.Default
		}
		val, err := validateField(vs, raw, joinPath(path, key))
		if err != nil {
			errs = append(errs, FieldError{Path: joinPath(path, key), Reason: err.Error()})
			continue
		}
		out[key] = val
	}

	return out, errs
}

func validateField(vs *VarSchema, raw any, path string) (Value, error) {
	switch vs.Type {
	case Int:
		f, err := coerceNumber(raw, false)
		if err != nil {
			return Value{}, err
		}
		if f < vs.Min || f > vs.Max {
			return Value{}, fmt.Errorf("%v out of bounds [%v, %v]", f, vs.Min, vs.Max)
		}
		return Value{Type: Int, Int: int64(f)}, nil

	case Float:
		f, err := coerceNumber(raw, true)
		if err != nil {
			return Value{}, err
		}
		if f < vs.Min || f > vs.Max {
			return Value{}, fmt.Errorf("%v out of bounds [%v, %v]", f, vs.Min, vs.Max)
		}
		return Value{Type: Float, Float: f}, nil

	case String:
		str, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		if len(vs.Enum) > 0 && !contains(vs.Enum, str) {
			return Value{}, fmt.Errorf("%q not in enumeration", str)
		}
		return Value{Type: String, Str: str}, nil

	case Datetime:
		str, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected datetime string, got %T", raw)
		}
		t, err := time.Parse(vs.Layout, str)
		if err != nil {
			return Value{}, fmt.Errorf("datetime %q does not match format: %w", str, err)
		}
		return Value{Type: Datetime, Time: t}, nil

	case IntArray, FloatArray:
		return validateArray(vs, raw, path)

	case Object:
		var m map[string]any
		if raw == nil {
			m = map[string]any{}
		} else {
			var ok bool
			m, ok = raw.(map[string]any)
			if !ok {
				return Value{}, fmt.Errorf("expected object, got %T", raw)
			}
		}
		sub, errs := validateObject(vs.Fields, m, path)
		if len(errs) > 0 {
			return Value{}, ValidationErrors(errs)
		}
		return Value{Type: Object, Obj: sub}, nil

	case ObjectArray:
		var items []any
		if raw != nil {
			arr, ok := raw.([]any)
			if !ok {
				return Value{}, fmt.Errorf("expected array, got %T", raw)
			}
			items = arr
		}
		if len(items) > vs.MaxLen {
			return Value{}, fmt.Errorf("array length %d exceeds max_len %d", len(items), vs.MaxLen)
		}
		objs := make([]map[string]Value, 0, len(items))
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return Value{}, fmt.Errorf("element %d: expected object, got %T", i, item)
			}
			sub, errs := validateObject(vs.ElemFields, m, fmt.Sprintf("%s[%d]", path, i))
			if len(errs) > 0 {
				return Value{}, ValidationErrors(errs)
			}
			objs = append(objs, sub)
		}
		return Value{Type: ObjectArray, ObjArr: objs}, nil

	default:
		return Value{}, fmt.Errorf("unknown variable type %s", vs.Type)
	}
}

func validateArray(vs *VarSchema, raw any, path string) (Value, error) {
	var items []any
	if raw != nil {
		arr, ok := raw.([]any)
		if !ok {
			return Value{}, fmt.Errorf("expected array, got %T", raw)
		}
		items = arr
	}
	if len(items) > vs.MaxLen {
		return Value{}, fmt.Errorf("array length %d exceeds max_len %d", len(items), vs.MaxLen)
	}

	allowDecimal := vs.Type == FloatArray
	if vs.Type == IntArray {
		ints := make([]int64, 0, len(items))
		for i, item := range items {
			f, err := coerceNumber(item, false)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			if f < vs.InnerMin || f > vs.InnerMax {
				return Value{}, fmt.Errorf("element %d: %v out of bounds [%v, %v]", i, f, vs.InnerMin, vs.InnerMax)
			}
			ints = append(ints, int64(f))
		}
		return Value{Type: IntArray, IntArr: ints}, nil
	}

	floats := make([]float64, 0, len(items))
	for i, item := range items {
		f, err := coerceNumber(item, allowDecimal)
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		if f < vs.InnerMin || f > vs.InnerMax {
			return Value{}, fmt.Errorf("element %d: %v out of bounds [%v, %v]", i, f, vs.InnerMin, vs.InnerMax)
		}
		floats = append(floats, f)
	}
	return Value{Type: FloatArray, FloatArr: floats}, nil
}

// coerceNumber accepts a JSON number directly, or a numeric string in
// plain decimal form (no exponents, no locale separators). allowDecimal
// false rejects strings containing a decimal point, matching int's
// stricter numeric-string rule.
func coerceNumber(raw any, allowDecimal bool) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if !decimalPattern.MatchString(v) {
			return 0, fmt.Errorf("%q is not a plain decimal number", v)
		}
		if !allowDecimal && containsDot(v) {
			return 0, fmt.Errorf("%q: decimal point not allowed for this type", v)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", v, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
