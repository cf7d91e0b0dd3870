package module

import "fmt"

// Config is a module's immutable option map, fixed at construction.
// Accessors that return an error make a missing required option a fatal
// construction-time failure instead of a silent default.
type Config map[string]any

// Require returns the named option or an error naming it.
func (c Config) Require(name string) (any, error) {
	v, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("missing required config option %q", name)
	}
	return v, nil
}

// RequireInt returns the named option as an int. HCL decodes numbers as
// int64 or float64 depending on the path taken, so both are accepted.
func (c Config) RequireInt(name string) (int, error) {
	v, err := c.Require(name)
	if err != nil {
		return 0, err
	}
	n, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("config option %q: expected integer, got %T", name, v)
	}
	return n, nil
}

// RequireString returns the named option as a string.
func (c Config) RequireString(name string) (string, error) {
	v, err := c.Require(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config option %q: expected string, got %T", name, v)
	}
	return s, nil
}

// RequireIntSlice returns the named option as a []int.
func (c Config) RequireIntSlice(name string) ([]int, error) {
	v, err := c.Require(name)
	if err != nil {
		return nil, err
	}
	switch vals := v.(type) {
	case []int:
		return vals, nil
	case []any:
		out := make([]int, len(vals))
		for i, item := range vals {
			n, ok := asInt(item)
			if !ok {
				return nil, fmt.Errorf("config option %q[%d]: expected integer, got %T", name, i, item)
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("config option %q: expected integer list, got %T", name, v)
}

// Int returns the named option as an int, or def when absent.
func (c Config) Int(name string, def int) int {
	if v, ok := c[name]; ok {
		if n, isInt := asInt(v); isInt {
			return n
		}
	}
	return def
}

// Bool returns the named option as a bool, or def when absent.
func (c Config) Bool(name string, def bool) bool {
	if v, ok := c[name]; ok {
		if b, isBool := v.(bool); isBool {
			return b
		}
	}
	return def
}

// Float returns the named option as a float64, or def when absent.
func (c Config) Float(name string, def float64) float64 {
	if v, ok := c[name]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

// String returns the named option as a string, or def when absent.
func (c Config) String(name, def string) string {
	if v, ok := c[name]; ok {
		if s, isStr := v.(string); isStr {
			return s
		}
	}
	return def
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
