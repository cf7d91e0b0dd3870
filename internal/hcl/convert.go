package hcl

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// ctyToGo converts an evaluated cty.Value into a plain Go value suitable
// for a module.Config entry. Whole numbers become int, other numbers
// float64; lists, sets and tuples become []any; maps and objects become
// map[string]any.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsKnown() {
		return nil, fmt.Errorf("cannot convert unknown value")
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		return numberToGo(val.AsBigFloat()), nil
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			goElem, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, goElem)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, elem := it.Element()
			goElem, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = goElem
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported config value type %s", ty.FriendlyName())
}

func numberToGo(f *big.Float) any {
	if n, acc := f.Int64(); acc == big.Exact {
		return int(n)
	}
	out, _ := f.Float64()
	return out
}
