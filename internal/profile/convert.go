package profile

import (
	"github.com/zclconf/go-cty/cty"
)

// isTrue reads a condition result. Anything but a known boolean true is
// false, so a condition that evaluates to a string or null fails closed.
func isTrue(v cty.Value) bool {
	return v.Type() == cty.Bool && !v.IsNull() && v.IsKnown() && v.True()
}

// ctyToGo converts an evaluated cty value into the plain Go shapes the
// scenario engine works with: bool, string, int/float64, []any and
// map[string]any. Whole numbers come back as int so parameter values keep
// the type scenario authors wrote.
func ctyToGo(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}

	t := v.Type()
	switch {
	case t == cty.Bool:
		return v.True()
	case t == cty.String:
		return v.AsString()
	case t == cty.Number:
		f := v.AsBigFloat()
		if f.IsInt() {
			i, _ := f.Int64()
			return int(i)
		}
		fl, _ := f.Float64()
		return fl
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ctyToGo(ev))
		}
		return out
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			out[kv.AsString()] = ctyToGo(ev)
		}
		return out
	default:
		return nil
	}
}
