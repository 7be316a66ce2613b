package klvm

import (
	"fmt"

	"slug/internal/kvalue"
	"slug/internal/store"
)

// arith implements the five arithmetic instructions over Int64/Decimal (with
// Int64 promoted to Decimal when mixed) and Str concatenation for OpAdd.
func arith(op ArithOp, a, b kvalue.Value) (kvalue.Value, error) {
	if as, ok := a.(kvalue.Str); ok {
		if bs, ok := b.(kvalue.Str); ok && op == OpAdd {
			return as + bs, nil
		}
	}
	_, aIsDec := a.(kvalue.Decimal)
	_, bIsDec := b.(kvalue.Decimal)
	ai, aIsInt := a.(kvalue.Int64)
	bi, bIsInt := b.(kvalue.Int64)
	if (aIsDec || bIsDec) && (aIsDec || aIsInt) && (bIsDec || bIsInt) {
		ad, _ := toDecimal(a)
		bd, _ := toDecimal(b)
		return decimalArith(op, ad, bd)
	}
	if aIsInt && bIsInt {
		return intArith(op, ai, bi)
	}
	return nil, fmt.Errorf("E_INVALID_ARG: arithmetic on incompatible types %s/%s", a.Type(), b.Type())
}

func toDecimal(v kvalue.Value) (kvalue.Decimal, bool) {
	switch d := v.(type) {
	case kvalue.Decimal:
		return d, true
	case kvalue.Int64:
		return kvalue.DecimalFromInt64(int64(d)), false
	default:
		return kvalue.Decimal{}, false
	}
}

func intArith(op ArithOp, a, b kvalue.Int64) (kvalue.Value, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return nil, fmt.Errorf("E_DIVIDE_BY_ZERO: integer division by zero")
		}
		return a / b, nil
	case OpMod:
		if b == 0 {
			return nil, fmt.Errorf("E_DIVIDE_BY_ZERO: integer modulo by zero")
		}
		return a % b, nil
	default:
		return nil, fmt.Errorf("E_INVALID_ARG: unknown arithmetic op")
	}
}

func decimalArith(op ArithOp, a, b kvalue.Decimal) (kvalue.Value, error) {
	switch op {
	case OpAdd:
		return a.Add(b), nil
	case OpSub:
		return a.Sub(b), nil
	case OpMul:
		return a.Mul(b), nil
	case OpDiv:
		if b.IsZero() {
			return nil, fmt.Errorf("E_DIVIDE_BY_ZERO: decimal division by zero")
		}
		return a.Div(b), nil
	case OpMod:
		if b.IsZero() {
			return nil, fmt.Errorf("E_DIVIDE_BY_ZERO: decimal modulo by zero")
		}
		return a.Mod(b), nil
	default:
		return nil, fmt.Errorf("E_INVALID_ARG: unknown arithmetic op")
	}
}

// compare implements the six comparisons. Eq/Ne accept any pair of values;
// the four ordering comparisons require both operands to be Int64, Decimal,
// or Str.
func compare(op CmpOp, a, b kvalue.Value) (bool, error) {
	if op == OpEq || op == OpNe {
		eq := valuesEqual(a, b)
		if op == OpEq {
			return eq, nil
		}
		return !eq, nil
	}
	if ad, aIsDec := toDecimal(a); aIsDec {
		bd, bIsDec := toDecimal(b)
		if !bIsDec {
			return false, fmt.Errorf("E_INVALID_ARG: comparison on incompatible types %s/%s", a.Type(), b.Type())
		}
		return decimalCompare(op, ad, bd), nil
	}
	if ai, ok := a.(kvalue.Int64); ok {
		if bi, ok := b.(kvalue.Int64); ok {
			return decimalCompare(op, kvalue.DecimalFromInt64(int64(ai)), kvalue.DecimalFromInt64(int64(bi))), nil
		}
	}
	if as, ok := a.(kvalue.Str); ok {
		if bs, ok := b.(kvalue.Str); ok {
			return strCompare(op, string(as), string(bs)), nil
		}
	}
	return false, fmt.Errorf("E_INVALID_ARG: comparison on incompatible types %s/%s", a.Type(), b.Type())
}

func decimalCompare(op CmpOp, a, b kvalue.Decimal) bool {
	switch op {
	case OpLt:
		return a.Lt(b)
	case OpLe:
		return a.Le(b)
	case OpGt:
		return a.Gt(b)
	case OpGe:
		return a.Ge(b)
	default:
		return false
	}
}

func strCompare(op CmpOp, a, b string) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		return false
	}
}

// valuesEqual mirrors store's internal equality rule (kvalue.Decimal compares
// via Eq, everything else via Go ==) so Cmp and unification agree on what
// "equal" means.
func valuesEqual(a, b kvalue.Value) bool {
	if ad, ok := a.(kvalue.Decimal); ok {
		if bd, ok := b.(kvalue.Decimal); ok {
			return ad.Eq(bd)
		}
		return false
	}
	return a == b
}

// matchCase finds the first clause whose label matches val's record/tuple
// label (or, for a label-less wildcard clause with exactly one binding,
// always matches and binds the whole value), positionally binding Bindings
// to the matched value's features in declaration order.
func matchCase(clauses []CaseClause, val kvalue.Value) (CaseClause, []Binding, bool) {
	for _, c := range clauses {
		if c.Label == "" {
			if len(c.Bindings) == 1 {
				v := store.NewVar(c.Bindings[0])
				if err := store.Bind(v, val); err != nil {
					continue
				}
				return c, []Binding{{Name: c.Bindings[0], Var: v}}, true
			}
			return c, nil, true
		}
		rec, ok := asRecord(val)
		if !ok || rec.Label != c.Label {
			continue
		}
		if len(c.Bindings) == 0 {
			return c, nil, true
		}
		bindings := make([]Binding, 0, len(c.Bindings))
		for i, name := range c.Bindings {
			if i >= len(rec.Order) {
				break
			}
			fv, _ := rec.Get(rec.Order[i])
			v := store.NewVar(name)
			if err := store.Bind(v, fv); err != nil {
				return CaseClause{}, nil, false
			}
			bindings = append(bindings, Binding{Name: name, Var: v})
		}
		return c, bindings, true
	}
	return CaseClause{}, nil, false
}

func asRecord(val kvalue.Value) (*kvalue.Record, bool) {
	switch v := val.(type) {
	case *kvalue.Record:
		return v, true
	case *kvalue.Tuple:
		return v.ToRecord(), true
	default:
		return nil, false
	}
}
