package kvalue

import "slug/internal/decimal"

// Decimal is the kernel decimal value, backed by internal/decimal.Num — a
// coefficient+exponent representation rather than a from-scratch 128-bit
// software decimal: no example in the retrieval pack implements true
// 128-bit decimal arithmetic, and Num's banker's-rounding division and
// normalize-toward-zero behavior are exactly what spec.md §3's "decimals"
// need for the `-1m` literal form used in the Factorial scenario.
type Decimal struct {
	v decimal.Num
}

func NewDecimal(coef int64, exp int8) Decimal {
	return Decimal{v: decimal.New(coef, exp)}
}

func DecimalFromInt64(n int64) Decimal {
	return Decimal{v: decimal.FromInt64(n)}
}

func DecimalFromString(s string) (Decimal, error) {
	d, err := decimal.FromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{v: d}, nil
}

func (Decimal) Type() string      { return "Decimal" }
func (d Decimal) Inspect() string { return d.v.String() + "m" }
func (Decimal) IsValueOrVar()     {}

func (d Decimal) Add(o Decimal) Decimal { return Decimal{v: d.v.Add(o.v)} }
func (d Decimal) Sub(o Decimal) Decimal { return Decimal{v: d.v.Sub(o.v)} }
func (d Decimal) Mul(o Decimal) Decimal { return Decimal{v: d.v.Mul(o.v)} }
func (d Decimal) Div(o Decimal) Decimal { return Decimal{v: d.v.Div(o.v)} }
func (d Decimal) Mod(o Decimal) Decimal { return Decimal{v: d.v.Mod(o.v)} }
func (d Decimal) Neg() Decimal          { return Decimal{v: d.v.Neg()} }
func (d Decimal) Cmp(o Decimal) int     { return d.v.Cmp(o.v) }
func (d Decimal) Eq(o Decimal) bool     { return d.v.Eq(o.v) }
func (d Decimal) Lt(o Decimal) bool     { return d.v.Lt(o.v) }
func (d Decimal) Le(o Decimal) bool     { return d.v.Le(o.v) }
func (d Decimal) Gt(o Decimal) bool     { return d.v.Gt(o.v) }
func (d Decimal) Ge(o Decimal) bool     { return d.v.Ge(o.v) }
func (d Decimal) IsZero() bool          { return d.v.IsZero() }
func (d Decimal) ToInt64() int64        { return d.v.ToInt64() }
