package lir

// ConstKind tags an entry in a cell's constant pool.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstNull
	ConstString
	ConstBigInt
)

// Const is one constant-pool entry. Only the field matching Kind is
// meaningful; the rest are zero.
type Const struct {
	Kind   ConstKind
	Int    int64
	Float  float64
	Bool   bool
	Str    string
	BigInt []byte // two's-complement little-endian magnitude, arbitrary width
}

func ConstOfInt(i int64) Const       { return Const{Kind: ConstInt, Int: i} }
func ConstOfFloat(f float64) Const   { return Const{Kind: ConstFloat, Float: f} }
func ConstOfBool(b bool) Const       { return Const{Kind: ConstBool, Bool: b} }
func ConstOfNull() Const             { return Const{Kind: ConstNull} }
func ConstOfString(s string) Const   { return Const{Kind: ConstString, Str: s} }
func ConstOfBigInt(b []byte) Const   { return Const{Kind: ConstBigInt, BigInt: b} }
