package compiler

import "fmt"

// Type is the closed set of value types in the language. Unresolved is the
// zero value every expression carries until the type checker runs.
type Type int

const (
	Unresolved Type = iota
	Int             // 4-byte signed
	Long            // 8-byte signed
	Void            // function results only
)

var typeNames = [...]string{
	Unresolved: "<unresolved>",
	Int:        "int",
	Long:       "long",
	Void:       "void",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Size returns the storage size in bytes; 0 for Void and Unresolved.
func (t Type) Size() int {
	switch t {
	case Int:
		return 4
	case Long:
		return 8
	}
	return 0
}

// IsScalar reports whether values of t can be stored and computed with.
func (t Type) IsScalar() bool {
	return t == Int || t == Long
}

// commonType is the usual arithmetic conversion restricted to int and long.
func commonType(a, b Type) Type {
	if a == Long || b == Long {
		return Long
	}
	return Int
}

// convertConst converts a compile-time value to t the way a store of that
// value into a t-typed object would.
func convertConst(v int64, t Type) int64 {
	if t == Int {
		return int64(int32(v))
	}
	return v
}
