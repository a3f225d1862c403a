// Package object defines the runtime value system shared by the tree-walking
// evaluator and the compiler+VM pair.
//
// A value is always one of a closed set of tagged variants: Integer, Boolean,
// String, Null, Array, Hash, Error, Function (evaluator-only), CompiledFunction,
// Closure and Builtin. Both execution strategies share this same model so that
// their results can be compared directly — see the evaluator and vm packages.
package object

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/tendai-kore/simian/ast"
	"github.com/tendai-kore/simian/code"
)

// Type tags a runtime value with its kind. Kept as a string rather than an
// int enum because Inspect/debug output prints it directly.
type Type string

//nolint:revive
const (
	INTEGER_OBJ           Type = "INTEGER"
	BOOLEAN_OBJ           Type = "BOOLEAN"
	STRING_OBJ            Type = "STRING"
	NULL_OBJ              Type = "NULL"
	RETURN_VALUE_OBJ      Type = "RETURN_VALUE"
	ERROR_OBJ             Type = "ERROR"
	FUNCTION_OBJ          Type = "FUNCTION"
	BUILTIN_OBJ           Type = "BUILTIN"
	ARRAY_OBJ             Type = "ARRAY"
	HASH_OBJ              Type = "HASH"
	COMPILED_FUNCTION_OBJ Type = "COMPILED_FUNCTION_OBJ"
	CLOSURE_OBJ           Type = "CLOSURE"
)

// Object is implemented by every runtime value.
type Object interface {
	Type() Type
	Inspect() string
}

// Hashable is implemented by the value kinds that may be used as a Hash key:
// Integer, Boolean and String. Using any other Object as a key is a runtime
// error, detected with a type assertion against this interface.
type Hashable interface {
	HashKey() HashKey
}

// HashKey is the lookup key a Hashable value reduces to. Embedding Type keeps
// keys disjoint across kinds even when their Value bits collide, e.g.
// Integer(1), Boolean(true) and String("\x01") never compare equal.
type HashKey struct {
	Type  Type
	Value uint64
}

// Integer is a signed 64-bit value. Arithmetic on Integers wraps on overflow,
// matching Go's native int64 semantics (see the vm and evaluator packages).
type Integer struct {
	Value int64
}

func (i *Integer) Type() Type      { return INTEGER_OBJ }
func (i *Integer) Inspect() string { return strconv.FormatInt(i.Value, 10) }

// HashKey hashes an Integer's own bit pattern; distinct integers never collide.
func (i *Integer) HashKey() HashKey {
	return HashKey{Type: i.Type(), Value: uint64(i.Value)} //nolint:gosec
}

// Boolean wraps a native bool. The evaluator and VM each keep exactly two
// Boolean instances (TRUE/FALSE) and compare booleans by pointer identity.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() Type      { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string { return strconv.FormatBool(b.Value) }

func (b *Boolean) HashKey() HashKey {
	var v uint64
	if b.Value {
		v = 1
	}
	return HashKey{Type: b.Type(), Value: v}
}

// String is an immutable byte sequence. Its hash key is memoized on first use
// since strings are commonly reused as hash keys in loops.
type String struct {
	Value string

	cachedKey *HashKey
}

func (s *String) Type() Type      { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

func (s *String) HashKey() HashKey {
	if s.cachedKey != nil {
		return *s.cachedKey
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Value)) // hash/fnv's Write never errors

	key := HashKey{Type: s.Type(), Value: h.Sum64()}
	s.cachedKey = &key
	return key
}

// Null is the language's single absent-value singleton.
type Null struct{}

func (n *Null) Type() Type      { return NULL_OBJ }
func (n *Null) Inspect() string { return "null" }

// ReturnValue wraps the operand of a return statement so that the
// evaluator's block-statement loop can tell "produced a value" apart from
// "is unwinding out of the function" as it propagates up the AST.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() Type      { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string { return rv.Value.Inspect() }

// Error carries a human-readable runtime error message. The evaluator
// short-circuits on encountering one, the same way ReturnValue does.
type Error struct {
	Message string
}

func (e *Error) Type() Type      { return ERROR_OBJ }
func (e *Error) Inspect() string { return "ERROR: " + e.Message }

// Function is a user-defined function as produced by the evaluator: its
// parameters and body reference the AST directly, and Env closes over the
// defining scope. The compiler never constructs a Function — it lowers
// function literals to CompiledFunction/Closure instead.
type Function struct {
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
	Env        *Environment
}

func (f *Function) Type() Type { return FUNCTION_OBJ }

func (f *Function) Inspect() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.String()
	}

	var out strings.Builder
	out.WriteString("fn(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") {\n")
	out.WriteString(f.Body.String())
	out.WriteString("\n}")
	return out.String()
}

// BuiltinFunction is the Go function signature every builtin implements.
// Returning a non-nil *Error signals a builtin-level runtime error; both the
// evaluator and the VM recognize that convention and propagate it.
type BuiltinFunction func(args ...Object) Object

// Builtin wraps a BuiltinFunction as a first-class value so it can be pushed
// onto the VM's stack or bound in the evaluator's environment like any other.
type Builtin struct {
	Fn BuiltinFunction
}

func (b *Builtin) Type() Type      { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "builtin function" }

// Array is an ordered, heterogeneous sequence. Indexing past its bounds
// yields Null rather than an error (see vm.executeArrayIndex /
// evaluator's index-expression handling).
type Array struct {
	Elements []Object
}

func (a *Array) Type() Type { return ARRAY_OBJ }

func (a *Array) Inspect() string {
	elems := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elems[i] = e.Inspect()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// HashPair retains the original key Object alongside its Value so Inspect
// can print the key's own representation rather than its opaque HashKey.
type HashPair struct {
	Key   Object
	Value Object
}

// Hash maps HashKeys to HashPairs. Only Integer, Boolean and String values
// may be used as keys; iteration order is unspecified and not observable
// from the language.
type Hash struct {
	Pairs map[HashKey]HashPair
}

func (h *Hash) Type() Type { return HASH_OBJ }

func (h *Hash) Inspect() string {
	pairs := make([]string, 0, len(h.Pairs))
	for _, pair := range h.Pairs {
		pairs = append(pairs, fmt.Sprintf("%s: %s", pair.Key.Inspect(), pair.Value.Inspect()))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// CompiledFunction is the constant-pool representation of a function body:
// a flat instruction stream plus the slot counts the VM needs to reserve a
// call frame for it. A CompiledFunction never appears on the VM's value
// stack directly — OpClosure always wraps it in a Closure first, even when
// it captures zero free variables.
type CompiledFunction struct {
	Instructions  code.Instructions
	NumLocals     int
	NumParameters int
}

func (cf *CompiledFunction) Type() Type { return COMPILED_FUNCTION_OBJ }
func (cf *CompiledFunction) Inspect() string {
	return fmt.Sprintf("CompiledFunction[%p]", cf)
}

// Closure pairs a CompiledFunction with the values its free variables
// resolved to at the point the closure was created.
type Closure struct {
	Fn   *CompiledFunction
	Free []Object
}

func (c *Closure) Type() Type      { return CLOSURE_OBJ }
func (c *Closure) Inspect() string { return fmt.Sprintf("Closure[%p]", c) }
