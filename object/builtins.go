package object

import "fmt"

// builtinDef pairs a builtin's registry name with its implementation. Order
// in Builtins is significant: the compiler assigns GetBuiltin operand indices
// by position in this slice (see compiler.New), so appending a new builtin is
// safe but reordering or removing an entry would change what existing
// bytecode calls.
type builtinDef struct {
	Name    string
	Builtin *Builtin
}

// Builtins is the minimum builtin registry required by the language: len,
// first, last, rest, push and puts.
var Builtins = []builtinDef{
	{"len", &Builtin{Fn: builtinLen}},
	{"first", &Builtin{Fn: builtinFirst}},
	{"last", &Builtin{Fn: builtinLast}},
	{"rest", &Builtin{Fn: builtinRest}},
	{"push", &Builtin{Fn: builtinPush}},
	{"puts", &Builtin{Fn: builtinPuts}},
}

func builtinLen(args ...Object) Object {
	if len(args) != 1 {
		return arityError(1, len(args))
	}
	switch arg := args[0].(type) {
	case *String:
		return &Integer{Value: int64(len(arg.Value))}
	case *Array:
		return &Integer{Value: int64(len(arg.Elements))}
	default:
		return newError("argument to `len` not supported, got %s", args[0].Type())
	}
}

func builtinFirst(args ...Object) Object {
	if len(args) != 1 {
		return arityError(1, len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return newError("argument to `first` must be ARRAY, got %s", args[0].Type())
	}
	if len(arr.Elements) == 0 {
		return nil
	}
	return arr.Elements[0]
}

func builtinLast(args ...Object) Object {
	if len(args) != 1 {
		return arityError(1, len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return newError("argument to `last` must be ARRAY, got %s", args[0].Type())
	}
	if n := len(arr.Elements); n > 0 {
		return arr.Elements[n-1]
	}
	return nil
}

func builtinRest(args ...Object) Object {
	if len(args) != 1 {
		return arityError(1, len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return newError("argument to `rest` must be ARRAY, got %s", args[0].Type())
	}
	n := len(arr.Elements)
	if n == 0 {
		return nil
	}
	rest := make([]Object, n-1)
	copy(rest, arr.Elements[1:])
	return &Array{Elements: rest}
}

func builtinPush(args ...Object) Object {
	if len(args) != 2 {
		return arityError(2, len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return newError("argument to `push` must be ARRAY, got %s", args[0].Type())
	}
	n := len(arr.Elements)
	pushed := make([]Object, n+1)
	copy(pushed, arr.Elements)
	pushed[n] = args[1]
	return &Array{Elements: pushed}
}

func builtinPuts(args ...Object) Object {
	for _, arg := range args {
		fmt.Println(arg.Inspect())
	}
	return nil
}

func arityError(want, got int) *Error {
	return newError("wrong number of arguments. got=%d, want=%d", got, want)
}

func newError(format string, a ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

// GetBuiltinByName returns the Builtin registered under name, or nil if no
// such builtin exists.
func GetBuiltinByName(name string) *Builtin {
	for _, def := range Builtins {
		if def.Name == name {
			return def.Builtin
		}
	}
	return nil
}
