package evaluator

import "github.com/tendai-kore/simian/object"

// builtins is the evaluator's view of object.Builtins, keyed by name for
// evalIdentifier's fallback lookup. The compiler/VM path resolves the same
// registry by position (see compiler.New); this map exists only because the
// evaluator resolves identifiers by name instead.
var builtins = func() map[string]*object.Builtin {
	m := make(map[string]*object.Builtin, len(object.Builtins))
	for _, def := range object.Builtins {
		m[def.Name] = def.Builtin
	}
	return m
}()
