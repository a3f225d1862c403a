// Package compiler lowers an AST into the flat bytecode code.Instructions the
// vm package executes, plus the constant pool those instructions reference.
//
// Compilation is a single depth-first pass over the AST. Expressions emit
// instructions that leave exactly one value on the VM's stack; statements
// emit instructions that leave the stack exactly as they found it (an
// ExpressionStatement is the one exception visible at the top level, and it
// immediately emits a matching OpPop). Variable bindings are resolved through
// a SymbolTable rather than by name at runtime: Compile only ever emits
// Get/Set instructions carrying a resolved storage class and index.
//
// Functions compile in their own nested scope (see enterScope/leaveScope) so
// that local variable indices and jump offsets never interfere with the
// enclosing scope's. Free variables a function body references are captured
// by emitting OpClosure with the constant index of the compiled function body
// and the count of free values to pop off the stack at closure-creation time;
// the compiler itself has already arranged for those values to be on the
// stack, in order, by loading them in the *enclosing* scope right before the
// OpClosure is emitted.
package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tendai-kore/simian/ast"
	"github.com/tendai-kore/simian/code"
	"github.com/tendai-kore/simian/object"
)

// emittedInstruction remembers an opcode and the byte offset it was written
// at, so the compiler can later decide to strip or rewrite it (the
// if-expression and function-body trailing-OpPop optimizations both need this).
type emittedInstruction struct {
	Opcode   code.Opcode
	Position int
}

// compilationScope is one nested level of code generation: its own
// instruction buffer plus the last two things written into it.
type compilationScope struct {
	instructions code.Instructions
	last         emittedInstruction
	previous     emittedInstruction
}

// Compiler walks an AST and produces bytecode. A zero-value Compiler is not
// ready to use; construct one with New or NewWithState.
type Compiler struct {
	constants   []object.Object
	symbolTable *SymbolTable

	scopes     []compilationScope
	scopeIndex int
}

// Bytecode is the compiled output for one Compile call: an instruction
// stream plus the constant pool it indexes into via OpConstant/OpClosure.
type Bytecode struct {
	Instructions code.Instructions
	Constants    []object.Object
}

// New creates a Compiler with an empty constant pool and a fresh global
// symbol table preloaded with every registered builtin, so identifier
// resolution finds len/first/last/rest/push/puts without the program ever
// having declared them.
func New() *Compiler {
	st := NewSymbolTable()
	for i, b := range object.Builtins {
		st.DefineBuiltin(i, b.Name)
	}

	return &Compiler{
		symbolTable: st,
		scopes:      []compilationScope{{}},
	}
}

// NewWithState creates a Compiler that continues from a previously resolved
// symbol table and constant pool — how a REPL compiles each new line of
// input against the bindings and constants every prior line established.
func NewWithState(st *SymbolTable, constants []object.Object) *Compiler {
	c := New()
	c.symbolTable = st
	c.constants = constants
	return c
}

// Compile dispatches on node's concrete type and emits the instructions that
// implement it, recursing into child nodes as needed.
func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		for _, stmt := range node.Statements {
			if err := c.Compile(stmt); err != nil {
				return err
			}
		}

	case *ast.ExpressionStatement:
		if err := c.Compile(node.Expression); err != nil {
			return err
		}
		c.emit(code.OpPop)

	case *ast.BlockStatement:
		for _, stmt := range node.Statements {
			if err := c.Compile(stmt); err != nil {
				return err
			}
		}

	case *ast.LetStatement:
		// Define before compiling the value: a recursive `let fib = fn(...) {
		// fib(...) }` needs fib resolvable while compiling its own body.
		symbol := c.symbolTable.Define(node.Name.Value)
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		if symbol.Scope == GlobalScope {
			c.emit(code.OpSetGlobal, symbol.Index)
		} else {
			c.emit(code.OpSetLocal, symbol.Index)
		}

	case *ast.ReturnStatement:
		if err := c.Compile(node.ReturnValue); err != nil {
			return err
		}
		c.emit(code.OpReturnValue)

	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(node.Value)
		if !ok {
			return fmt.Errorf("undefined variable %s", node.Value)
		}
		c.loadSymbol(symbol)

	case *ast.IntegerLiteral:
		c.emit(code.OpConstant, c.addConstant(&object.Integer{Value: node.Value}))

	case *ast.StringLiteral:
		c.emit(code.OpConstant, c.addConstant(&object.String{Value: node.Value}))

	case *ast.Boolean:
		if node.Value {
			c.emit(code.OpTrue)
		} else {
			c.emit(code.OpFalse)
		}

	case *ast.ArrayLiteral:
		for _, el := range node.Elements {
			if err := c.Compile(el); err != nil {
				return err
			}
		}
		c.emit(code.OpArray, len(node.Elements))

	case *ast.HashLiteral:
		return c.compileHashLiteral(node)

	case *ast.PrefixExpression:
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		switch node.Operator {
		case "!":
			c.emit(code.OpBang)
		case "-":
			c.emit(code.OpMinus)
		default:
			return fmt.Errorf("unknown operator %s", node.Operator)
		}

	case *ast.InfixExpression:
		return c.compileInfixExpression(node)

	case *ast.IndexExpression:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Index); err != nil {
			return err
		}
		c.emit(code.OpIndex)

	case *ast.IfExpression:
		return c.compileIfExpression(node)

	case *ast.FunctionLiteral:
		return c.compileFunctionLiteral(node)

	case *ast.CallExpression:
		if err := c.Compile(node.Function); err != nil {
			return err
		}
		for _, arg := range node.Arguments {
			if err := c.Compile(arg); err != nil {
				return err
			}
		}
		c.emit(code.OpCall, len(node.Arguments))
	}

	return nil
}

// compileInfixExpression handles `<` by swapping operands and emitting
// OpGreaterThan — the opcode set deliberately has no OpLessThan.
func (c *Compiler) compileInfixExpression(node *ast.InfixExpression) error {
	if node.Operator == "<" {
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		c.emit(code.OpGreaterThan)
		return nil
	}

	if err := c.Compile(node.Left); err != nil {
		return err
	}
	if err := c.Compile(node.Right); err != nil {
		return err
	}

	switch node.Operator {
	case "+":
		c.emit(code.OpAdd)
	case "-":
		c.emit(code.OpSub)
	case "*":
		c.emit(code.OpMul)
	case "/":
		c.emit(code.OpDiv)
	case ">":
		c.emit(code.OpGreaterThan)
	case "==":
		c.emit(code.OpEqual)
	case "!=":
		c.emit(code.OpNotEqual)
	default:
		return fmt.Errorf("unknown operator %s", node.Operator)
	}
	return nil
}

// compileIfExpression back-patches two jumps: the first skips the consequence
// when the condition is falsy, the second skips the alternative after the
// consequence has run. Both branches have their trailing OpPop stripped (an
// if-expression, unlike an if-statement, must leave its value on the stack
// for whatever used it as an expression), and a missing alternative compiles
// to OpNull so the stack effect is the same either way.
func (c *Compiler) compileIfExpression(node *ast.IfExpression) error {
	if err := c.Compile(node.Condition); err != nil {
		return err
	}

	jumpNotTruthyPos := c.emit(code.OpJumpNotTruthy, 9999)

	if err := c.Compile(node.Consequence); err != nil {
		return err
	}
	if c.lastInstructionIs(code.OpPop) {
		c.removeLastPop()
	}

	jumpPos := c.emit(code.OpJump, 9999)
	c.changeOperand(jumpNotTruthyPos, len(c.currentInstructions()))

	if node.Alternative == nil {
		c.emit(code.OpNull)
	} else {
		if err := c.Compile(node.Alternative); err != nil {
			return err
		}
		if c.lastInstructionIs(code.OpPop) {
			c.removeLastPop()
		}
	}
	c.changeOperand(jumpPos, len(c.currentInstructions()))

	return nil
}

// compileHashLiteral sorts keys by their source-expression text before
// compiling them, so the same literal always compiles to the same
// instruction stream regardless of Go map iteration order.
func (c *Compiler) compileHashLiteral(node *ast.HashLiteral) error {
	keys := make([]ast.Expression, 0, len(node.Pairs))
	for k := range node.Pairs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b ast.Expression) int {
		return strings.Compare(a.String(), b.String())
	})

	for _, k := range keys {
		if err := c.Compile(k); err != nil {
			return err
		}
		if err := c.Compile(node.Pairs[k]); err != nil {
			return err
		}
	}
	c.emit(code.OpHash, len(node.Pairs)*2)
	return nil
}

// compileFunctionLiteral compiles node's body in its own scope, then emits
// OpClosure in the enclosing scope after first loading each free value the
// body captured (in capture order, matching what OpGetFree expects).
func (c *Compiler) compileFunctionLiteral(node *ast.FunctionLiteral) error {
	c.enterScope()

	if node.Name != "" {
		c.symbolTable.DefineFunctionName(node.Name)
	}
	for _, p := range node.Parameters {
		c.symbolTable.Define(p.Value)
	}

	if err := c.Compile(node.Body); err != nil {
		return err
	}

	if c.lastInstructionIs(code.OpPop) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(code.OpReturnValue) {
		c.emit(code.OpReturn)
	}

	free := c.symbolTable.FreeSymbols
	numLocals := c.symbolTable.nextID
	instructions := c.leaveScope()

	for _, s := range free {
		c.loadSymbol(s)
	}

	fn := &object.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     numLocals,
		NumParameters: len(node.Parameters),
	}
	c.emit(code.OpClosure, c.addConstant(fn), len(free))
	return nil
}

// loadSymbol emits the Get instruction matching s's storage class.
func (c *Compiler) loadSymbol(s Symbol) {
	switch s.Scope {
	case GlobalScope:
		c.emit(code.OpGetGlobal, s.Index)
	case LocalScope:
		c.emit(code.OpGetLocal, s.Index)
	case BuiltinScope:
		c.emit(code.OpGetBuiltin, s.Index)
	case FreeScope:
		c.emit(code.OpGetFree, s.Index)
	case FunctionScope:
		c.emit(code.OpCurrentClosure)
	}
}

func (c *Compiler) addConstant(obj object.Object) int {
	c.constants = append(c.constants, obj)
	return len(c.constants) - 1
}

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	pos := c.addInstruction(code.Make(op, operands...))
	c.setLastInstruction(op, pos)
	return pos
}

func (c *Compiler) addInstruction(ins []byte) int {
	pos := len(c.currentInstructions())
	c.scopes[c.scopeIndex].instructions = append(c.currentInstructions(), ins...)
	return pos
}

func (c *Compiler) setLastInstruction(op code.Opcode, pos int) {
	c.scopes[c.scopeIndex].previous = c.scopes[c.scopeIndex].last
	c.scopes[c.scopeIndex].last = emittedInstruction{Opcode: op, Position: pos}
}

func (c *Compiler) currentInstructions() code.Instructions {
	return c.scopes[c.scopeIndex].instructions
}

func (c *Compiler) lastInstructionIs(op code.Opcode) bool {
	if len(c.currentInstructions()) == 0 {
		return false
	}
	return c.scopes[c.scopeIndex].last.Opcode == op
}

func (c *Compiler) removeLastPop() {
	scope := c.scopes[c.scopeIndex]
	c.scopes[c.scopeIndex].instructions = c.currentInstructions()[:scope.last.Position]
	c.scopes[c.scopeIndex].last = scope.previous
}

func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	ins := c.currentInstructions()
	copy(ins[pos:], newInstruction)
}

func (c *Compiler) changeOperand(opPos, operand int) {
	op := code.Opcode(c.currentInstructions()[opPos])
	c.replaceInstruction(opPos, code.Make(op, operand))
}

func (c *Compiler) replaceLastPopWithReturn() {
	lastPos := c.scopes[c.scopeIndex].last.Position
	c.replaceInstruction(lastPos, code.Make(code.OpReturnValue))
	c.scopes[c.scopeIndex].last.Opcode = code.OpReturnValue
}

// enterScope pushes a new compilation scope and nests the symbol table one
// level deeper, so locals defined from here on don't collide with the
// enclosing scope's.
func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, compilationScope{})
	c.scopeIndex++
	c.symbolTable = NewEnclosedSymbolTable(c.symbolTable)
}

// leaveScope pops the current scope, restores the enclosing symbol table,
// and returns the instructions the popped scope accumulated.
func (c *Compiler) leaveScope() code.Instructions {
	ins := c.currentInstructions()
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.symbolTable = c.symbolTable.Outer
	return ins
}

// Bytecode returns the compiled instructions and constant pool accumulated
// so far in the outermost scope.
func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.currentInstructions(),
		Constants:    c.constants,
	}
}
