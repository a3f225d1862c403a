// Package repl implements the Read-Eval-Print Loop for the Monkey
// programming language.
//
// The REPL provides an interactive interface for users to enter Monkey code
// and see it compiled and executed immediately. It uses the Charm libraries
// (Bubble Tea, Bubbles, and Lipgloss) for a modern terminal interface with
// syntax highlighting and command history.
//
// Each line of input is compiled against a symbol table and constant pool
// that persist for the life of the session, then run on a VM sharing a
// single globals slab — so a `let` bound on one line is visible to every
// line after it, the same way top-level bindings persist in a running
// program. A `:eval` toggle reroutes input through the reference
// tree-walking evaluator instead, for comparing the two execution paths
// live; `:dis` shows the bytecode the last input compiled to; `:env` lists
// current global bindings.
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tendai-kore/simian/code"
	"github.com/tendai-kore/simian/compiler"
	"github.com/tendai-kore/simian/evaluator"
	"github.com/tendai-kore/simian/lexer"
	"github.com/tendai-kore/simian/object"
	"github.com/tendai-kore/simian/parser"
	"github.com/tendai-kore/simian/token"
	"github.com/tendai-kore/simian/vm"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = ">> "
	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = ".. "
)

// Options configures the REPL.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Enable debug mode with more verbose output
}

// Start initializes and runs the REPL for username with the given options.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	errorTipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	disassemblyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8BE9FD"))

	evaluatorTagStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFB86C")).
				Bold(true)

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// ErrorType classifies why an input failed, so View can style it accordingly.
type ErrorType int

const (
	NoError ErrorType = iota
	ParseError
	RuntimeError
)

// evalResultMsg carries the outcome of one asynchronously evaluated input
// back into the Bubble Tea event loop.
type evalResultMsg struct {
	output       string
	isError      bool
	errorType    ErrorType
	elapsed      time.Duration
	viaEvaluator bool

	// constants is the compiler's constant pool after compiling this input.
	// Only meaningful (and only applied to the model) when !viaEvaluator.
	constants        []object.Object
	lastInstructions code.Instructions
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
	viaEvaluator   bool
}

// model is the REPL's Bubble Tea state. Two execution paths share it: the
// default compiler+VM pipeline (symbolTable/constants/globals persist across
// inputs) and the reference evaluator (env persists instead), selected by
// useEvaluator.
type model struct {
	textInput textinput.Model
	spinner   spinner.Model

	history         []historyEntry
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool

	options   Options
	sessionID uuid.UUID

	symbolTable *compiler.SymbolTable
	constants   []object.Object
	globals     []object.Object

	evalEnv *object.Environment

	useEvaluator bool

	lastInstructions code.Instructions
	fnTags           map[int]string
}

func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter Monkey code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	symbolTable := compiler.NewSymbolTable()
	for i, b := range object.Builtins {
		symbolTable.DefineBuiltin(i, b.Name)
	}

	return model{
		textInput:   ti,
		spinner:     s,
		username:    username,
		options:     options,
		sessionID:   uuid.New(),
		symbolTable: symbolTable,
		constants:   []object.Object{},
		globals:     make([]object.Object, vm.GlobalsSize),
		evalEnv:     object.NewEnvironment(),
		fnTags:      make(map[int]string),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced reports whether brackets, braces and parens in input are
// balanced, so the REPL knows whether to wait for more lines before evaluating.
func isBalanced(input string) bool {
	var stack []rune

	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0
}

// evalCmd compiles and runs input through the VM pipeline, sharing m's
// symbol table, constants and globals across calls. When m.useEvaluator is
// set it instead walks the AST directly with the evaluator package against
// m.evalEnv.
func evalCmd(input string, m model) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		l := lexer.New(input)
		p := parser.New(l)
		program := p.ParseProgram()

		if len(p.Errors()) != 0 {
			return evalResultMsg{
				output:       formatParseErrors(p.Errors()),
				isError:      true,
				errorType:    ParseError,
				elapsed:      time.Since(start),
				viaEvaluator: m.useEvaluator,
			}
		}

		if m.useEvaluator {
			evaluated := evaluator.Eval(program, m.evalEnv)
			return evaluatorResultMsg(evaluated, start, m.options.Debug, m.sessionID)
		}

		comp := compiler.NewWithState(m.symbolTable, m.constants)
		if err := comp.Compile(program); err != nil {
			return evalResultMsg{
				output:       formatRuntimeError(fmt.Sprintf("compile error: %s", err)),
				isError:      true,
				errorType:    RuntimeError,
				elapsed:      time.Since(start),
				viaEvaluator: false,
			}
		}

		bytecode := comp.Bytecode()
		machine := vm.NewWithGlobalStore(bytecode, m.globals)
		if err := machine.Run(); err != nil {
			return evalResultMsg{
				output:       formatRuntimeError(err.Error()),
				isError:      true,
				errorType:    RuntimeError,
				elapsed:      time.Since(start),
				viaEvaluator: false,
				constants:    bytecode.Constants,
			}
		}

		elapsed := time.Since(start)
		if m.options.Debug {
			fmt.Printf("DEBUG[%s]: compiled %d bytes, %d constants, elapsed=%s\n",
				shortSession(m.sessionID), len(bytecode.Instructions), len(bytecode.Constants), elapsed)
		}

		result := machine.LastPoppedStackElem()
		output := "nil"
		if result != nil {
			output = result.Inspect()
		}

		return evalResultMsg{
			output:           output,
			elapsed:          elapsed,
			viaEvaluator:     false,
			constants:        bytecode.Constants,
			lastInstructions: bytecode.Instructions,
		}
	}
}

func evaluatorResultMsg(evaluated object.Object, start time.Time, debug bool, sessionID uuid.UUID) evalResultMsg {
	elapsed := time.Since(start)
	output := "nil"
	isError := false
	errorType := NoError

	if evaluated != nil {
		if evaluated.Type() == object.ERROR_OBJ {
			isError = true
			errorType = RuntimeError
			output = formatRuntimeError(evaluated.Inspect())
		} else {
			output = evaluated.Inspect()
		}
	}

	if debug {
		fmt.Printf("DEBUG[%s]: evaluator result type=%v elapsed=%s\n", shortSession(sessionID), evaluated, elapsed)
	}

	return evalResultMsg{
		output:       output,
		isError:      isError,
		errorType:    errorType,
		elapsed:      elapsed,
		viaEvaluator: true,
	}
}

func shortSession(id uuid.UUID) string {
	s := id.String()
	if len(s) < 8 {
		return s
	}
	return s[:8]
}

// runCommand handles a leading-colon REPL command synchronously and reports
// whether input was in fact a command (as opposed to ordinary source).
func (m *model) runCommand(input string) (handled bool, output string) {
	switch strings.TrimSpace(input) {
	case ":dis":
		if m.lastInstructions == nil {
			return true, "no bytecode compiled yet"
		}
		return true, m.applyStyle(disassemblyStyle, m.disassembleLastInput())
	case ":eval":
		m.useEvaluator = !m.useEvaluator
		mode := "compiler+VM"
		if m.useEvaluator {
			mode = "tree-walking evaluator"
		}
		return true, m.applyStyle(evaluatorTagStyle, fmt.Sprintf("now using the %s", mode))
	case ":env":
		return true, m.describeEnv()
	}
	return false, ""
}

// disassembleLastInput renders the last compiled top-level instructions plus
// the body of any function constant in the pool, tagging each function with
// a short id (stable per constant index, minted from a uuid the first time
// it's shown) so nested anonymous functions are distinguishable in output.
func (m *model) disassembleLastInput() string {
	var s strings.Builder
	s.WriteString(m.lastInstructions.String())

	for i, c := range m.constants {
		fn, ok := c.(*object.CompiledFunction)
		if !ok {
			continue
		}
		tag, ok := m.fnTags[i]
		if !ok {
			tag = uuid.NewString()[:8]
			m.fnTags[i] = tag
		}
		fmt.Fprintf(&s, "\nFunction[const %d, fn-%s]:\n%s", i, tag, fn.Instructions.String())
	}

	return s.String()
}

func (m *model) describeEnv() string {
	globals := m.symbolTable.GlobalNames()
	if len(globals) == 0 {
		return "no global bindings yet"
	}

	var s strings.Builder
	s.WriteString("globals:\n")
	for _, sym := range globals {
		val := "undefined"
		if sym.Index < len(m.globals) && m.globals[sym.Index] != nil {
			val = m.globals[sym.Index].Inspect()
		}
		fmt.Fprintf(&s, "  %s = %s\n", sym.Name, val)
	}
	return s.String()
}

func (m model) formatError(errorStyle *lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		if m.options.NoColor {
			s.WriteString(parts[0])
			s.WriteString("\n")
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(errorStyle.Render(parts[0]))
			s.WriteString("\n")
			s.WriteString(errorTipStyle.Render("Tips:" + parts[1]))
		}
		return
	}
	if m.options.NoColor {
		s.WriteString(entry.output)
	} else {
		s.WriteString(errorStyle.Render(entry.output))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false

		if !msg.viaEvaluator {
			if msg.constants != nil {
				m.constants = msg.constants
			}
			if msg.lastInstructions != nil {
				m.lastInstructions = msg.lastInstructions
			}
		}

		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
			viaEvaluator:   msg.viaEvaluator,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit

		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					return m.beginEvaluation(m.multilineBuffer)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multilineBuffer) {
					return m.beginEvaluation(m.multilineBuffer)
				}
				return m, nil
			}

			if handled, output := m.runCommand(input); handled {
				m.textInput.SetValue("")
				m.history = append(m.history, historyEntry{input: input, output: output})
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			return m.beginEvaluation(input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// beginEvaluation transitions into the evaluating state and returns the
// tea.Cmd that will produce an evalResultMsg for buffer.
func (m model) beginEvaluation(buffer string) (tea.Model, tea.Cmd) {
	m.evaluating = true
	m.currentInput = buffer
	m.textInput.SetValue("")
	m.isMultiline = false
	m.multilineBuffer = ""
	return m, evalCmd(buffer, m)
}

func (m model) View() string {
	var s strings.Builder

	mode := "vm"
	if m.useEvaluator {
		mode = "eval"
	}
	s.WriteString(m.applyStyle(titleStyle,
		fmt.Sprintf(" Monkey REPL · %s · session %s ", mode, shortSession(m.sessionID))))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Feel free to type in commands\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ParseError:
				m.formatError(&parseErrorStyle, &entry, &s)
			case RuntimeError:
				m.formatError(&runtimeErrorStyle, &entry, &s)
			default:
				if m.options.NoColor {
					s.WriteString(entry.output)
				} else {
					s.WriteString(errorStyle.Render(entry.output))
				}
			}
		} else {
			if m.options.NoColor {
				s.WriteString(entry.output)
			} else {
				s.WriteString(resultStyle.Render(entry.output))
			}
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			if m.options.NoColor {
				s.WriteString(timeStr)
			} else {
				s.WriteString(historyStyle.Render(timeStr))
			}
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		if m.options.NoColor {
			s.WriteString(Prompt)
		} else {
			s.WriteString(promptStyle.Render(Prompt))
		}
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		if m.options.NoColor {
			s.WriteString("Current multiline input:\n")
		} else {
			s.WriteString(historyStyle.Render("Current multiline input:\n"))
		}
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			if m.options.NoColor {
				m.textInput.Prompt = ContPrompt
			} else {
				m.textInput.Prompt = promptStyle.Render(ContPrompt)
			}
		} else {
			if m.options.NoColor {
				m.textInput.Prompt = Prompt
			} else {
				m.textInput.Prompt = promptStyle.Render(Prompt)
			}
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to evaluate or continue typing"
	} else {
		helpText += " | :dis bytecode, :eval toggle evaluator, :env globals"
	}
	if m.options.NoColor {
		s.WriteString(helpText)
	} else {
		s.WriteString(historyStyle.Render(helpText))
	}

	return s.String()
}

func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("Parser Errors:\n")

	for i, msg := range errors {
		fmt.Fprintf(&s, "  %d. %s\n", i+1, msg)
	}

	s.WriteString("\nTips:\n")
	s.WriteString("  • Check for missing parentheses, braces, or semicolons\n")
	s.WriteString("  • Verify that all expressions are properly terminated\n")
	s.WriteString("  • Ensure variable names are valid identifiers\n")

	return s.String()
}

func formatRuntimeError(errorMsg string) string {
	var s strings.Builder
	s.WriteString("Runtime Error:\n")
	s.WriteString("  " + errorMsg + "\n")
	s.WriteString("\nTips:\n")

	switch {
	case strings.Contains(errorMsg, "identifier not found"), strings.Contains(errorMsg, "undefined variable"):
		s.WriteString("  • Check if the variable is defined before use\n")
		s.WriteString("  • Verify the variable name is spelled correctly\n")
		s.WriteString("  • Make sure the variable is in scope\n")
	case strings.Contains(errorMsg, "wrong number of arguments"):
		s.WriteString("  • Check the function call has the correct number of arguments\n")
		s.WriteString("  • Verify the function definition matches its usage\n")
	case strings.Contains(errorMsg, "type mismatch"), strings.Contains(errorMsg, "unsupported types"):
		s.WriteString("  • Ensure operands are of compatible types\n")
		s.WriteString("  • Check if you need to convert types before the operation\n")
	case strings.Contains(errorMsg, "index"):
		s.WriteString("  • Verify array indices are within bounds\n")
		s.WriteString("  • Ensure you're indexing an array or hash\n")
	case strings.Contains(errorMsg, "division by zero"):
		s.WriteString("  • Guard the divisor with an if-expression before dividing\n")
	default:
		s.WriteString("  • Review your code logic\n")
		s.WriteString("  • Check for type mismatches or undefined variables\n")
		s.WriteString("  • Consider breaking complex expressions into simpler steps\n")
	}

	return s.String()
}

// highlightCode applies syntax highlighting and light formatting to Monkey
// source for display in the history and input areas.
//
//nolint:gocyclo
func (m model) highlightCode(src string) string {
	l := lexer.New(src)
	var s strings.Builder

	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	isKeyword := func(t token.Token) bool {
		switch t.Type {
		case token.FUNCTION, token.LET, token.TRUE, token.FALSE, token.IF, token.ELSE, token.RETURN:
			return true
		}
		return false
	}
	isOperator := func(t token.Token) bool {
		switch t.Type {
		case token.ASSIGN, token.PLUS, token.MINUS, token.BANG, token.ASTERISK, token.SLASH,
			token.LT, token.GT, token.EQ, token.NOT_EQ:
			return true
		}
		return false
	}
	isOpenParen := func(t token.Token) bool { return t.Type == token.LPAREN }
	isCloseParen := func(t token.Token) bool { return t.Type == token.RPAREN }
	isOpenBrace := func(t token.Token) bool { return t.Type == token.LBRACE }
	isCloseBrace := func(t token.Token) bool { return t.Type == token.RBRACE }
	isDelimiter := func(t token.Token) bool {
		switch t.Type {
		case token.COMMA, token.COLON, token.SEMICOLON, token.LPAREN, token.RPAREN,
			token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET:
			return true
		}
		return false
	}

	indentLevel := 0
	atLineStart := true
	for i := range len(tokens) - 1 {
		tok := tokens[i]
		if tok.Type == token.EOF {
			continue
		}
		var prev token.Token
		if i > 0 {
			prev = tokens[i-1]
		}
		next := tokens[i+1]

		if atLineStart {
			if tok.Type == token.ELSE && i > 0 && tokens[i-1].Type == token.RBRACE {
				atLineStart = false
			} else {
				for range indentLevel {
					s.WriteString("  ")
				}
				atLineStart = false
			}
		}

		if isKeyword(tok) && tok.Type != token.TRUE && tok.Type != token.FALSE {
			switch tok.Type {
			case token.LET, token.FUNCTION, token.RETURN, token.IF, token.ELSE:
				if m.options.NoColor {
					s.WriteString(tok.Literal)
				} else {
					s.WriteString(keywordStyle.Render(tok.Literal))
				}
				if !isDelimiter(next) && !isOpenBrace(next) && !isOpenParen(next) {
					s.WriteString(" ")
				}
				continue
			}
		}
		if isKeyword(prev) && (prev.Type == token.IF || prev.Type == token.ELSE || prev.Type == token.FUNCTION) && isOpenParen(tok) {
			s.WriteString(" ")
		}
		if isOpenBrace(tok) && !isOpenParen(prev) && !isOperator(prev) {
			s.WriteString(" ")
		}
		if isOperator(tok) {
			isPrefixOp := (tok.Type == token.BANG || tok.Type == token.MINUS) &&
				(i == 0 || isOpenParen(prev) || isOperator(prev) || isDelimiter(prev))

			if !isPrefixOp && i > 0 && (!isDelimiter(prev) || isCloseParen(prev)) {
				s.WriteString(" ")
			}

			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(operatorStyle.Render(tok.Literal))
			}

			if !isPrefixOp && !isDelimiter(next) && !isCloseParen(next) && !isCloseBrace(next) {
				s.WriteString(" ")
			}
			continue
		}

		switch tok.Type {
		case token.FUNCTION, token.LET, token.TRUE, token.FALSE, token.IF, token.ELSE, token.RETURN:
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(keywordStyle.Render(tok.Literal))
			}
		case token.IDENT:
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(identifierStyle.Render(tok.Literal))
			}
		case token.INT:
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(literalStyle.Render(tok.Literal))
			}
		case token.STRING:
			if m.options.NoColor {
				s.WriteString("\"" + tok.Literal + "\"")
			} else {
				s.WriteString(stringStyle.Render("\"" + tok.Literal + "\""))
			}
		case token.ASSIGN, token.PLUS, token.MINUS, token.BANG, token.ASTERISK, token.SLASH,
			token.LT, token.GT, token.EQ, token.NOT_EQ:
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(operatorStyle.Render(tok.Literal))
			}
		case token.COMMA, token.COLON, token.SEMICOLON, token.LPAREN, token.RPAREN,
			token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET:
			//nolint:revive
			if tok.Type == token.SEMICOLON && i > 0 && tokens[i-1].Type == token.RBRACE {
				// already written by the RBRACE case below
			} else {
				if m.options.NoColor {
					s.WriteString(tok.Literal)
				} else {
					s.WriteString(delimiterStyle.Render(tok.Literal))
				}
			}
		default:
			s.WriteString(tok.Literal)
		}

		//nolint:staticcheck
		if tok.Type == token.SEMICOLON {
			if next.Type != token.EOF && next.Type != token.ELSE {
				s.WriteString("\n")
				atLineStart = true
			}
		} else if tok.Type == token.RBRACE {
			//nolint:gocritic
			if next.Type == token.SEMICOLON {
				if m.options.NoColor {
					s.WriteString(";")
				} else {
					s.WriteString(delimiterStyle.Render(";"))
				}
			} else if next.Type != token.EOF && next.Type != token.ELSE {
				s.WriteString("\n")
				atLineStart = true
			} else if next.Type == token.ELSE {
				s.WriteString(" ")
				atLineStart = false
			}
		}
		if tok.Type == token.LBRACE {
			if next.Type != token.RBRACE && next.Type != token.EOF {
				s.WriteString("\n")
				atLineStart = true
			}
			indentLevel++
		}
		if tok.Type == token.RBRACE && indentLevel > 0 {
			indentLevel--
		}
		if tok.Type == token.SEMICOLON && next.Type == token.RBRACE {
			atLineStart = false
		}
		if tok.Type == token.RBRACE && next.Type == token.SEMICOLON {
			//nolint:ineffassign,wastedassign
			i++
		}
	}

	return s.String()
}
