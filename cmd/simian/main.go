// Command simian compiles Monkey source code into bytecode and runs it on
// the VM, or drives an interactive REPL when given neither a file nor an
// expression to run.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/tendai-kore/simian/ast"
	"github.com/tendai-kore/simian/compiler"
	"github.com/tendai-kore/simian/lexer"
	"github.com/tendai-kore/simian/parser"
	"github.com/tendai-kore/simian/repl"
	"github.com/tendai-kore/simian/vm"
)

const version = "0.1.0"

func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `simian v%s — a bytecode compiler and VM for Monkey

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    simian compiles Monkey source code into bytecode and runs it in a
    virtual machine. Without any flags, it starts an interactive REPL.

OPTIONS:
    -f, --file <path>       Execute a Monkey script file
    -e, --eval <code>       Evaluate a Monkey expression and print the result
    -d, --debug             Enable debug mode with more verbose output
    -n, --no-color          Disable REPL syntax highlighting and colored output
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    %s
    %s -f script.monkey
    %s -e "let x = 5; x * 2"
    %s -f script.monkey -d

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Execute a Monkey script file")
	evalFlag := flag.String("eval", "", "Evaluate a Monkey expression and print the result")
	debugFlag := flag.Bool("debug", false, "Enable debug mode with more verbose output")
	noColorFlag := flag.Bool("no-color", false, "Disable REPL syntax highlighting and colored output")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Execute a Monkey script file")
	flag.StringVar(evalFlag, "e", "", "Evaluate a Monkey expression and print the result")
	flag.BoolVar(debugFlag, "d", false, "Enable debug mode with more verbose output")
	flag.BoolVar(noColorFlag, "n", false, "Disable REPL syntax highlighting and colored output")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("simian v%s\n", version)
		return
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, *debugFlag)
		return
	}

	if *evalFlag != "" {
		evaluateExpression(*evalFlag, *debugFlag)
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	repl.Start(username, repl.Options{NoColor: *noColorFlag, Debug: *debugFlag})
}

// executeFile reads, compiles and runs a Monkey script file.
func executeFile(filename string, debug bool) {
	absolute, err := filepath.Abs(filepath.Clean(filename))
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}

	//nolint:gosec // path comes from a trusted CLI flag, not untrusted user input
	content, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	program, errs := parse(string(content))
	if len(errs) != 0 {
		printParserErrors(errs)
		os.Exit(1)
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		fmt.Printf("Compilation error: %s\n", err)
		os.Exit(1)
	}

	machine := vm.New(comp.Bytecode())
	if err := machine.Run(); err != nil {
		fmt.Printf("VM error: %s\n", err)
		os.Exit(1)
	}

	if debug {
		if top := machine.LastPoppedStackElem(); top != nil {
			fmt.Println(top.Inspect())
		}
	}
}

// evaluateExpression compiles and runs a single Monkey expression, always
// printing its result.
func evaluateExpression(expr string, debug bool) {
	program, errs := parse(expr)
	if len(errs) != 0 {
		printParserErrors(errs)
		os.Exit(1)
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		fmt.Printf("Compilation error: %s\n", err)
		os.Exit(1)
	}

	machine := vm.New(comp.Bytecode())
	if err := machine.Run(); err != nil {
		fmt.Printf("VM error: %s\n", err)
		os.Exit(1)
	}

	if debug {
		fmt.Printf("DEBUG: compiled %d bytes\n", len(comp.Bytecode().Instructions))
	}

	if top := machine.LastPoppedStackElem(); top != nil {
		fmt.Println(top.Inspect())
	}
}

func parse(src string) (*ast.Program, []string) {
	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()
	return program, p.Errors()
}

func printParserErrors(errors []string) {
	_, _ = fmt.Fprintln(os.Stderr, "Parser errors:")
	for _, msg := range errors {
		_, _ = fmt.Fprintln(os.Stderr, "\t"+msg)
	}
}
