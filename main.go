// loom lowers a tagged-S-expression AST listing into a flat stack-machine
// instruction stream and prints the disassembled result.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/compiler"
	"github.com/dr8co/loom/ir"
	"github.com/dr8co/loom/parser"
	"github.com/dr8co/loom/repl"
)

const version = "0.1.0"

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `loom AST lowering pass v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    loom lowers a tagged-S-expression AST listing (e.g. "(lasgn x (lit 1))")
    into a flat instruction stream and prints its disassembly. A listing
    whose root isn't already a (block ...) form is wrapped in one.
    Without any flags, it starts an interactive REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>       Lower an AST listing read from a file
    -e, --eval <text>       Lower an AST listing given on the command line
    -d, --debug             Print the simulated stack height alongside the disassembly
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Start interactive REPL
    %s

    # Lower a listing from a file
    %s -f program.loom

    # Lower an inline listing, with the simulated stack height
    %s -e "(lit 1)" -d

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Lower an AST listing read from a file")
	evalFlag := flag.String("eval", "", "Lower an AST listing given on the command line")
	debugFlag := flag.Bool("debug", false, "Print the simulated stack height alongside the disassembly")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Lower an AST listing read from a file")
	flag.StringVar(evalFlag, "e", "", "Lower an AST listing given on the command line")
	flag.BoolVar(debugFlag, "d", false, "Print the simulated stack height alongside the disassembly")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("loom v%s\n", version)
		return
	}

	if *fileFlag != "" {
		lowerFile(*fileFlag, *debugFlag)
		return
	}

	if *evalFlag != "" {
		lowerText(*evalFlag, *debugFlag)
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	fmt.Println("Hello", username+",", "welcome to loom!")
	fmt.Println("Type in a tagged-S-expression AST listing. (Ctrl+D or Ctrl+C to exit)")

	repl.Start(username, repl.Options{Debug: *debugFlag})
}

// lowerFile reads and lowers an AST listing file.
func lowerFile(filename string, debug bool) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		color.Red("Error getting absolute path: %s", err)
		os.Exit(1)
	}

	//nolint:gosec // we are not reading untrusted user input over a network boundary here
	content, err := os.ReadFile(absolute)
	if err != nil {
		color.Red("Error reading file: %s", err)
		os.Exit(1)
	}

	lowerText(string(content), debug)
}

// asBlock wraps a non-block root in a single-statement block, so a listing
// that is just one bare expression doesn't have to spell out its own
// wrapping (block ...) form.
func asBlock(root ast.Node) *ast.Block {
	if b, ok := root.(*ast.Block); ok {
		return b
	}
	return &ast.Block{Body: []ast.Node{root}}
}

// lowerText parses and lowers a single AST listing, printing its
// disassembly (and, in debug mode, the simulated stack height).
func lowerText(text string, debug bool) {
	root, err := parser.Parse(text)
	if err != nil {
		color.Red("Parse error: %s", err)
		os.Exit(1)
	}

	seq, err := compiler.Lower(asBlock(root), true)
	if err != nil {
		color.Red("Lowering error: %s", err)
		os.Exit(1)
	}

	if err := ir.Verify(seq); err != nil {
		color.Yellow("Warning: %s", err)
	}

	fmt.Print(seq.String())

	if debug {
		height, err := ir.Simulate(seq)
		if err != nil {
			color.Yellow("Warning: %s", err)
			return
		}
		color.Cyan("stack height: %d", height)
	}
}
