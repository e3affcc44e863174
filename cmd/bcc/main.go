// Command bcc drives the four-pass pipeline: lex, parse, lower to TAC,
// generate assembly, and emit AT&T-syntax text. Arg parsing follows
// ccomp's minimal "-o anywhere, first bare arg is the source" style,
// extended with the --print-* and --target flags and BCC_* env
// overrides.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/annurdien/bcc/internal/codegen"
	"github.com/annurdien/bcc/internal/emit"
	"github.com/annurdien/bcc/internal/lexer"
	"github.com/annurdien/bcc/internal/parser"
	"github.com/annurdien/bcc/internal/tac"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type options struct {
	srcPath     string
	outPath     string
	target      string
	printTokens bool
	printAST    bool
	printTacky  bool
	printAsm    bool
}

func run(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	src, err := readSource(opts.srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		return 1
	}

	target, err := emit.ParseOS(opts.target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	toks, err := lexer.All(src)
	if err != nil {
		return reportAndExit(err)
	}
	if opts.printTokens {
		for _, t := range toks {
			fmt.Printf("%d %q at %d:%d\n", t.Type, t.Lex, t.Line, t.Col)
		}
		return 0
	}

	prog, err := parser.Parse(toks)
	if err != nil {
		return reportAndExit(err)
	}
	if opts.printAST {
		fmt.Println(prog.String())
		return 0
	}

	tacProg, err := tac.Generate(prog)
	if err != nil {
		return reportAndExit(err)
	}
	if opts.printTacky {
		fmt.Print(tacProg.String())
		return 0
	}

	asmProg := codegen.Generate(tacProg)
	if opts.printAsm {
		fmt.Print(asmProg.String())
		return 0
	}

	out := emit.Program(asmProg, target)
	if opts.outPath == "" {
		fmt.Print(out)
		return 0
	}
	if err := os.WriteFile(opts.outPath, []byte(out), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write error: %v\n", err)
		return 1
	}
	return 0
}

// reportAndExit prints a diag.Error (or any other error) per §6's single-
// line, stage-prefixed diagnostic contract and returns the exit code.
func reportAndExit(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func readSource(path string) (string, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func parseArgs(args []string) (*options, error) {
	opts := &options{
		outPath: env.Str("BCC_OUT", ""),
		target:  env.Str("BCC_TARGET", "linux"),
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-o" && i+1 < len(args):
			opts.outPath = args[i+1]
			i++
		case a == "--target" && i+1 < len(args):
			opts.target = args[i+1]
			i++
		case strings.HasPrefix(a, "--target="):
			opts.target = strings.TrimPrefix(a, "--target=")
		case a == "--print-tokens":
			opts.printTokens = true
		case a == "--print-ast":
			opts.printAST = true
		case a == "--print-tacky":
			opts.printTacky = true
		case a == "--print-asm-ast":
			opts.printAsm = true
		case len(a) > 0 && a[0] == '-' && a != "-":
			return nil, fmt.Errorf("usage: bcc [-o out.s] [--target=linux|macos] [--print-tokens|--print-ast|--print-tacky|--print-asm-ast] <file.c|->")
		case opts.srcPath == "":
			opts.srcPath = a
		}
	}
	if opts.srcPath == "" {
		return nil, fmt.Errorf("usage: bcc [-o out.s] [--target=linux|macos] [--print-tokens|--print-ast|--print-tacky|--print-asm-ast] <file.c|->")
	}
	return opts, nil
}
