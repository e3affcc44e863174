package emit

import (
	"strings"
	"testing"

	"github.com/annurdien/bcc/internal/asm"
	"github.com/annurdien/bcc/internal/codegen"
	"github.com/annurdien/bcc/internal/lexer"
	"github.com/annurdien/bcc/internal/parser"
	"github.com/annurdien/bcc/internal/tac"
)

func compile(t *testing.T, src string) *asm.Program {
	t.Helper()
	toks, err := lexer.All(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	ast, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	tacProg, err := tac.Generate(ast)
	if err != nil {
		t.Fatalf("tac error: %v", err)
	}
	return codegen.Generate(tacProg)
}

func TestLinuxSectionsAndSymbols(t *testing.T) {
	prog := compile(t, "int g = 5; int main(void) { return g; }")
	out := Program(prog, Linux)
	if !strings.Contains(out, "\t.data\n") {
		t.Errorf("missing .data section:\n%s", out)
	}
	if !strings.Contains(out, "\t.text\n") {
		t.Errorf("missing .text section:\n%s", out)
	}
	if !strings.Contains(out, "main:") {
		t.Errorf("expected unprefixed main: label:\n%s", out)
	}
	if !strings.Contains(out, "\t.globl main\n") {
		t.Errorf("expected .globl main:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), `.section .note.GNU-stack,"",@progbits`) {
		t.Errorf("expected trailing GNU-stack note:\n%s", out)
	}
}

func TestMacOSSectionsAndSymbols(t *testing.T) {
	prog := compile(t, "int g = 5; int main(void) { return g; }")
	out := Program(prog, MacOS)
	if !strings.Contains(out, "\t.section __DATA,__data\n") {
		t.Errorf("missing __DATA section:\n%s", out)
	}
	if !strings.Contains(out, "\t.section __TEXT,__text\n") {
		t.Errorf("missing __TEXT section:\n%s", out)
	}
	if !strings.Contains(out, "_main:") {
		t.Errorf("expected _-prefixed main label:\n%s", out)
	}
	if strings.Contains(out, "GNU-stack") {
		t.Errorf("macOS output must not carry the Linux GNU-stack note:\n%s", out)
	}
	if !strings.Contains(out, "_g(%rip)") {
		t.Errorf("expected _-prefixed RIP-relative global reference:\n%s", out)
	}
}

func TestStaticSymbolsAreNotGloballyVisible(t *testing.T) {
	prog := compile(t, "static int helper(void) { return 1; } int main(void) { return helper(); }")
	out := Program(prog, Linux)
	if strings.Contains(out, ".globl helper") {
		t.Errorf("static function must not be .globl:\n%s", out)
	}
	if !strings.Contains(out, ".globl main") {
		t.Errorf("non-static main must be .globl:\n%s", out)
	}
}

func TestUninitializedGlobalGetsZeroInitializer(t *testing.T) {
	prog := compile(t, "int g; int main(void) { return g; }")
	out := Program(prog, Linux)
	if !strings.Contains(out, "\t.long 0\n") {
		t.Errorf("expected zero-initialized .long for uninitialized global:\n%s", out)
	}
}

func TestLongGlobalUsesQuad(t *testing.T) {
	prog := compile(t, "long g = 9; int main(void) { return 0; }")
	out := Program(prog, Linux)
	if !strings.Contains(out, "\t.quad 9\n") {
		t.Errorf("expected .quad for a long global:\n%s", out)
	}
}

func TestLocalLabelsAreEmittedVerbatimOnBothTargets(t *testing.T) {
	src := "int main(void) { int a; if (a) { a = 1; } else { a = 2; } return a; }"
	prog := compile(t, src)
	linux := Program(prog, Linux)
	mac := Program(prog, MacOS)
	for _, fn := range prog.Functions {
		for _, line := range fn.Lines {
			if ll, ok := line.(asm.LabelLine); ok {
				if !strings.Contains(linux, ll.Name+":") {
					t.Errorf("linux output missing local label %s", ll.Name)
				}
				if !strings.Contains(mac, ll.Name+":") {
					t.Errorf("macos output missing local label %s", ll.Name)
				}
			}
		}
	}
}

func TestParseOS(t *testing.T) {
	cases := map[string]OS{"linux": Linux, "": Linux, "macos": MacOS, "darwin": MacOS, "Darwin": MacOS}
	for in, want := range cases {
		got, err := ParseOS(in)
		if err != nil {
			t.Fatalf("ParseOS(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseOS(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseOS("windows"); err == nil {
		t.Errorf("expected error for unsupported target")
	}
}
