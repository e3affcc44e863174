package tac

import (
	"os"
	"strings"
	"testing"

	"github.com/annurdien/bcc/internal/lexer"
	"github.com/annurdien/bcc/internal/parser"
	"gopkg.in/yaml.v3"
)

func generateSrc(t *testing.T, src string) *Program {
	t.Helper()
	toks, err := lexer.All(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	tacProg, err := Generate(prog)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	return tacProg
}

type lowerCase struct {
	Name         string   `yaml:"name"`
	Src          string   `yaml:"src"`
	WantContains []string `yaml:"wantContains"`
}

// TestLoweringFixtures drives a data-driven pass over testdata/lowering.yaml,
// grounded on the pack's one YAML-fixture-driven compiler test file.
func TestLoweringFixtures(t *testing.T) {
	raw, err := os.ReadFile("testdata/lowering.yaml")
	if err != nil {
		t.Fatalf("reading fixtures: %v", err)
	}
	var cases []lowerCase
	if err := yaml.Unmarshal(raw, &cases); err != nil {
		t.Fatalf("unmarshalling fixtures: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("expected at least one fixture case")
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			prog := generateSrc(t, c.Src)
			dump := prog.String()
			for _, want := range c.WantContains {
				if !strings.Contains(dump, want) {
					t.Errorf("dump missing %q\ngot:\n%s", want, dump)
				}
			}
		})
	}
}

func TestImplicitReturnZeroAppended(t *testing.T) {
	prog := generateSrc(t, "int main(void) { int x; x = 1; }")
	fn := prog.Functions[0]
	last, ok := fn.Body[len(fn.Body)-1].(Return)
	if !ok {
		t.Fatalf("last instruction is %T, want Return", fn.Body[len(fn.Body)-1])
	}
	c, ok := last.Val.(Constant)
	if !ok || c.Value != 0 {
		t.Fatalf("implicit return value = %+v, want constant 0", last.Val)
	}
}

func TestBreakOutsideLoopIsSemanticError(t *testing.T) {
	toks, err := lexer.All("int main(void) { break; return 0; }")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Generate(prog); err == nil {
		t.Fatal("expected a semantic error for break outside a loop")
	}
}

func TestContinueOutsideLoopIsSemanticError(t *testing.T) {
	toks, err := lexer.All("int main(void) { continue; return 0; }")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Generate(prog); err == nil {
		t.Fatal("expected a semantic error for continue outside a loop")
	}
}

func TestUndeclaredVariableIsSemanticError(t *testing.T) {
	toks, err := lexer.All("int main(void) { return y; }")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Generate(prog); err == nil {
		t.Fatal("expected a semantic error for an undeclared variable")
	}
}

func TestWrongArgumentCountIsSemanticError(t *testing.T) {
	toks, err := lexer.All("int f(int a, int b); int main(void) { return f(1); }")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Generate(prog); err == nil {
		t.Fatal("expected a semantic error for wrong argument count")
	}
}

func TestStaticLocalsGetDistinctSyntheticNames(t *testing.T) {
	// Restored from original_source/tests/stage_10_static_local.c: two
	// `static int x` declarations in different blocks of the same function
	// must resolve to two distinct synthetic globals.
	src := `int f(void) {
		if (1) { static int x = 5; x = x + 1; }
		if (1) { static int x = 100; x = x + 1; }
		return 0;
	}`
	prog := generateSrc(t, src)
	var names []string
	for _, g := range prog.Globals {
		names = append(names, g.Name)
	}
	if len(names) != 2 || names[0] == names[1] {
		t.Fatalf("expected two distinct synthetic statics, got %v", names)
	}
}

func TestConstantInitializerFoldsDivisionByZeroToZero(t *testing.T) {
	prog := generateSrc(t, "int x = 1 / 0; int main(void) { return x; }")
	g := prog.Globals[0]
	if g.Init == nil || *g.Init != 0 {
		t.Fatalf("expected folded initializer 0, got %+v", g.Init)
	}
}

func TestNonConstantInitializerIsSemanticError(t *testing.T) {
	toks, err := lexer.All("int y; int x = y; int main(void) { return x; }")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Generate(prog); err == nil {
		t.Fatal("expected a semantic error for a non-constant initializer")
	}
}
