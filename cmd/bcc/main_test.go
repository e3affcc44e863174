package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func() int) (string, int) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	code := fn()
	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), code
}

func withStdin(t *testing.T, src string, fn func() int) (int, string) {
	t.Helper()
	oldIn := os.Stdin
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdin = r
	go func() {
		w.WriteString(src)
		w.Close()
	}()
	out, code := captureStdout(t, fn)
	os.Stdin = oldIn
	return code, out
}

func TestPrintTokensTerminatesEarly(t *testing.T) {
	code, out := withStdin(t, "int main(void){return 0;}", func() int {
		return run([]string{"--print-tokens", "-"})
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "\"int\"") {
		t.Errorf("expected a token dump, got:\n%s", out)
	}
}

func TestPrintAstTerminatesEarly(t *testing.T) {
	code, out := withStdin(t, "int main(void){return 0;}", func() int {
		return run([]string{"--print-ast", "-"})
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "(func") {
		t.Errorf("expected an ast dump, got:\n%s", out)
	}
}

func TestPrintTackyTerminatesEarly(t *testing.T) {
	code, out := withStdin(t, "int main(void){return 0;}", func() int {
		return run([]string{"--print-tacky", "-"})
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "function main") {
		t.Errorf("expected a tac dump, got:\n%s", out)
	}
}

func TestFullPipelineEmitsAssembly(t *testing.T) {
	code, out := withStdin(t, "int main(void){return 2;}", func() int {
		return run([]string{"--target", "linux", "-"})
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "main:") || !strings.Contains(out, "ret") {
		t.Errorf("expected assembly output, got:\n%s", out)
	}
}

func TestLexErrorExitsOne(t *testing.T) {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	code, _ := withStdin(t, "int main(void){ return @; }", func() int {
		return run([]string{"-"})
	})
	w.Close()
	os.Stderr = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "Lexer Error") {
		t.Errorf("expected a stage-prefixed diagnostic, got:\n%s", buf.String())
	}
}

func TestMissingSourceIsUsageError(t *testing.T) {
	if _, err := parseArgs(nil); err == nil {
		t.Fatalf("expected usage error for no arguments")
	}
}

func TestUnknownTargetIsUsageError(t *testing.T) {
	code, _ := withStdin(t, "int main(void){return 0;}", func() int {
		return run([]string{"--target", "windows", "-"})
	})
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
