package lexer

import (
	"testing"

	"github.com/annurdien/bcc/internal/token"
)

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := All(src)
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return toks
}

func TestPunctuationAndCompoundOperators(t *testing.T) {
	toks := lexAll(t, "<<= >>= <= >= == != && || ++ -- += -= *= /= %= &= |= ^=")
	want := []token.Type{
		token.SHLEQ, token.SHREQ, token.LE, token.GE, token.EQ, token.NEQ,
		token.ANDAND, token.OROR, token.INCR, token.DECR, token.PLUSEQ,
		token.MINUSEQ, token.STAREQ, token.SLASHEQ, token.PERCENTEQ,
		token.AMPEQ, token.PIPEEQ, token.CARETEQ, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := lexAll(t, "int long unsigned static return if else do while for break continue foo _bar1")
	wantTypes := []token.Type{
		token.KW_INT, token.KW_LONG, token.KW_UNSIGNED, token.KW_STATIC,
		token.KW_RETURN, token.KW_IF, token.KW_ELSE, token.KW_DO,
		token.KW_WHILE, token.KW_FOR, token.KW_BREAK, token.KW_CONTINUE,
		token.IDENT, token.IDENT, token.EOF,
	}
	for i, w := range wantTypes {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestCommentsSkipped(t *testing.T) {
	toks := lexAll(t, "1 // a comment\n2")
	if len(toks) != 3 || toks[0].Lex != "1" || toks[1].Lex != "2" {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
}

func TestIntegerLiteralSuffixIsIllegal(t *testing.T) {
	_, err := All("123abc")
	if err == nil {
		t.Fatal("expected error for digit run followed by letters")
	}
}

func TestRoundTrip(t *testing.T) {
	// Property 1: re-lexing a canonical re-print of the tokens yields the
	// same token sequence.
	src := "int main(void) { return 1 + 2 * (3 - 4) ; }"
	toks := lexAll(t, src)
	var rebuilt string
	for _, tk := range toks {
		if tk.Type == token.EOF {
			break
		}
		rebuilt += tk.Lex + " "
	}
	again := lexAll(t, rebuilt)
	if len(again) != len(toks) {
		t.Fatalf("round-trip token count mismatch: %d vs %d", len(again), len(toks))
	}
	for i := range toks {
		if toks[i].Type != again[i].Type || toks[i].Lex != again[i].Lex {
			t.Errorf("round-trip mismatch at %d: %+v vs %+v", i, toks[i], again[i])
		}
	}
}

func TestUnrecognizedCharacter(t *testing.T) {
	_, err := All("int x = 1 @ 2;")
	if err == nil {
		t.Fatal("expected error for '@'")
	}
}
