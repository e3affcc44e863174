// Package parser turns a token sequence into an AST using Pratt-style
// precedence climbing for expressions and fixed lookahead to classify
// top-level declarations.
package parser

import (
	"strconv"

	"github.com/annurdien/bcc/internal/ast"
	"github.com/annurdien/bcc/internal/diag"
	"github.com/annurdien/bcc/internal/token"
)

// Parser holds the single token of lookahead the grammar needs; there is
// no backtracking and no recovery: the first error aborts (spec §4.2).
type Parser struct {
	toks []token.Token
	pos  int
	tok  token.Token
}

// Parse turns a flat token slice (terminated by token.EOF) into a Program.
func Parse(toks []token.Token) (*ast.Program, error) {
	p := &Parser{toks: toks}
	p.tok = p.toks[0]
	prog := &ast.Program{}
	for p.tok.Type != token.EOF {
		d, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, nil
}

func (p *Parser) next() {
	if p.pos+1 < len(p.toks) {
		p.pos++
	}
	p.tok = p.toks[p.pos]
}

// peekAt looks ahead n tokens from the current position without consuming.
func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) errExpected(want token.Type) error {
	return diag.New(diag.Parser, "expectedToken", "expected %s, got %s", want, p.tok.Type)
}

func (p *Parser) errExpectedExpr() error {
	return diag.New(diag.Parser, "expectedExpression", "expected an expression, got %s", p.tok.Type)
}

func (p *Parser) errUnexpected() error {
	return diag.New(diag.Parser, "unexpectedToken", "unexpected token %s", p.tok.Type)
}

func (p *Parser) expect(tt token.Type) (token.Token, error) {
	if p.tok.Type != tt {
		return token.Token{}, p.errExpected(tt)
	}
	t := p.tok
	p.next()
	return t, nil
}

// isTypeStart reports whether tt can begin a type specifier.
func isTypeStart(tt token.Type) bool {
	switch tt {
	case token.KW_INT, token.KW_LONG, token.KW_UNSIGNED, token.KW_VOID:
		return true
	}
	return false
}

// parseTypeSpecifier consumes one or two type tokens per spec §4.2's fixed
// lookahead rule: `int`, `long`, `unsigned int`, `unsigned long`, `unsigned`.
func (p *Parser) parseTypeSpecifier() (ast.CType, error) {
	switch p.tok.Type {
	case token.KW_VOID:
		p.next()
		return ast.TInt, nil // void is only valid as a parameter list marker, handled by caller
	case token.KW_INT:
		p.next()
		return ast.TInt, nil
	case token.KW_LONG:
		p.next()
		return ast.TLong, nil
	case token.KW_UNSIGNED:
		p.next()
		if p.tok.Type == token.KW_LONG {
			p.next()
			return ast.TUnsignedLong, nil
		}
		if p.tok.Type == token.KW_INT {
			p.next()
		}
		return ast.TUnsignedInt, nil
	default:
		return 0, p.errUnexpected()
	}
}

// parseTopLevel classifies the next declaration as a function or a
// file-scope variable using fixed lookahead: optional `static`, a type
// specifier, an identifier, then check for `(`.
func (p *Parser) parseTopLevel() (ast.Decl, error) {
	isStatic := false
	if p.tok.Type == token.KW_STATIC {
		isStatic = true
		p.next()
	}
	if !isTypeStart(p.tok.Type) {
		return nil, p.errUnexpected()
	}
	isVoidRet := p.tok.Type == token.KW_VOID
	ctype, err := p.parseTypeSpecifier()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if p.tok.Type == token.LPAREN {
		return p.parseFunction(isStatic, ctype, isVoidRet, nameTok.Lex)
	}
	// File-scope variable declaration.
	decl, err := p.parseDeclarationTail(isStatic, ctype, nameTok.Lex)
	if err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseFunction(isStatic bool, ret ast.CType, isVoidRet bool, name string) (*ast.Function, error) {
	_ = isVoidRet
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	names, types, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	fn := &ast.Function{Name: name, ReturnType: ret, ParamNames: names, ParamTypes: types, IsStatic: isStatic}
	if p.tok.Type == token.SEMI {
		p.next()
		return fn, nil // prototype, no body
	}
	body, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// parseParams parses `void` | empty | comma-separated typed identifiers.
func (p *Parser) parseParams() ([]string, []ast.CType, error) {
	var names []string
	var types []ast.CType
	if p.tok.Type == token.RPAREN {
		return names, types, nil
	}
	if p.tok.Type == token.KW_VOID && p.peekAt(1).Type == token.RPAREN {
		p.next()
		return names, types, nil
	}
	for {
		if !isTypeStart(p.tok.Type) {
			return nil, nil, p.errUnexpected()
		}
		ctype, err := p.parseTypeSpecifier()
		if err != nil {
			return nil, nil, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, nameTok.Lex)
		types = append(types, ctype)
		if p.tok.Type == token.COMMA {
			p.next()
			continue
		}
		break
	}
	return names, types, nil
}

// parseDeclarationTail parses the remainder of a declaration after the
// storage class, type, and name have been consumed: `[= expr] ;`.
func (p *Parser) parseDeclarationTail(isStatic bool, ctype ast.CType, name string) (*ast.Declaration, error) {
	decl := &ast.Declaration{Name: name, Type: ctype, IsStatic: isStatic}
	if p.tok.Type == token.ASSIGN {
		p.next()
		init, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseCompound() (*ast.CompoundStmt, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var items []ast.Stmt
	for p.tok.Type != token.RBRACE && p.tok.Type != token.EOF {
		s, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.CompoundStmt{Items: items}, nil
}

// parseBlockItem parses either a declaration or a statement.
func (p *Parser) parseBlockItem() (ast.Stmt, error) {
	isStatic := false
	start := p.pos
	if p.tok.Type == token.KW_STATIC {
		isStatic = true
		p.next()
	}
	if isTypeStart(p.tok.Type) {
		ctype, err := p.parseTypeSpecifier()
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		decl, err := p.parseDeclarationTail(isStatic, ctype, nameTok.Lex)
		if err != nil {
			return nil, err
		}
		return &ast.DeclStmt{Decl: decl}, nil
	}
	if isStatic {
		// `static` was consumed but no type followed: not a valid
		// statement start; rewind so the diagnostic points at `static`.
		p.pos = start
		p.tok = p.toks[p.pos]
		return nil, p.errUnexpected()
	}
	return p.parseStmt()
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.tok.Type {
	case token.SEMI:
		p.next()
		return &ast.NullStmt{}, nil
	case token.KW_RETURN:
		p.next()
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Expr: e}, nil
	case token.KW_IF:
		return p.parseIf()
	case token.LBRACE:
		return p.parseCompound()
	case token.KW_WHILE:
		return p.parseWhile()
	case token.KW_DO:
		return p.parseDoWhile()
	case token.KW_FOR:
		return p.parseFor()
	case token.KW_BREAK:
		p.next()
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{}, nil
	case token.KW_CONTINUE:
		p.next()
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{}, nil
	default:
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Expr: e}, nil
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	p.next()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.tok.Type == token.KW_ELSE {
		p.next()
		elseStmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseStmt
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	p.next()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Stmt, error) {
	p.next()
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KW_WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.DoWhileStmt{Body: body, Cond: cond}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	p.next()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	init, err := p.parseForInit()
	if err != nil {
		return nil, err
	}
	var cond ast.Expr
	if p.tok.Type != token.SEMI {
		cond, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	var post ast.Expr
	if p.tok.Type != token.RPAREN {
		post, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body}, nil
}

// parseForInit parses a declaration (if the next tokens begin a type
// specifier) or an optional expression, followed by the terminating ';'.
func (p *Parser) parseForInit() (ast.ForInit, error) {
	if isTypeStart(p.tok.Type) {
		ctype, err := p.parseTypeSpecifier()
		if err != nil {
			return ast.ForInit{}, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return ast.ForInit{}, err
		}
		decl, err := p.parseDeclarationTail(false, ctype, nameTok.Lex)
		if err != nil {
			return ast.ForInit{}, err
		}
		return ast.ForInit{Decl: decl}, nil
	}
	if p.tok.Type == token.SEMI {
		p.next()
		return ast.ForInit{}, nil
	}
	e, err := p.parseExpression(0)
	if err != nil {
		return ast.ForInit{}, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return ast.ForInit{}, err
	}
	return ast.ForInit{Expr: e}, nil
}

// Precedence levels per spec §4.2; higher binds tighter.
func precedenceOf(tt token.Type) (int, bool) {
	switch tt {
	case token.STAR, token.SLASH, token.PERCENT:
		return 50, true
	case token.PLUS, token.MINUS:
		return 45, true
	case token.SHL, token.SHR:
		return 40, true
	case token.LT, token.LE, token.GT, token.GE:
		return 35, true
	case token.EQ, token.NEQ:
		return 30, true
	case token.AMP:
		return 25, true
	case token.CARET:
		return 20, true
	case token.PIPE:
		return 15, true
	case token.ANDAND:
		return 10, true
	case token.OROR:
		return 5, true
	case token.QUESTION:
		return 3, true
	}
	if tt.IsAssignOp() {
		return 1, true
	}
	return 0, false
}

func binOpFromToken(tt token.Type) ast.BinaryOp {
	switch tt {
	case token.PLUS:
		return ast.OpAdd
	case token.MINUS:
		return ast.OpSubtract
	case token.STAR:
		return ast.OpMultiply
	case token.SLASH:
		return ast.OpDivide
	case token.PERCENT:
		return ast.OpRemainder
	case token.SHL:
		return ast.OpShiftLeft
	case token.SHR:
		return ast.OpShiftRight
	case token.AMP:
		return ast.OpBitwiseAnd
	case token.PIPE:
		return ast.OpBitwiseOr
	case token.CARET:
		return ast.OpBitwiseXor
	case token.EQ:
		return ast.OpEqual
	case token.NEQ:
		return ast.OpNotEqual
	case token.LT:
		return ast.OpLessThan
	case token.LE:
		return ast.OpLessThanOrEqual
	case token.GT:
		return ast.OpGreaterThan
	case token.GE:
		return ast.OpGreaterThanOrEqual
	case token.ANDAND:
		return ast.OpLogicalAnd
	case token.OROR:
		return ast.OpLogicalOr
	default:
		diag.Internal("binOpFromToken: not a binary operator: %s", tt)
		return 0
	}
}

// compoundOpFromToken maps a compound-assignment token to the binary op it
// desugars to: `lhs op= rhs` becomes `lhs = lhs op rhs`.
func compoundOpFromToken(tt token.Type) (ast.BinaryOp, bool) {
	switch tt {
	case token.PLUSEQ:
		return ast.OpAdd, true
	case token.MINUSEQ:
		return ast.OpSubtract, true
	case token.STAREQ:
		return ast.OpMultiply, true
	case token.SLASHEQ:
		return ast.OpDivide, true
	case token.PERCENTEQ:
		return ast.OpRemainder, true
	case token.AMPEQ:
		return ast.OpBitwiseAnd, true
	case token.PIPEEQ:
		return ast.OpBitwiseOr, true
	case token.CARETEQ:
		return ast.OpBitwiseXor, true
	case token.SHLEQ:
		return ast.OpShiftLeft, true
	case token.SHREQ:
		return ast.OpShiftRight, true
	}
	return 0, false
}

// parseExpression implements precedence climbing per spec §4.2.
func (p *Parser) parseExpression(minPrec int) (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := precedenceOf(p.tok.Type)
		if !ok || prec < minPrec {
			break
		}
		if p.tok.Type.IsAssignOp() {
			op := p.tok.Type
			p.next()
			if !ast.IsLvalue(left) {
				return nil, diag.New(diag.Parser, "unexpectedToken", "left-hand side of assignment must be an lvalue")
			}
			rhs, err := p.parseExpression(1)
			if err != nil {
				return nil, err
			}
			if op == token.ASSIGN {
				left = &ast.AssignExpr{Lhs: left, Rhs: rhs}
			} else {
				binOp, _ := compoundOpFromToken(op)
				left = &ast.AssignExpr{Lhs: left, Rhs: &ast.BinaryExpr{Op: binOp, Left: left, Right: rhs}}
			}
			continue
		}
		if p.tok.Type == token.QUESTION {
			p.next()
			thenExpr, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.COLON); err != nil {
				return nil, err
			}
			elseExpr, err := p.parseExpression(3)
			if err != nil {
				return nil, err
			}
			left = &ast.ConditionalExpr{Cond: left, Then: thenExpr, Else: elseExpr}
			continue
		}
		op := p.tok.Type
		p.next()
		right, err := p.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: binOpFromToken(op), Left: left, Right: right}
	}
	return left, nil
}

// unaryOpFromToken maps a prefix-operator token to its AST unary op.
func unaryOpFromToken(tt token.Type) (ast.UnaryOp, bool) {
	switch tt {
	case token.MINUS:
		return ast.OpNegate, true
	case token.TILDE:
		return ast.OpComplement, true
	case token.BANG:
		return ast.OpLogicalNot, true
	case token.INCR:
		return ast.OpPreIncr, true
	case token.DECR:
		return ast.OpPreDecr, true
	}
	return 0, false
}

// parseFactor parses a unary-prefixed primary followed by zero or more
// postfix ++/-- operators, per spec §4.2's factor grammar.
func (p *Parser) parseFactor() (ast.Expr, error) {
	if uop, ok := unaryOpFromToken(p.tok.Type); ok {
		p.next()
		x, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		if (uop == ast.OpPreIncr || uop == ast.OpPreDecr) && !ast.IsLvalue(x) {
			return nil, diag.New(diag.Parser, "unexpectedToken", "operand of ++/-- must be an lvalue")
		}
		return &ast.UnaryExpr{Op: uop, X: x}, nil
	}

	var e ast.Expr
	switch p.tok.Type {
	case token.INT:
		v, err := strconv.ParseInt(p.tok.Lex, 10, 64)
		if err != nil {
			return nil, diag.New(diag.Parser, "unexpectedToken", "integer literal %s does not fit in 64 bits", p.tok.Lex)
		}
		e = &ast.ConstExpr{Value: v}
		p.next()
	case token.IDENT:
		name := p.tok.Lex
		p.next()
		if p.tok.Type == token.LPAREN {
			p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			e = &ast.CallExpr{Name: name, Args: args}
		} else {
			e = &ast.VarExpr{Name: name}
		}
	case token.LPAREN:
		p.next()
		inner, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		e = inner
	default:
		return nil, p.errExpectedExpr()
	}

	for p.tok.Type == token.INCR || p.tok.Type == token.DECR {
		if !ast.IsLvalue(e) {
			return nil, diag.New(diag.Parser, "unexpectedToken", "operand of ++/-- must be an lvalue")
		}
		if p.tok.Type == token.INCR {
			e = &ast.UnaryExpr{Op: ast.OpPostIncr, X: e}
		} else {
			e = &ast.UnaryExpr{Op: ast.OpPostDecr, X: e}
		}
		p.next()
	}
	return e, nil
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.tok.Type == token.RPAREN {
		return args, nil
	}
	for {
		e, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.tok.Type == token.COMMA {
			p.next()
			continue
		}
		break
	}
	return args, nil
}
