package tac

import (
	"fmt"

	"github.com/annurdien/bcc/internal/ast"
	"github.com/annurdien/bcc/internal/diag"
)

// funcSig records a function's arity and return type for call checking.
type funcSig struct {
	ParamTypes []ast.CType
	ReturnType ast.CType
	Defined    bool
}

// scopeEntry is one block-scope binding: a source name mapped to its
// unique TAC name, its type, and whether it was declared static (and so
// is actually a rewritten global).
type scopeEntry struct {
	UniqueName string
	Type       ast.CType
	IsStatic   bool
}

type loopCtx struct {
	ContinueLabel string
	BreakLabel    string
}

// Generator carries all per-run mutable state as fields on a value passed
// by pointer, never as package globals, per the spec's explicit design
// note — the same shape as the teacher's buildCtx struct.
type Generator struct {
	prog *Program

	globalTypes map[string]ast.CType
	funcSigs    map[string]*funcSig

	labelCounter       int
	tempCounter        int
	staticLocalCounter int

	loopStack []loopCtx

	// Per-function state, reset at the start of each function.
	fn         *Function
	scopes     []map[string]scopeEntry
	paramNames map[string]bool
}

// Generate lowers a parsed program into TAC, per spec §4.3.
func Generate(prog *ast.Program) (*Program, error) {
	g := &Generator{
		prog:        &Program{},
		globalTypes: map[string]ast.CType{},
		funcSigs:    map[string]*funcSig{},
	}
	// Prepass: register every function signature so calls may forward- or
	// mutually-reference functions defined later in the file.
	for _, d := range prog.Decls {
		if fn, ok := d.(*ast.Function); ok {
			if err := g.registerSig(fn); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.Function:
			if decl.Body == nil {
				continue // prototype only
			}
			if err := g.lowerFunction(decl); err != nil {
				return nil, err
			}
		case *ast.Declaration:
			if err := g.lowerGlobalDecl(decl); err != nil {
				return nil, err
			}
		}
	}
	return g.prog, nil
}

func (g *Generator) registerSig(fn *ast.Function) error {
	if existing, ok := g.funcSigs[fn.Name]; ok {
		if existing.Defined && fn.Body != nil {
			return diag.New(diag.Semantic, "functionRedefinition", "function %q is already defined", fn.Name)
		}
	}
	g.funcSigs[fn.Name] = &funcSig{ParamTypes: fn.ParamTypes, ReturnType: fn.ReturnType, Defined: fn.Body != nil}
	return nil
}

func (g *Generator) lowerGlobalDecl(decl *ast.Declaration) error {
	if _, exists := g.globalTypes[decl.Name]; exists {
		return diag.New(diag.Semantic, "variableRedefinition", "global %q is already declared", decl.Name)
	}
	g.globalTypes[decl.Name] = decl.Type
	global := &Global{Name: decl.Name, Type: decl.Type, IsStatic: decl.IsStatic}
	if decl.Init != nil {
		v, err := evalConst(decl.Init)
		if err != nil {
			return err
		}
		v = truncateToType(v, decl.Type)
		global.Init = &v
	}
	g.prog.Globals = append(g.prog.Globals, global)
	return nil
}

func (g *Generator) lowerFunction(fn *ast.Function) error {
	g.fn = &Function{
		Name:       fn.Name,
		Params:     append([]string{}, fn.ParamNames...),
		ReturnType: fn.ReturnType,
		VarTypes:   map[string]ast.CType{},
		IsStatic:   fn.IsStatic,
	}
	g.scopes = []map[string]scopeEntry{{}}
	for i, name := range fn.ParamNames {
		g.fn.VarTypes[name] = fn.ParamTypes[i]
		g.declareIn(g.topScope(), name, name, fn.ParamTypes[i], false)
	}
	if err := g.lowerStmt(fn.Body); err != nil {
		return err
	}
	// Defensive implicit `return 0` (§3.3, §9 decision #4).
	g.fn.Body = append(g.fn.Body, Return{Val: Constant{Type: ast.TInt, Value: 0}})
	g.prog.Functions = append(g.prog.Functions, g.fn)
	return nil
}

func (g *Generator) topScope() map[string]scopeEntry { return g.scopes[len(g.scopes)-1] }

func (g *Generator) pushScope() { g.scopes = append(g.scopes, map[string]scopeEntry{}) }
func (g *Generator) popScope()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *Generator) declareIn(scope map[string]scopeEntry, src, unique string, t ast.CType, isStatic bool) {
	scope[src] = scopeEntry{UniqueName: unique, Type: t, IsStatic: isStatic}
}

// resolve looks up a name innermost-scope-first, then falls through to the
// global symbol table, per §4.3's static-local -> local -> global order.
func (g *Generator) resolve(name string) (Var, ast.CType, error) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if e, ok := g.scopes[i][name]; ok {
			return Var{Name: e.UniqueName}, e.Type, nil
		}
	}
	if t, ok := g.globalTypes[name]; ok {
		return Var{Name: name}, t, nil
	}
	return Var{}, 0, diag.New(diag.Semantic, "undeclaredVariable", "undeclared variable %q", name)
}

func (g *Generator) newLabel(suffix string) string {
	n := g.labelCounter
	g.labelCounter++
	return fmt.Sprintf("L.%d_%s", n, suffix)
}

func (g *Generator) newTemp(t ast.CType) Var {
	n := g.tempCounter
	g.tempCounter++
	name := fmt.Sprintf("tmp.%d", n)
	g.fn.VarTypes[name] = t
	return Var{Name: name}
}

// newStaticLocalName uses a counter dedicated to static locals, separate
// from the label factory, so that two `static` declarations of the same
// source name in different blocks of one function get distinct synthetic
// globals (§9 decision #3, restored from stage_10_static_local.c).
func (g *Generator) newStaticLocalName(funcName, srcName string) string {
	n := g.staticLocalCounter
	g.staticLocalCounter++
	return fmt.Sprintf("%s.%s.%d", funcName, srcName, n)
}

func (g *Generator) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.NullStmt:
		return nil
	case *ast.ReturnStmt:
		v, _, err := g.lowerExpr(st.Expr)
		if err != nil {
			return err
		}
		g.emit(Return{Val: v})
		return nil
	case *ast.ExprStmt:
		_, _, err := g.lowerExpr(st.Expr)
		return err
	case *ast.DeclStmt:
		return g.lowerLocalDecl(st.Decl)
	case *ast.CompoundStmt:
		g.pushScope()
		defer g.popScope()
		for _, item := range st.Items {
			if err := g.lowerStmt(item); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		return g.lowerIf(st)
	case *ast.WhileStmt:
		return g.lowerWhile(st)
	case *ast.DoWhileStmt:
		return g.lowerDoWhile(st)
	case *ast.ForStmt:
		return g.lowerFor(st)
	case *ast.BreakStmt:
		if len(g.loopStack) == 0 {
			return diag.New(diag.Semantic, "breakOutsideLoop", "break outside any loop")
		}
		g.emit(Jump{Label: g.loopStack[len(g.loopStack)-1].BreakLabel})
		return nil
	case *ast.ContinueStmt:
		if len(g.loopStack) == 0 {
			return diag.New(diag.Semantic, "continueOutsideLoop", "continue outside any loop")
		}
		g.emit(Jump{Label: g.loopStack[len(g.loopStack)-1].ContinueLabel})
		return nil
	}
	diag.Internal("lowerStmt: unhandled statement type %T", s)
	return nil
}

func (g *Generator) lowerLocalDecl(decl *ast.Declaration) error {
	scope := g.topScope()
	if _, exists := scope[decl.Name]; exists {
		return diag.New(diag.Semantic, "variableRedefinition", "variable %q is already declared in this scope", decl.Name)
	}
	if decl.IsStatic {
		synthetic := g.newStaticLocalName(g.fn.Name, decl.Name)
		global := &Global{Name: synthetic, Type: decl.Type, IsStatic: true}
		if decl.Init != nil {
			v, err := evalConst(decl.Init)
			if err != nil {
				return err
			}
			v = truncateToType(v, decl.Type)
			global.Init = &v
		}
		g.prog.Globals = append(g.prog.Globals, global)
		g.globalTypes[synthetic] = decl.Type
		g.declareIn(scope, decl.Name, synthetic, decl.Type, true)
		return nil
	}
	unique := fmt.Sprintf("%s.%d", decl.Name, g.tempCounter)
	g.tempCounter++
	g.fn.VarTypes[unique] = decl.Type
	g.declareIn(scope, decl.Name, unique, decl.Type, false)
	if decl.Init != nil {
		v, vt, err := g.lowerExpr(decl.Init)
		if err != nil {
			return err
		}
		v = g.convert(v, vt, decl.Type)
		g.emit(Copy{Src: v, Dest: Var{Name: unique}})
	}
	return nil
}

func (g *Generator) lowerIf(st *ast.IfStmt) error {
	cond, _, err := g.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	elseLabel := g.newLabel("else")
	endLabel := g.newLabel("end")
	g.emit(JumpIfZero{Cond: cond, Label: elseLabel})
	if err := g.lowerStmt(st.Then); err != nil {
		return err
	}
	if st.Else != nil {
		g.emit(Jump{Label: endLabel})
		g.emit(Label{Name: elseLabel})
		if err := g.lowerStmt(st.Else); err != nil {
			return err
		}
		g.emit(Label{Name: endLabel})
	} else {
		g.emit(Label{Name: elseLabel})
	}
	return nil
}

func (g *Generator) lowerWhile(st *ast.WhileStmt) error {
	contLabel := g.newLabel("while_cont")
	brkLabel := g.newLabel("while_brk")
	g.emit(Label{Name: contLabel})
	cond, _, err := g.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	g.emit(JumpIfZero{Cond: cond, Label: brkLabel})
	g.loopStack = append(g.loopStack, loopCtx{ContinueLabel: contLabel, BreakLabel: brkLabel})
	err = g.lowerStmt(st.Body)
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	if err != nil {
		return err
	}
	g.emit(Jump{Label: contLabel})
	g.emit(Label{Name: brkLabel})
	return nil
}

func (g *Generator) lowerDoWhile(st *ast.DoWhileStmt) error {
	startLabel := g.newLabel("do_start")
	contLabel := g.newLabel("do_cont")
	brkLabel := g.newLabel("do_brk")
	g.emit(Label{Name: startLabel})
	g.loopStack = append(g.loopStack, loopCtx{ContinueLabel: contLabel, BreakLabel: brkLabel})
	err := g.lowerStmt(st.Body)
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	if err != nil {
		return err
	}
	g.emit(Label{Name: contLabel})
	cond, _, err := g.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	g.emit(JumpIfNotZero{Cond: cond, Label: startLabel})
	g.emit(Label{Name: brkLabel})
	return nil
}

func (g *Generator) lowerFor(st *ast.ForStmt) error {
	g.pushScope()
	defer g.popScope()
	if st.Init.Decl != nil {
		if err := g.lowerLocalDecl(st.Init.Decl); err != nil {
			return err
		}
	} else if st.Init.Expr != nil {
		if _, _, err := g.lowerExpr(st.Init.Expr); err != nil {
			return err
		}
	}
	startLabel := g.newLabel("for_start")
	contLabel := g.newLabel("for_cont")
	brkLabel := g.newLabel("for_brk")
	g.emit(Label{Name: startLabel})
	if st.Cond != nil {
		cond, _, err := g.lowerExpr(st.Cond)
		if err != nil {
			return err
		}
		g.emit(JumpIfZero{Cond: cond, Label: brkLabel})
	}
	g.loopStack = append(g.loopStack, loopCtx{ContinueLabel: contLabel, BreakLabel: brkLabel})
	err := g.lowerStmt(st.Body)
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	if err != nil {
		return err
	}
	g.emit(Label{Name: contLabel})
	if st.Post != nil {
		if _, _, err := g.lowerExpr(st.Post); err != nil {
			return err
		}
	}
	g.emit(Jump{Label: startLabel})
	g.emit(Label{Name: brkLabel})
	return nil
}

func (g *Generator) emit(instr Instruction) { g.fn.Body = append(g.fn.Body, instr) }
