package ast

import (
	"fmt"
	"strings"
)

// String renders the tree as a parenthesized dump for --print-ast,
// grounded on 8cc's Ast.String() sexp-style debug form.
func (p *Program) String() string {
	var b strings.Builder
	for i, d := range p.Decls {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(declString(d))
	}
	return b.String()
}

func declString(d Decl) string {
	switch dd := d.(type) {
	case *Function:
		s := fmt.Sprintf("(func %s %s (", dd.ReturnType, dd.Name)
		for i, pn := range dd.ParamNames {
			if i > 0 {
				s += " "
			}
			s += fmt.Sprintf("%s:%s", pn, dd.ParamTypes[i])
		}
		s += ")"
		if dd.Body == nil {
			return s + ")"
		}
		return s + " " + stmtString(dd.Body) + ")"
	case *Declaration:
		return declVarString(dd)
	}
	return "?"
}

func declVarString(d *Declaration) string {
	s := fmt.Sprintf("(decl %s %s", d.Type, d.Name)
	if d.IsStatic {
		s = fmt.Sprintf("(decl static %s %s", d.Type, d.Name)
	}
	if d.Init != nil {
		s += " " + exprString(d.Init)
	}
	return s + ")"
}

func stmtString(s Stmt) string {
	switch st := s.(type) {
	case *ReturnStmt:
		return fmt.Sprintf("(return %s)", exprString(st.Expr))
	case *ExprStmt:
		return exprString(st.Expr)
	case *DeclStmt:
		return declVarString(st.Decl)
	case *CompoundStmt:
		var b strings.Builder
		b.WriteString("(block")
		for _, item := range st.Items {
			b.WriteString(" ")
			b.WriteString(stmtString(item))
		}
		b.WriteString(")")
		return b.String()
	case *IfStmt:
		if st.Else == nil {
			return fmt.Sprintf("(if %s %s)", exprString(st.Cond), stmtString(st.Then))
		}
		return fmt.Sprintf("(if %s %s %s)", exprString(st.Cond), stmtString(st.Then), stmtString(st.Else))
	case *WhileStmt:
		return fmt.Sprintf("(while %s %s)", exprString(st.Cond), stmtString(st.Body))
	case *DoWhileStmt:
		return fmt.Sprintf("(do-while %s %s)", stmtString(st.Body), exprString(st.Cond))
	case *ForStmt:
		init := "()"
		if st.Init.Decl != nil {
			init = declVarString(st.Init.Decl)
		} else if st.Init.Expr != nil {
			init = exprString(st.Init.Expr)
		}
		cond, post := "()", "()"
		if st.Cond != nil {
			cond = exprString(st.Cond)
		}
		if st.Post != nil {
			post = exprString(st.Post)
		}
		return fmt.Sprintf("(for %s %s %s %s)", init, cond, post, stmtString(st.Body))
	case *BreakStmt:
		return "(break)"
	case *ContinueStmt:
		return "(continue)"
	case *NullStmt:
		return "(null)"
	}
	return "?"
}

func exprString(e Expr) string {
	if e == nil {
		return "()"
	}
	switch ex := e.(type) {
	case *ConstExpr:
		return fmt.Sprintf("%d", ex.Value)
	case *VarExpr:
		return ex.Name
	case *UnaryExpr:
		return fmt.Sprintf("(%s %s)", unaryOpNames[ex.Op], exprString(ex.X))
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", binaryOpNames[ex.Op], exprString(ex.Left), exprString(ex.Right))
	case *AssignExpr:
		return fmt.Sprintf("(= %s %s)", exprString(ex.Lhs), exprString(ex.Rhs))
	case *ConditionalExpr:
		return fmt.Sprintf("(?: %s %s %s)", exprString(ex.Cond), exprString(ex.Then), exprString(ex.Else))
	case *CallExpr:
		s := fmt.Sprintf("(call %s", ex.Name)
		for _, a := range ex.Args {
			s += " " + exprString(a)
		}
		return s + ")"
	}
	return "?"
}

var unaryOpNames = map[UnaryOp]string{
	OpNegate: "neg", OpComplement: "compl", OpLogicalNot: "not",
	OpPostIncr: "post++", OpPostDecr: "post--", OpPreIncr: "pre++", OpPreDecr: "pre--",
}

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+", OpSubtract: "-", OpMultiply: "*", OpDivide: "/", OpRemainder: "%",
	OpShiftLeft: "<<", OpShiftRight: ">>", OpBitwiseAnd: "&", OpBitwiseOr: "|", OpBitwiseXor: "^",
	OpEqual: "==", OpNotEqual: "!=", OpLessThan: "<", OpLessThanOrEqual: "<=",
	OpGreaterThan: ">", OpGreaterThanOrEqual: ">=", OpLogicalAnd: "&&", OpLogicalOr: "||",
}
