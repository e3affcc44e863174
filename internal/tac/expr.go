package tac

import (
	"github.com/annurdien/bcc/internal/ast"
	"github.com/annurdien/bcc/internal/diag"
)

// typeRank orders types by promotion priority: ulong > long > uint > int.
func typeRank(t ast.CType) int {
	switch t {
	case ast.TUnsignedLong:
		return 3
	case ast.TLong:
		return 2
	case ast.TUnsignedInt:
		return 1
	default:
		return 0
	}
}

// commonType computes the usual-arithmetic-conversions common type.
func commonType(a, b ast.CType) ast.CType {
	if typeRank(a) >= typeRank(b) {
		return a
	}
	return b
}

// convert emits a widening/narrowing copy from v (of type from) into a
// fresh temporary of type `to` when the widths differ, choosing sign- vs
// zero-extension from from's signedness, or truncation when narrowing
// (§4.5, §9 decision #2). Same-width different-signedness values are
// passed through unchanged: the bit pattern does not change.
func (g *Generator) convert(v Value, from, to ast.CType) Value {
	if from == to {
		return v
	}
	if from.Size() == to.Size() {
		return v
	}
	dest := g.newTemp(to)
	if from.Size() < to.Size() {
		if from.IsSigned() {
			g.emit(SignExtend{Src: v, Dest: dest})
		} else {
			g.emit(ZeroExtend{Src: v, Dest: dest})
		}
	} else {
		g.emit(Truncate{Src: v, Dest: dest})
	}
	return dest
}

// lowerExpr lowers an expression, returning its TAC value and TAC type.
func (g *Generator) lowerExpr(e ast.Expr) (Value, ast.CType, error) {
	switch ex := e.(type) {
	case *ast.ConstExpr:
		t := ast.TInt
		if ex.Value > 0x7fffffff || ex.Value < -0x80000000 {
			t = ast.TLong
		}
		return Constant{Type: t, Value: ex.Value}, t, nil
	case *ast.VarExpr:
		return g.resolve(ex.Name)
	case *ast.UnaryExpr:
		return g.lowerUnary(ex)
	case *ast.BinaryExpr:
		return g.lowerBinary(ex)
	case *ast.AssignExpr:
		return g.lowerAssign(ex)
	case *ast.ConditionalExpr:
		return g.lowerConditional(ex)
	case *ast.CallExpr:
		return g.lowerCall(ex)
	}
	diag.Internal("lowerExpr: unhandled expression type %T", e)
	return nil, 0, nil
}

func (g *Generator) lowerUnary(ex *ast.UnaryExpr) (Value, ast.CType, error) {
	switch ex.Op {
	case ast.OpPreIncr, ast.OpPreDecr:
		v, t, err := g.lowerExpr(ex.X)
		if err != nil {
			return nil, 0, err
		}
		op := OpAdd
		if ex.Op == ast.OpPreDecr {
			op = OpSubtract
		}
		g.emit(Binary{Op: op, Lhs: v, Rhs: Constant{Type: t, Value: 1}, Dest: v})
		return v, t, nil
	case ast.OpPostIncr, ast.OpPostDecr:
		v, t, err := g.lowerExpr(ex.X)
		if err != nil {
			return nil, 0, err
		}
		old := g.newTemp(t)
		g.emit(Copy{Src: v, Dest: old})
		op := OpAdd
		if ex.Op == ast.OpPostDecr {
			op = OpSubtract
		}
		g.emit(Binary{Op: op, Lhs: v, Rhs: Constant{Type: t, Value: 1}, Dest: v})
		return old, t, nil
	}

	v, t, err := g.lowerExpr(ex.X)
	if err != nil {
		return nil, 0, err
	}
	switch ex.Op {
	case ast.OpNegate:
		dest := g.newTemp(t)
		g.emit(Unary{Op: OpNegate, Src: v, Dest: dest})
		return dest, t, nil
	case ast.OpComplement:
		dest := g.newTemp(t)
		g.emit(Unary{Op: OpComplement, Src: v, Dest: dest})
		return dest, t, nil
	case ast.OpLogicalNot:
		dest := g.newTemp(ast.TInt)
		g.emit(Unary{Op: OpLogicalNot, Src: v, Dest: dest})
		return dest, ast.TInt, nil
	}
	diag.Internal("lowerUnary: unhandled op %v", ex.Op)
	return nil, 0, nil
}

// binOpTable maps the AST binary ops whose TAC op does not depend on
// signedness; lowerBinary's own switch picks the signed or unsigned TAC op
// for divide, remainder, and the relational comparisons.
var binOpTable = map[ast.BinaryOp]BinaryOp{
	ast.OpAdd: OpAdd, ast.OpSubtract: OpSubtract, ast.OpMultiply: OpMultiply,
	ast.OpBitwiseAnd: OpBitwiseAnd, ast.OpBitwiseOr: OpBitwiseOr, ast.OpBitwiseXor: OpBitwiseXor,
	ast.OpEqual: OpEqual, ast.OpNotEqual: OpNotEqual,
}

func (g *Generator) lowerBinary(ex *ast.BinaryExpr) (Value, ast.CType, error) {
	if ex.Op == ast.OpLogicalAnd || ex.Op == ast.OpLogicalOr {
		return g.lowerShortCircuit(ex)
	}

	lhs, lt, err := g.lowerExpr(ex.Left)
	if err != nil {
		return nil, 0, err
	}
	rhs, rt, err := g.lowerExpr(ex.Right)
	if err != nil {
		return nil, 0, err
	}

	// Shifts: result type is the LHS type; RHS is not promoted; signedness
	// of the LHS picks the arithmetic- vs logical-right-shift variant.
	if ex.Op == ast.OpShiftLeft || ex.Op == ast.OpShiftRight {
		dest := g.newTemp(lt)
		if ex.Op == ast.OpShiftLeft {
			g.emit(Binary{Op: OpShiftLeft, Lhs: lhs, Rhs: rhs, Dest: dest})
		} else if lt.IsSigned() {
			g.emit(Binary{Op: OpShiftRightS, Lhs: lhs, Rhs: rhs, Dest: dest})
		} else {
			g.emit(Binary{Op: OpShiftRightU, Lhs: lhs, Rhs: rhs, Dest: dest})
		}
		return dest, lt, nil
	}

	common := commonType(lt, rt)
	lhs = g.convert(lhs, lt, common)
	rhs = g.convert(rhs, rt, common)
	unsigned := !common.IsSigned()

	isComparison := ex.Op == ast.OpLessThan || ex.Op == ast.OpLessThanOrEqual ||
		ex.Op == ast.OpGreaterThan || ex.Op == ast.OpGreaterThanOrEqual ||
		ex.Op == ast.OpEqual || ex.Op == ast.OpNotEqual

	resultType := common
	if isComparison {
		resultType = ast.TInt
	}
	dest := g.newTemp(resultType)

	var tacOp BinaryOp
	switch ex.Op {
	case ast.OpDivide:
		tacOp = OpDivideS
		if unsigned {
			tacOp = OpDivideU
		}
	case ast.OpRemainder:
		tacOp = OpRemainderS
		if unsigned {
			tacOp = OpRemainderU
		}
	case ast.OpLessThan:
		tacOp = OpLessThanS
		if unsigned {
			tacOp = OpLessThanU
		}
	case ast.OpLessThanOrEqual:
		tacOp = OpLessThanOrEqualS
		if unsigned {
			tacOp = OpLessThanOrEqualU
		}
	case ast.OpGreaterThan:
		tacOp = OpGreaterThanS
		if unsigned {
			tacOp = OpGreaterThanU
		}
	case ast.OpGreaterThanOrEqual:
		tacOp = OpGreaterThanOrEqualS
		if unsigned {
			tacOp = OpGreaterThanOrEqualU
		}
	default:
		op, ok := binOpTable[ex.Op]
		if !ok {
			diag.Internal("lowerBinary: unhandled op %v", ex.Op)
		}
		tacOp = op
	}
	g.emit(Binary{Op: tacOp, Lhs: lhs, Rhs: rhs, Dest: dest})
	return dest, resultType, nil
}

func (g *Generator) lowerShortCircuit(ex *ast.BinaryExpr) (Value, ast.CType, error) {
	dest := g.newTemp(ast.TInt)
	if ex.Op == ast.OpLogicalAnd {
		falseLabel := g.newLabel("and_false")
		endLabel := g.newLabel("and_end")
		lhs, _, err := g.lowerExpr(ex.Left)
		if err != nil {
			return nil, 0, err
		}
		g.emit(JumpIfZero{Cond: lhs, Label: falseLabel})
		rhs, _, err := g.lowerExpr(ex.Right)
		if err != nil {
			return nil, 0, err
		}
		g.emit(JumpIfZero{Cond: rhs, Label: falseLabel})
		g.emit(Copy{Src: Constant{Type: ast.TInt, Value: 1}, Dest: dest})
		g.emit(Jump{Label: endLabel})
		g.emit(Label{Name: falseLabel})
		g.emit(Copy{Src: Constant{Type: ast.TInt, Value: 0}, Dest: dest})
		g.emit(Label{Name: endLabel})
		return dest, ast.TInt, nil
	}
	trueLabel := g.newLabel("or_true")
	endLabel := g.newLabel("or_end")
	lhs, _, err := g.lowerExpr(ex.Left)
	if err != nil {
		return nil, 0, err
	}
	g.emit(JumpIfNotZero{Cond: lhs, Label: trueLabel})
	rhs, _, err := g.lowerExpr(ex.Right)
	if err != nil {
		return nil, 0, err
	}
	g.emit(JumpIfNotZero{Cond: rhs, Label: trueLabel})
	g.emit(Copy{Src: Constant{Type: ast.TInt, Value: 0}, Dest: dest})
	g.emit(Jump{Label: endLabel})
	g.emit(Label{Name: trueLabel})
	g.emit(Copy{Src: Constant{Type: ast.TInt, Value: 1}, Dest: dest})
	g.emit(Label{Name: endLabel})
	return dest, ast.TInt, nil
}

func (g *Generator) lowerAssign(ex *ast.AssignExpr) (Value, ast.CType, error) {
	name, ok := ex.Lhs.(*ast.VarExpr)
	if !ok {
		diag.Internal("lowerAssign: lhs is not a VarExpr (parser should have rejected this)")
	}
	dest, dt, err := g.resolve(name.Name)
	if err != nil {
		return nil, 0, err
	}
	rhs, rt, err := g.lowerExpr(ex.Rhs)
	if err != nil {
		return nil, 0, err
	}
	rhs = g.convert(rhs, rt, dt)
	g.emit(Copy{Src: rhs, Dest: dest})
	return dest, dt, nil
}

func (g *Generator) lowerConditional(ex *ast.ConditionalExpr) (Value, ast.CType, error) {
	thenT, err := g.typeOfExpr(ex.Then)
	if err != nil {
		return nil, 0, err
	}
	elseT, err := g.typeOfExpr(ex.Else)
	if err != nil {
		return nil, 0, err
	}
	resultType := commonType(thenT, elseT)
	dest := g.newTemp(resultType)

	cond, _, err := g.lowerExpr(ex.Cond)
	if err != nil {
		return nil, 0, err
	}
	elseLabel := g.newLabel("cond_else")
	endLabel := g.newLabel("cond_end")
	g.emit(JumpIfZero{Cond: cond, Label: elseLabel})

	thenV, thenActualT, err := g.lowerExpr(ex.Then)
	if err != nil {
		return nil, 0, err
	}
	g.emit(Copy{Src: g.convert(thenV, thenActualT, resultType), Dest: dest})
	g.emit(Jump{Label: endLabel})

	g.emit(Label{Name: elseLabel})
	elseV, elseActualT, err := g.lowerExpr(ex.Else)
	if err != nil {
		return nil, 0, err
	}
	g.emit(Copy{Src: g.convert(elseV, elseActualT, resultType), Dest: dest})
	g.emit(Label{Name: endLabel})
	return dest, resultType, nil
}

// typeOfExpr statically infers an expression's TAC type without emitting
// any instructions, needed by the ternary operator to pick the shared
// result type before either arm's side-effecting code is lowered into its
// mutually-exclusive branch.
func (g *Generator) typeOfExpr(e ast.Expr) (ast.CType, error) {
	switch ex := e.(type) {
	case *ast.ConstExpr:
		if ex.Value > 0x7fffffff || ex.Value < -0x80000000 {
			return ast.TLong, nil
		}
		return ast.TInt, nil
	case *ast.VarExpr:
		_, t, err := g.resolve(ex.Name)
		return t, err
	case *ast.UnaryExpr:
		if ex.Op == ast.OpLogicalNot {
			return ast.TInt, nil
		}
		return g.typeOfExpr(ex.X)
	case *ast.BinaryExpr:
		switch ex.Op {
		case ast.OpLogicalAnd, ast.OpLogicalOr,
			ast.OpEqual, ast.OpNotEqual, ast.OpLessThan, ast.OpLessThanOrEqual,
			ast.OpGreaterThan, ast.OpGreaterThanOrEqual:
			return ast.TInt, nil
		case ast.OpShiftLeft, ast.OpShiftRight:
			return g.typeOfExpr(ex.Left)
		default:
			lt, err := g.typeOfExpr(ex.Left)
			if err != nil {
				return 0, err
			}
			rt, err := g.typeOfExpr(ex.Right)
			if err != nil {
				return 0, err
			}
			return commonType(lt, rt), nil
		}
	case *ast.AssignExpr:
		name := ex.Lhs.(*ast.VarExpr)
		_, t, err := g.resolve(name.Name)
		return t, err
	case *ast.ConditionalExpr:
		thenT, err := g.typeOfExpr(ex.Then)
		if err != nil {
			return 0, err
		}
		elseT, err := g.typeOfExpr(ex.Else)
		if err != nil {
			return 0, err
		}
		return commonType(thenT, elseT), nil
	case *ast.CallExpr:
		sig, ok := g.funcSigs[ex.Name]
		if !ok {
			return 0, diag.New(diag.Semantic, "undeclaredFunction", "undeclared function %q", ex.Name)
		}
		return sig.ReturnType, nil
	}
	diag.Internal("typeOfExpr: unhandled expression type %T", e)
	return 0, nil
}

func (g *Generator) lowerCall(ex *ast.CallExpr) (Value, ast.CType, error) {
	sig, ok := g.funcSigs[ex.Name]
	if !ok {
		return nil, 0, diag.New(diag.Semantic, "undeclaredFunction", "undeclared function %q", ex.Name)
	}
	if len(ex.Args) != len(sig.ParamTypes) {
		return nil, 0, diag.New(diag.Semantic, "wrongArgumentCount", "function %q expects %d argument(s), got %d", ex.Name, len(sig.ParamTypes), len(ex.Args))
	}
	args := make([]Value, len(ex.Args))
	for i, a := range ex.Args {
		v, t, err := g.lowerExpr(a)
		if err != nil {
			return nil, 0, err
		}
		args[i] = g.convert(v, t, sig.ParamTypes[i])
	}
	dest := g.newTemp(sig.ReturnType)
	g.emit(Call{Name: ex.Name, Args: args, Dest: dest})
	return dest, sig.ReturnType, nil
}
