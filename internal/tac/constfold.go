package tac

import (
	"github.com/annurdien/bcc/internal/ast"
	"github.com/annurdien/bcc/internal/diag"
)

// evalConst evaluates a file-scope initializer at compile time. Only
// constant, unary, binary (including the short-circuit logical operators,
// which fold strictly rather than lazily since there is no control flow
// at this stage), and conditional expressions are accepted; a variable,
// assignment, or call surfaces nonConstantInitializer (§4.3).
func evalConst(e ast.Expr) (int64, error) {
	switch ex := e.(type) {
	case *ast.ConstExpr:
		return ex.Value, nil
	case *ast.UnaryExpr:
		v, err := evalConst(ex.X)
		if err != nil {
			return 0, err
		}
		switch ex.Op {
		case ast.OpNegate:
			return -v, nil
		case ast.OpComplement:
			return ^v, nil
		case ast.OpLogicalNot:
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		}
		diag.Internal("evalConst: unhandled unary op %v in constant initializer", ex.Op)
		return 0, nil
	case *ast.BinaryExpr:
		l, err := evalConst(ex.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalConst(ex.Right)
		if err != nil {
			return 0, err
		}
		return evalConstBinary(ex.Op, l, r), nil
	case *ast.ConditionalExpr:
		c, err := evalConst(ex.Cond)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return evalConst(ex.Then)
		}
		return evalConst(ex.Else)
	default:
		return 0, diag.New(diag.Semantic, "nonConstantInitializer", "initializer is not a compile-time constant")
	}
}

// evalConstBinary folds a binary op over two constant int64s. Division and
// remainder by zero evaluate to zero rather than failing (§4.3, §9
// decision #1 — this is the spec's explicit, not ambiguous, choice).
func evalConstBinary(op ast.BinaryOp, l, r int64) int64 {
	switch op {
	case ast.OpAdd:
		return l + r
	case ast.OpSubtract:
		return l - r
	case ast.OpMultiply:
		return l * r
	case ast.OpDivide:
		if r == 0 {
			return 0
		}
		return l / r
	case ast.OpRemainder:
		if r == 0 {
			return 0
		}
		return l % r
	case ast.OpShiftLeft:
		return l << uint64(r)
	case ast.OpShiftRight:
		return l >> uint64(r)
	case ast.OpBitwiseAnd:
		return l & r
	case ast.OpBitwiseOr:
		return l | r
	case ast.OpBitwiseXor:
		return l ^ r
	case ast.OpEqual:
		return boolToInt(l == r)
	case ast.OpNotEqual:
		return boolToInt(l != r)
	case ast.OpLessThan:
		return boolToInt(l < r)
	case ast.OpLessThanOrEqual:
		return boolToInt(l <= r)
	case ast.OpGreaterThan:
		return boolToInt(l > r)
	case ast.OpGreaterThanOrEqual:
		return boolToInt(l >= r)
	case ast.OpLogicalAnd:
		return boolToInt(l != 0 && r != 0)
	case ast.OpLogicalOr:
		return boolToInt(l != 0 || r != 0)
	}
	diag.Internal("evalConstBinary: unhandled op %v", op)
	return 0
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// truncateToType applies two's-complement truncation to fit v into t's
// storage width (§4.5).
func truncateToType(v int64, t ast.CType) int64 {
	if t.Size() == 8 {
		return v
	}
	if t.IsSigned() {
		return int64(int32(v))
	}
	return int64(uint32(v))
}
