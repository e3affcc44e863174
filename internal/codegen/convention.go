// Package codegen is the assembly generator: three sub-passes lowering a
// TAC program into the assembly IR (template expansion, stack-slot
// assignment, legalization). Call lowering follows System V AMD64
// exactly, grounded on xyproto-vibe67's SystemVAMD64 calling-convention
// struct, narrowed to the one ABI this compiler targets.
package codegen

import "github.com/annurdien/bcc/internal/asm"

// systemVAMD64 exposes only what Pass A's call lowering needs: the
// integer argument register order, the integer return register, and the
// required stack alignment at call sites.
type systemVAMD64 struct{}

func (systemVAMD64) IntegerArgReg(i int) (asm.Reg, bool) {
	if i < len(asm.ArgRegs) {
		return asm.ArgRegs[i], true
	}
	return asm.Reg{}, false
}

func (systemVAMD64) IntegerReturnReg() asm.Reg { return asm.RAX }

func (systemVAMD64) StackAlignment() int { return 16 }

var sysV = systemVAMD64{}
