// Package llvmgen lowers a resolved and type-checked program to LLVM IR.
// It is an alternative backend to the assembly generator and is selected
// with --emit-llvm.
package llvmgen

import (
	"fmt"

	"lilcc/pkg/compiler"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// loop holds the branch targets of the innermost enclosing loop.
type loop struct {
	breakTo    *ir.Block
	continueTo *ir.Block
}

// Generator converts one translation unit into a single LLVM module.
type Generator struct {
	syms *compiler.SymbolTable

	// mod is the LLVM module being generated.
	mod *ir.Module

	// globals and funcs map file-scope symbols to their module values. Both
	// are filled lazily so only referenced externs are declared.
	globals map[compiler.SymbolID]*ir.Global
	funcs   map[compiler.SymbolID]*ir.Func

	// locals maps stack variables and parameters of the current function to
	// their allocas.
	locals map[compiler.SymbolID]value.Value

	// enclosingFunc is the function whose body is being generated.
	enclosingFunc *ir.Func
	retType       compiler.Type

	// entry receives every alloca of the current function.
	entry *ir.Block

	// block is the block instructions are currently appended to.
	block *ir.Block

	loops []loop
}

func newGenerator(syms *compiler.SymbolTable) *Generator {
	return &Generator{
		syms:    syms,
		mod:     ir.NewModule(),
		globals: make(map[compiler.SymbolID]*ir.Global),
		funcs:   make(map[compiler.SymbolID]*ir.Func),
	}
}

// Generate builds the module for prog. Unreachable static functions are
// dropped first, as for the assembly backend. Every definition in the unit
// is emitted; externs only when something refers to them.
func Generate(prog *compiler.Program, syms *compiler.SymbolTable) (m *ir.Module, err error) {
	prog = compiler.EliminateDeadStatics(prog)
	g := newGenerator(syms)

	// Symbol panics on an id the resolver never assigned.
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("llvmgen: %v", r)
		}
	}()

	for _, id := range syms.FileSymbols() {
		sym := syms.Symbol(id)
		if sym.Kind == compiler.KindVar && sym.Storage != compiler.StorageExtern {
			g.global(id)
		}
	}

	for _, d := range prog.Decls {
		fn, ok := d.(*compiler.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		if err := g.genFunc(fn); err != nil {
			return nil, err
		}
	}
	return g.mod, nil
}

// convType returns the LLVM type of a value of type t.
func convType(t compiler.Type) types.Type {
	switch t {
	case compiler.Long:
		return types.I64
	case compiler.Void:
		return types.Void
	default:
		return types.I32
	}
}

func intType(t compiler.Type) *types.IntType {
	if t == compiler.Long {
		return types.I64
	}
	return types.I32
}

// global returns the module global for a variable symbol, creating it on
// first use.
func (g *Generator) global(id compiler.SymbolID) *ir.Global {
	if glob, ok := g.globals[id]; ok {
		return glob
	}
	sym := g.syms.Symbol(id)

	var glob *ir.Global
	if sym.Storage == compiler.StorageExtern {
		glob = g.mod.NewGlobal(sym.Label, convType(sym.Type))
		glob.Linkage = enum.LinkageExternal
	} else {
		glob = g.mod.NewGlobalDef(sym.Label, constant.NewInt(intType(sym.Type), sym.Init))
		if sym.Storage == compiler.StorageStatic {
			glob.Linkage = enum.LinkageInternal
		}
	}
	g.globals[id] = glob
	return glob
}

// function returns the module function for a function symbol, creating a
// declaration on first use. genFunc adds the body later.
func (g *Generator) function(id compiler.SymbolID) *ir.Func {
	if fn, ok := g.funcs[id]; ok {
		return fn
	}
	sym := g.syms.Symbol(id)

	params := make([]*ir.Param, len(sym.Params))
	for i, pt := range sym.Params {
		params[i] = ir.NewParam("", convType(pt))
	}
	fn := g.mod.NewFunc(sym.Label, convType(sym.Type), params...)
	if sym.Storage == compiler.StorageStatic && sym.Defined {
		fn.Linkage = enum.LinkageInternal
	}
	g.funcs[id] = fn
	return fn
}

// genFunc generates the body of a function definition.
func (g *Generator) genFunc(fd *compiler.FuncDecl) error {
	fn := g.function(fd.Sym)
	g.enclosingFunc = fn
	g.retType = fd.ReturnType
	g.locals = make(map[compiler.SymbolID]value.Value)
	g.loops = nil

	g.entry = fn.NewBlock("entry")
	g.block = g.entry

	// Parameters are spilled so assignments to them work like locals.
	for i, p := range fd.Params {
		param := fn.Params[i]
		param.SetName(p.Name)
		slot := g.entry.NewAlloca(convType(p.Type))
		g.block.NewStore(param, slot)
		g.locals[p.Sym] = slot
	}

	if err := g.genBlock(fd.Body.Stmts); err != nil {
		return err
	}

	// Falling off the end returns 0, or nothing from a void function. Dead
	// blocks opened after a jump are closed the same way.
	for _, b := range fn.Blocks {
		if b.Term == nil {
			g.defaultReturn(b)
		}
	}
	return nil
}

func (g *Generator) defaultReturn(b *ir.Block) {
	if g.retType == compiler.Void {
		b.NewRet(nil)
		return
	}
	b.NewRet(constant.NewInt(intType(g.retType), 0))
}

// appendBlock adds a new block to the end of the current function.
func (g *Generator) appendBlock() *ir.Block {
	return g.enclosingFunc.NewBlock("")
}

// addr returns the pointer a variable symbol is stored at.
func (g *Generator) addr(id compiler.SymbolID) value.Value {
	if slot, ok := g.locals[id]; ok {
		return slot
	}
	return g.global(id)
}
