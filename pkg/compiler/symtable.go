package compiler

import (
	"fmt"
	"sort"
	"strings"

	"lilcc/pkg/report"
)

// SymbolID addresses a Symbol in its table's arena. The zero ID is never
// assigned and marks an unresolved reference.
type SymbolID int

// SymbolKind separates variables from functions.
type SymbolKind int

const (
	KindVar SymbolKind = iota
	KindFunc
)

// Symbol is one declared entity. Locals are addressed by Offset from %rbp;
// everything else by Label.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Type     Type // variable type, or function return type
	Storage  Storage
	Offset   int
	Label    string
	Params   []Type // functions only
	Defined  bool   // function has a body, or variable has an initializer
	Init     int64  // constant initial value of a global or static
	Frame    int    // functions: bytes of locals, rounded to 16
	DeclSpan report.Span
}

// IsMemory reports whether the symbol is a variable addressed by label.
func (s *Symbol) IsMemory() bool {
	return s.Kind == KindVar && s.Storage != StorageLocal
}

// Number of integer argument registers in the System V calling convention.
const numArgRegs = 6

// SymbolTable owns every Symbol of a translation unit. File scope is a
// single map; block scopes are a stack pushed and popped as the resolver
// walks the tree.
type SymbolTable struct {
	arena  []Symbol
	file   map[string]SymbolID
	order  []SymbolID // file-scope symbols in declaration order
	scopes []map[string]SymbolID

	// Bytes of locals allocated so far in the current function.
	frame int

	// Counter that keeps block-scope static labels unique.
	nextStatic int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		arena: make([]Symbol, 1),
		file:  make(map[string]SymbolID),
	}
}

// Symbol returns the symbol for id. It panics on an invalid id, which only
// an unresolved tree can produce.
func (s *SymbolTable) Symbol(id SymbolID) *Symbol {
	if id <= 0 || int(id) >= len(s.arena) {
		panic(fmt.Sprintf("compiler: invalid symbol id %d", id))
	}
	return &s.arena[id]
}

// FileSymbols returns file-scope symbols and block-scope statics in
// declaration order.
func (s *SymbolTable) FileSymbols() []SymbolID {
	return s.order
}

func (s *SymbolTable) add(sym Symbol) SymbolID {
	s.arena = append(s.arena, sym)
	return SymbolID(len(s.arena) - 1)
}

func (s *SymbolTable) EnterFunction() {
	s.scopes = []map[string]SymbolID{make(map[string]SymbolID)}
	s.frame = 0
}

// ExitFunction closes the function scope and returns the frame size
// rounded up to the 16-byte stack alignment.
func (s *SymbolTable) ExitFunction() int {
	s.scopes = nil
	return alignTo(s.frame, 16)
}

func (s *SymbolTable) EnterScope() {
	if len(s.scopes) == 0 {
		panic("EnterScope called outside function")
	}
	s.scopes = append(s.scopes, make(map[string]SymbolID))
}

func (s *SymbolTable) ExitScope() {
	if len(s.scopes) > 0 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

func alignTo(n, align int) int {
	return (n + align - 1) / align * align
}

func (s *SymbolTable) current() map[string]SymbolID {
	return s.scopes[len(s.scopes)-1]
}

// redeclared checks name against the innermost scope.
func (s *SymbolTable) redeclared(name string, at report.Span) *SymbolError {
	if prev, ok := s.current()[name]; ok {
		return symbolErrorf(Redeclared, name, at, "%q redeclared in this scope (previous declaration at %s)",
			name, s.arena[prev].DeclSpan)
	}
	return nil
}

// allocate reserves size bytes in the current frame at the natural
// alignment of the type and returns the (negative) %rbp offset.
func (s *SymbolTable) allocate(size int) int {
	s.frame = alignTo(s.frame+size, size)
	return -s.frame
}

// DefineLocal declares a stack variable in the innermost scope.
func (s *SymbolTable) DefineLocal(name string, typ Type, at report.Span) (SymbolID, error) {
	if err := s.redeclared(name, at); err != nil {
		return 0, err
	}
	id := s.add(Symbol{Name: name, Kind: KindVar, Type: typ, Storage: StorageLocal,
		Offset: s.allocate(typ.Size()), Defined: true, DeclSpan: at})
	s.current()[name] = id
	return id, nil
}

// DefineParam declares parameter index of the current function. Register
// parameters are spilled into the frame; the rest stay in the caller's
// argument area above the return address.
func (s *SymbolTable) DefineParam(name string, typ Type, index int, at report.Span) (SymbolID, error) {
	if err := s.redeclared(name, at); err != nil {
		return 0, err
	}
	var offset int
	if index < numArgRegs {
		offset = s.allocate(typ.Size())
	} else {
		offset = 16 + 8*(index-numArgRegs)
	}
	id := s.add(Symbol{Name: name, Kind: KindVar, Type: typ, Storage: StorageLocal,
		Offset: offset, Defined: true, DeclSpan: at})
	s.current()[name] = id
	return id, nil
}

// DefineStaticLocal declares a block-scope static. Its label gets a numeric
// suffix so statics of the same name in different blocks stay distinct.
func (s *SymbolTable) DefineStaticLocal(name string, typ Type, init int64, at report.Span) (SymbolID, error) {
	if err := s.redeclared(name, at); err != nil {
		return 0, err
	}
	s.nextStatic++
	id := s.add(Symbol{Name: name, Kind: KindVar, Type: typ, Storage: StorageStatic,
		Label: fmt.Sprintf("%s.%d", name, s.nextStatic), Defined: true, Init: init, DeclSpan: at})
	s.current()[name] = id
	s.order = append(s.order, id)
	return id, nil
}

// DeclareExternLocal binds a block-scope extern declaration to the
// file-scope variable of the same name, creating it if needed.
func (s *SymbolTable) DeclareExternLocal(name string, typ Type, at report.Span) (SymbolID, error) {
	if prev, ok := s.current()[name]; ok {
		// extern int x; extern int x; in one block is fine.
		sym := &s.arena[prev]
		if sym.Kind != KindVar || sym.Storage == StorageLocal || sym.Type != typ {
			return 0, s.redeclared(name, at)
		}
		return prev, nil
	}
	id, err := s.DeclareFileVar(name, typ, StorageExtern, false, 0, at)
	if err != nil {
		return 0, err
	}
	s.current()[name] = id
	return id, nil
}

// DeclareFileVar declares a file-scope variable. Repeated declarations of
// one name merge when their types and linkage agree; at most one of them
// may carry an initializer.
func (s *SymbolTable) DeclareFileVar(name string, typ Type, storage Storage, hasInit bool, init int64, at report.Span) (SymbolID, error) {
	prev, ok := s.file[name]
	if !ok {
		// extern int x = 5; defines x.
		if storage == StorageExtern && hasInit {
			storage = StorageGlobal
		}
		id := s.add(Symbol{Name: name, Kind: KindVar, Type: typ, Storage: storage,
			Label: name, Defined: hasInit, Init: init, DeclSpan: at})
		s.file[name] = id
		s.order = append(s.order, id)
		return id, nil
	}

	sym := &s.arena[prev]
	switch {
	case sym.Kind != KindVar:
		return 0, symbolErrorf(Redeclared, name, at, "%q redeclared as a variable (previously a function at %s)", name, sym.DeclSpan)
	case sym.Type != typ:
		return 0, symbolErrorf(Redeclared, name, at, "conflicting types for %q: %s and %s", name, sym.Type, typ)
	case hasInit && sym.Defined:
		return 0, symbolErrorf(Redeclared, name, at, "redefinition of %q (previous definition at %s)", name, sym.DeclSpan)
	case storage == StorageStatic && sym.Storage != StorageStatic:
		return 0, symbolErrorf(Redeclared, name, at, "static declaration of %q follows non-static declaration", name)
	case storage == StorageGlobal && sym.Storage == StorageStatic:
		return 0, symbolErrorf(Redeclared, name, at, "non-static declaration of %q follows static declaration", name)
	}

	if storage == StorageGlobal && sym.Storage == StorageExtern {
		sym.Storage = StorageGlobal
	}
	if hasInit {
		sym.Defined = true
		sym.Init = init
		if sym.Storage == StorageExtern {
			sym.Storage = StorageGlobal
		}
	}
	return prev, nil
}

// DeclareFunc declares a function at file scope, merging it with earlier
// prototypes of the same signature.
func (s *SymbolTable) DeclareFunc(name string, ret Type, params []Type, storage Storage, hasBody bool, at report.Span) (SymbolID, error) {
	prev, ok := s.file[name]
	if !ok {
		id := s.add(Symbol{Name: name, Kind: KindFunc, Type: ret, Storage: storage,
			Label: name, Params: params, Defined: hasBody, DeclSpan: at})
		s.file[name] = id
		s.order = append(s.order, id)
		return id, nil
	}

	sym := &s.arena[prev]
	switch {
	case sym.Kind != KindFunc:
		return 0, symbolErrorf(Redeclared, name, at, "%q redeclared as a function (previously a variable at %s)", name, sym.DeclSpan)
	case sym.Type != ret || !sameTypes(sym.Params, params):
		return 0, symbolErrorf(Redeclared, name, at, "conflicting types for function %q", name)
	case hasBody && sym.Defined:
		return 0, symbolErrorf(Redeclared, name, at, "redefinition of function %q (previous definition at %s)", name, sym.DeclSpan)
	case storage == StorageStatic && sym.Storage != StorageStatic:
		return 0, symbolErrorf(Redeclared, name, at, "static declaration of %q follows non-static declaration", name)
	}
	if hasBody {
		sym.Defined = true
		sym.DeclSpan = at
	}
	return prev, nil
}

func sameTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Lookup returns the symbol bound to name, searching the innermost block
// scope first and file scope last.
func (s *SymbolTable) Lookup(name string) (SymbolID, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if id, ok := s.scopes[i][name]; ok {
			return id, true
		}
	}
	id, ok := s.file[name]
	return id, ok
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	if len(s.file) == 0 {
		sb.WriteString("File scope: (empty)\n")
	} else {
		sb.WriteString("File scope:\n")
		names := make([]string, 0, len(s.file))
		for name := range s.file {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sym := s.arena[s.file[name]]
			if sym.Kind == KindFunc {
				fmt.Fprintf(&sb, "  %-20s  func %s%v (%s, defined: %t)\n", name, sym.Type, sym.Params, sym.Storage, sym.Defined)
			} else {
				fmt.Fprintf(&sb, "  %-20s  %s %s (label: %s)\n", name, sym.Storage, sym.Type, sym.Label)
			}
		}
	}

	for i, scope := range s.scopes {
		fmt.Fprintf(&sb, "Scope %d:\n", i)
		names := make([]string, 0, len(scope))
		for name := range scope {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sym := s.arena[scope[name]]
			if sym.Storage == StorageLocal {
				fmt.Fprintf(&sb, "    %-20s  %s at %d(%%rbp)\n", name, sym.Type, sym.Offset)
			} else {
				fmt.Fprintf(&sb, "    %-20s  %s %s (label: %s)\n", name, sym.Storage, sym.Type, sym.Label)
			}
		}
	}
	return sb.String()
}
