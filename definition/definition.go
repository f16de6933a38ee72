package definition

import "iter"

// Name identifies a child within a scope.
type Name = string

// Args holds resolved dependency values keyed by parameter name.
type Args map[Name]any

// Endo is an endofunction patch applied to a resource base value.
type Endo func(value any) (any, error)

// Aggregator consumes the patch stream and produces the merged value.
// Returned by merger functions in place of the positional patch parameter.
type Aggregator func(patches iter.Seq[any]) (any, error)

// Flags carries the visibility and evaluation markers of a definition.
// Defaults are public, non-local, non-eager.
type Flags struct {
	Public bool
	Local  bool
	Eager  bool
}

// Definition is a parsed declaration. Implementations are pointer-typed and
// compare by identity; the symbol layer relies on that.
type Definition interface {
	Meta() Flags
	isDefinition()
}

// Base is embedded by out-of-package Definition implementations such as
// filesystem adapters.
type Base struct {
	Flags Flags
}

func (b *Base) Meta() Flags { return b.Flags }
func (*Base) isDefinition() {}

// ResourceDef declares an endofunction-merged resource. Call returns the
// base value; patches fold over it left to right.
type ResourceDef struct {
	Flags  Flags
	Params []Name
	Call   func(Args) (any, error)
}

// MergerDef declares a resource with a custom aggregation strategy. Call
// returns the aggregator applied to the patch stream.
type MergerDef struct {
	Flags  Flags
	Params []Name
	Call   func(Args) (Aggregator, error)
}

// SinglePatchDef contributes one patch value.
type SinglePatchDef struct {
	Flags  Flags
	Params []Name
	Call   func(Args) (any, error)
}

// MultiplePatchDef contributes a finite sequence of patch values.
type MultiplePatchDef struct {
	Flags  Flags
	Params []Name
	Call   func(Args) ([]any, error)
}

// ExternDef declares that a name is satisfied elsewhere, by a base scope or
// by a kwargs instance scope.
type ExternDef struct {
	Flags Flags
}

func (d *ResourceDef) Meta() Flags      { return d.Flags }
func (d *MergerDef) Meta() Flags        { return d.Flags }
func (d *SinglePatchDef) Meta() Flags   { return d.Flags }
func (d *MultiplePatchDef) Meta() Flags { return d.Flags }
func (d *ExternDef) Meta() Flags        { return d.Flags }

func (*ResourceDef) isDefinition()      {}
func (*MergerDef) isDefinition()        {}
func (*SinglePatchDef) isDefinition()   {}
func (*MultiplePatchDef) isDefinition() {}
func (*ExternDef) isDefinition()        {}

// NewResource creates a public resource definition.
func NewResource(params []Name, call func(Args) (any, error)) *ResourceDef {
	return &ResourceDef{Flags: Flags{Public: true}, Params: params, Call: call}
}

// NewMerger creates a public merger definition.
func NewMerger(params []Name, call func(Args) (Aggregator, error)) *MergerDef {
	return &MergerDef{Flags: Flags{Public: true}, Params: params, Call: call}
}

// NewPatch creates a public single-patch definition.
func NewPatch(params []Name, call func(Args) (any, error)) *SinglePatchDef {
	return &SinglePatchDef{Flags: Flags{Public: true}, Params: params, Call: call}
}

// NewPatches creates a public multiple-patch definition.
func NewPatches(params []Name, call func(Args) ([]any, error)) *MultiplePatchDef {
	return &MultiplePatchDef{Flags: Flags{Public: true}, Params: params, Call: call}
}

// NewExtern creates a public extern declaration.
func NewExtern() *ExternDef {
	return &ExternDef{Flags: Flags{Public: true}}
}

// Const creates a resource that evaluates to a fixed value.
func Const(value any) *ResourceDef {
	return NewResource(nil, func(Args) (any, error) { return value, nil })
}

// MarkLocal marks a definition local and returns it. Only the definition
// types of this package are marked; other implementations, such as those
// embedding Base, are returned unchanged.
func MarkLocal(d Definition) Definition {
	setFlags(d, func(f *Flags) { f.Local = true })
	return d
}

// MarkEager marks a definition eager and returns it. Only the definition
// types of this package are marked; other implementations, such as those
// embedding Base, are returned unchanged.
func MarkEager(d Definition) Definition {
	setFlags(d, func(f *Flags) { f.Eager = true })
	return d
}

// MarkPrivate clears the public flag and returns the definition. Only the
// definition types of this package are changed; other implementations, such
// as those embedding Base, are returned unchanged.
func MarkPrivate(d Definition) Definition {
	setFlags(d, func(f *Flags) { f.Public = false })
	return d
}

func setFlags(d Definition, apply func(*Flags)) {
	switch v := d.(type) {
	case *ResourceDef:
		apply(&v.Flags)
	case *MergerDef:
		apply(&v.Flags)
	case *SinglePatchDef:
		apply(&v.Flags)
	case *MultiplePatchDef:
		apply(&v.Flags)
	case *ExternDef:
		apply(&v.Flags)
	case *MapScopeDef:
		apply(&v.Flags)
	}
}

// Params reports the declared dependency parameters of an evaluator
// definition; scope and extern definitions have none.
func Params(d Definition) []Name {
	switch v := d.(type) {
	case *ResourceDef:
		return v.Params
	case *MergerDef:
		return v.Params
	case *SinglePatchDef:
		return v.Params
	case *MultiplePatchDef:
		return v.Params
	}
	return nil
}
