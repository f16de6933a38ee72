package runtime

import (
	"fmt"
	"iter"

	"github.com/overlaykit/overlay/definition"
	"github.com/overlaykit/overlay/symbol"
)

// boundEvaluator pairs an evaluator with the mixin supplying its lexical
// chain. Evaluators bind the mixin of the symbol whose own origin
// contributed their definition, so dependencies resolve at the definition
// site even when origins were merged across composition.
type boundEvaluator struct {
	mixin     *Mixin
	evaluator symbol.Evaluator
	// duplicate marks a definition already bound through an earlier symbol
	// of the linearization (diamond inheritance); it contributes nothing.
	duplicate bool
}

// bindEvaluators collects evaluators in super-linearization order: the
// mixin's own first, then one batch per strict super mixin.
func (m *Mixin) bindEvaluators() ([]boundEvaluator, error) {
	var bound []boundEvaluator
	seen := map[definition.Definition]bool{}
	appendBatch := func(source *Mixin) {
		for _, evaluator := range source.symbol.OwnEvaluators() {
			bound = append(bound, boundEvaluator{
				mixin:     source,
				evaluator: evaluator,
				duplicate: seen[evaluator.Definition],
			})
			seen[evaluator.Definition] = true
		}
	}
	appendBatch(m)
	supers, err := m.superMixins()
	if err != nil {
		return nil, err
	}
	for _, superMixin := range supers {
		appendBatch(superMixin)
	}
	return bound, nil
}

// electedAt locates the bound evaluator named by an election: symbol index
// OwnSymbolIndex is the mixin itself, otherwise the i-th strict super.
func electedAt(bound []boundEvaluator, m *Mixin, election symbol.Election) (boundEvaluator, error) {
	supers, err := m.superMixins()
	if err != nil {
		return boundEvaluator{}, err
	}
	target := m
	if election.SymbolIndex != symbol.OwnSymbolIndex {
		if election.SymbolIndex >= len(supers) {
			return boundEvaluator{}, &NoMergerError{Path: m.symbol.Path()}
		}
		target = supers[election.SymbolIndex]
	}
	index := 0
	for _, candidate := range bound {
		if candidate.mixin != target {
			continue
		}
		if index == election.EvaluatorIndex {
			return candidate, nil
		}
		index++
	}
	return boundEvaluator{}, &NoMergerError{Path: m.symbol.Path()}
}

// patchStream yields patch values from every patcher evaluator except the
// elected merger and duplicates, in super-linearization order. A production
// failure stops the stream and is reported through prodErr.
func patchStream(bound []boundEvaluator, elected *boundEvaluator, host *Mixin, prodErr *error) iter.Seq[any] {
	return func(yield func(any) bool) {
		for i := range bound {
			candidate := &bound[i]
			if candidate.duplicate || candidate.evaluator.IsMerger() {
				continue
			}
			if elected != nil && candidate.mixin == elected.mixin && candidate.evaluator.Definition == elected.evaluator.Definition {
				continue
			}
			args, err := candidate.mixin.resolveArgs(candidate.evaluator.Definition, host)
			if err != nil {
				*prodErr = err
				return
			}
			switch def := candidate.evaluator.Definition.(type) {
			case *definition.SinglePatchDef:
				value, err := def.Call(args)
				if err != nil {
					*prodErr = err
					return
				}
				if !yield(value) {
					return
				}
			case *definition.MultiplePatchDef:
				values, err := def.Call(args)
				if err != nil {
					*prodErr = err
					return
				}
				for _, value := range values {
					if !yield(value) {
						return
					}
				}
			}
		}
	}
}

// applyEndo applies one endofunction patch to the accumulated value.
func applyEndo(patch, value any) (any, error) {
	switch fn := patch.(type) {
	case definition.Endo:
		return fn(value)
	case func(any) (any, error):
		return fn(value)
	case func(any) any:
		return fn(value), nil
	default:
		return nil, fmt.Errorf("patch %T is not an endofunction", patch)
	}
}

// foldEndo folds endofunction patches over the base value left to right.
func foldEndo(base any, patches iter.Seq[any], prodErr *error) (any, error) {
	value := base
	for patch := range patches {
		next, err := applyEndo(patch, value)
		if err != nil {
			return nil, err
		}
		value = next
	}
	if *prodErr != nil {
		return nil, *prodErr
	}
	return value, nil
}
