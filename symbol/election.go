package symbol

import "github.com/overlaykit/overlay/definition"

// EvaluatorKind tags the evaluator contributed by one definition.
type EvaluatorKind uint8

const (
	// EndofunctionMerger folds endofunction patches over a base value.
	EndofunctionMerger EvaluatorKind = iota
	// FunctionalMerger applies a custom aggregator to the patch stream.
	FunctionalMerger
	// SinglePatcher contributes one patch value.
	SinglePatcher
	// MultiplePatcher contributes a sequence of patch values.
	MultiplePatcher
)

// Evaluator pairs a non-scope definition with its evaluator kind.
type Evaluator struct {
	Definition definition.Definition
	Kind       EvaluatorKind
}

// IsMerger reports whether the evaluator supplies the merge step.
func (e Evaluator) IsMerger() bool {
	return e.Kind == EndofunctionMerger || e.Kind == FunctionalMerger
}

// OwnEvaluators returns the evaluators contributed by this symbol's own
// origin members, in contribution order.
func (s *Symbol) OwnEvaluators() []Evaluator {
	var evaluators []Evaluator
	for _, member := range s.ownOrigin {
		switch member.(type) {
		case *definition.ResourceDef:
			evaluators = append(evaluators, Evaluator{Definition: member, Kind: EndofunctionMerger})
		case *definition.MergerDef:
			evaluators = append(evaluators, Evaluator{Definition: member, Kind: FunctionalMerger})
		case *definition.SinglePatchDef:
			evaluators = append(evaluators, Evaluator{Definition: member, Kind: SinglePatcher})
		case *definition.MultiplePatchDef:
			evaluators = append(evaluators, Evaluator{Definition: member, Kind: MultiplePatcher})
		}
	}
	return evaluators
}

// ElectionKind classifies the merger election outcome.
type ElectionKind uint8

const (
	// MergerElected names a merger evaluator supplying the merge step.
	MergerElected ElectionKind = iota
	// PatcherOnly means patches exist but no merger; legal only under a
	// kwargs mixin supplying the base value.
	PatcherOnly
	// NoEvaluators means the symbol is a pure extern declaration.
	NoEvaluators
)

// OwnSymbolIndex marks an election landing on the symbol itself rather than
// one of its strict supers.
const OwnSymbolIndex = -1

// Election identifies which contributing symbol and evaluator supply the
// merge step; all other evaluators contribute patches only.
type Election struct {
	Kind           ElectionKind
	SymbolIndex    int
	EvaluatorIndex int
}

// ElectedMerger elects the merge step: the first symbol in
// super-linearization order, self first, whose own evaluators contain a
// merger. The result is deterministic for identical inputs.
func (s *Symbol) ElectedMerger() (Election, error) {
	switch s.electionState {
	case memoDone:
		return s.election, s.electionErr
	case memoRunning:
		return Election{}, &InvalidReferenceError{Path: s.Path(), Cause: errCircularSupers}
	}
	s.electionState = memoRunning
	s.election, s.electionErr = s.computeElection()
	s.electionState = memoDone
	return s.election, s.electionErr
}

func (s *Symbol) computeElection() (Election, error) {
	supers, err := s.StrictSupers()
	if err != nil {
		return Election{}, err
	}
	candidates := make([]*Symbol, 0, len(supers)+1)
	candidates = append(candidates, s)
	candidates = append(candidates, supers...)

	anyPatcher := false
	for candidateIndex, candidate := range candidates {
		evaluators := candidate.OwnEvaluators()
		for evaluatorIndex, evaluator := range evaluators {
			if !evaluator.IsMerger() {
				anyPatcher = true
				continue
			}
			for _, other := range evaluators[evaluatorIndex+1:] {
				if other.IsMerger() {
					return Election{}, &MultipleMergersError{Path: s.Path()}
				}
			}
			return Election{
				Kind:           MergerElected,
				SymbolIndex:    candidateIndex - 1,
				EvaluatorIndex: evaluatorIndex,
			}, nil
		}
	}
	if anyPatcher {
		return Election{Kind: PatcherOnly, SymbolIndex: OwnSymbolIndex}, nil
	}
	return Election{Kind: NoEvaluators, SymbolIndex: OwnSymbolIndex}, nil
}
