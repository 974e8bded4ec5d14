package parameter

import "fmt"

// Expand turns parameters into the cross product of their values.
//
// Starting from one empty set, each expandable parameter replicates every
// existing set len(value) times (set i's replicas come before set i+1's) and
// the j-th replica receives value[j mod len(value)]. Non-expandable
// parameters, and expandable ones whose value is not a sequence, contribute the
// same value to every set. An expandable parameter with an empty sequence
// yields no sets at all.
func Expand(params []Parameter) ([]*Set, error) {
	sets := []*Set{NewSet()}

	for _, p := range params {
		if err := p.Validate(); err != nil {
			return nil, err
		}

		seq, ok := sequence(p.Value)
		if !p.Expandable || !ok {
			for _, s := range sets {
				s.Put(p.Name, deepCopy(p.Value))
			}
			continue
		}

		n := seq.Len()
		expanded := make([]*Set, 0, len(sets)*n)
		for _, s := range sets {
			for k := 0; k < n; k++ {
				expanded = append(expanded, s.Clone())
			}
		}
		for j, s := range expanded {
			s.Put(p.Name, deepCopy(seq.Index(j%n).Interface()))
		}
		sets = expanded
	}

	return sets, nil
}

// Count returns the number of sets Expand would produce without building them.
func Count(params []Parameter) (int, error) {
	count := 1
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return 0, fmt.Errorf("parameter %d: %w", i, err)
		}
		if seq, ok := sequence(p.Value); p.Expandable && ok {
			count *= seq.Len()
		}
	}
	return count, nil
}
