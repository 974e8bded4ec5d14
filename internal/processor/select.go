package processor

// SelectByEquality returns the results whose fields equal every value in
// criteria. A criterion naming an unknown field matches nothing.
func (p *Processor) SelectByEquality(criteria map[string]any) []Result {
	return p.SelectByPredicate(func(r Result) bool {
		for field, want := range criteria {
			got, ok := r.Field(field)
			if !ok || !valuesEqual(got, want) {
				return false
			}
		}
		return true
	})
}

// SelectByPredicate returns the results for which keep is true, in unit id
// order.
func (p *Processor) SelectByPredicate(keep func(Result) bool) []Result {
	var out []Result
	for _, r := range p.Results() {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParameterValues returns the distinct values of field across all results
// in order of first appearance.
func (p *Processor) ParameterValues(field string) []any {
	var out []any
	for _, r := range p.Results() {
		v, ok := r.Field(field)
		if !ok {
			continue
		}
		seen := false
		for _, o := range out {
			if valuesEqual(o, v) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}
