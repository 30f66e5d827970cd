package utils

// Pick returns the entries of input whose keys are in allowed, in input order.
// Keys missing from input are omitted.
func Pick(input *Body, allowed []string) *Body {
	set := toSet(allowed)
	out := &Body{}
	for _, k := range input.Keys() {
		if _, ok := set[k]; ok {
			v, _ := input.Get(k)
			out.Set(k, v)
		}
	}
	return out
}

// FindUnknown lists the keys of input that are not in allowed, in input order.
func FindUnknown(input *Body, allowed []string) []string {
	set := toSet(allowed)
	var unknown []string
	for _, k := range input.Keys() {
		if _, ok := set[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// Without returns a new allowlist minus exclusions. allowed is not modified.
func Without(allowed []string, exclusions ...string) []string {
	drop := toSet(exclusions)
	out := make([]string, 0, len(allowed))
	for _, f := range allowed {
		if _, ok := drop[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

func toSet(fields []string) map[string]struct{} {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
