package voice

// dig walks nested map keys, returning nil when any hop is missing or the
// wrong shape.
func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = node[key]
		if !ok {
			return nil
		}
	}
	return cur
}

func digString(m map[string]any, path ...string) string {
	s, _ := dig(m, path...).(string)
	return s
}

func digFloat(m map[string]any, path ...string) float64 {
	f, _ := dig(m, path...).(float64)
	return f
}

func digMap(m map[string]any, path ...string) map[string]any {
	inner, _ := dig(m, path...).(map[string]any)
	return inner
}

func digSlice(m map[string]any, path ...string) []any {
	s, _ := dig(m, path...).([]any)
	return s
}
