package playergraph

// Jaccard returns |A ∩ B| / |A ∪ B| over the distinct values of a and b.
// Two empty sets have similarity 0.
func Jaccard(a, b []string) float64 {
	set := make(map[string]uint8, len(a)+len(b))
	for _, v := range a {
		set[v] |= 1
	}
	for _, v := range b {
		set[v] |= 2
	}
	if len(set) == 0 {
		return 0
	}
	var inter int
	for _, mask := range set {
		if mask == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}
