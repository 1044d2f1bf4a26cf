package tests

import "sort"

// tieRanks assigns 1-based ranks with tied values sharing their average
// rank. The second return is the tie term sum(t^3 - t) over tie groups,
// which the rank tests need for their variance corrections.
func tieRanks(values []float64) ([]float64, float64) {
	n := len(values)
	if n == 0 {
		return nil, 0
	}

	type pair struct {
		value float64
		index int
	}
	pairs := make([]pair, n)
	for i, v := range values {
		pairs[i] = pair{value: v, index: i}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

	ranks := make([]float64, n)
	var tieSum float64
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}
		size := j - i
		avg := float64(i+1) + float64(size-1)/2
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avg
		}
		if size > 1 {
			s := float64(size)
			tieSum += s*s*s - s
		}
		i = j
	}
	return ranks, tieSum
}
