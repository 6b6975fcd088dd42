package ngram

import (
	"math/rand/v2"
)

// TargetOrder returns the order used to pick the symbol following a prefix of
// prefixLen symbols, the start marker included.
//
// With maxN > 0 the order grows with the prefix, one per symbol, until it
// reaches maxN: maxN = 3 gives 2, 3, 3, 3... With maxN == 0 the whole prefix
// is used as the key, up to the highest order available (maxOrder).
func TargetOrder(prefixLen, maxN, maxOrder int) int {
	if maxN > 0 {
		return max(1, min(maxN, prefixLen+1))
	}
	return max(1, min(prefixLen+1, maxOrder))
}

// keyFor returns the key of an order-n lookup: the last n-1 symbols of prefix.
// ok is false when the prefix is too short.
func keyFor(prefix []rune, n int) (string, bool) {
	if n < 1 || n-1 > len(prefix) {
		return "", false
	}
	return string(prefix[len(prefix)-(n-1):]), true
}

// matchingOrders returns the orders in [1, upper] for which at least one
// participant holds the key taken from prefix.
func matchingOrders(parts []Entry, prefix []rune, upper int) []int {
	var orders []int
	for n := 1; n <= upper; n++ {
		key, ok := keyFor(prefix, n)
		if !ok {
			break
		}
		for _, e := range parts {
			if t := e.Model.Table(n); t != nil && t.Has(key) {
				orders = append(orders, n)
				break
			}
		}
	}
	return orders
}

// injectRandomness replaces current, with probability randomness, by another
// order drawn uniformly among candidates. current is kept when no other
// candidate exists.
func injectRandomness(rng *rand.Rand, randomness float64, current int, candidates []int) int {
	if randomness <= 0 || rng.Float64() >= randomness {
		return current
	}
	alternatives := make([]int, 0, len(candidates))
	for _, n := range candidates {
		if n != current {
			alternatives = append(alternatives, n)
		}
	}
	if len(alternatives) == 0 {
		return current
	}
	return alternatives[rng.IntN(len(alternatives))]
}
