package drugs

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	unbaseScale   = 0.95
	partialScale  = 0.9
	farLengthRate = 8.0
	farScale      = 0.6
)

// Similarity scores two drug names on a 0-100 scale using weighted ratio
// scoring. Both inputs are lowercased and reduced to alphanumeric tokens.
// Names of similar length are compared whole and by token order. When one
// name is much longer, as with "Tylenol 500mg" against "tylenol", the shorter
// is aligned against the best window of the longer and the score is scaled
// down. Empty input scores 0.
func Similarity(a, b string) int {
	return int(math.Round(weightedRatio(process(a), process(b))))
}

func weightedRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	lenRatio := float64(la) / float64(lb)
	if lb > la {
		lenRatio = float64(lb) / float64(la)
	}

	best := ratio(a, b)
	if lenRatio < 1.5 {
		return math.Max(best, tokenRatio(a, b)*unbaseScale)
	}

	scale := partialScale
	if lenRatio >= farLengthRate {
		scale = farScale
	}
	best = math.Max(best, partialRatio(a, b)*scale)
	return math.Max(best, partialTokenRatio(a, b)*unbaseScale*scale)
}

// process lowercases s and replaces every non-alphanumeric rune with a space.
func process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.TrimSpace(mapped)
}

// ratio is 200*LCS/(len(a)+len(b)), which equals the normalized indel similarity.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcs(ra, rb)) / float64(total)
}

func lcs(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// partialRatio slides the shorter string across the longer, including the
// partially overlapping windows at either end, and keeps the best ratio.
func partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	best := slideRatio(short, long)
	if len(short) == len(long) && best < 100 {
		best = math.Max(best, slideRatio(long, short))
	}
	return best
}

func slideRatio(short, long []rune) float64 {
	best := 0.0
	for start := 1 - len(short); start < len(long); start++ {
		lo, hi := max(start, 0), min(start+len(short), len(long))
		best = math.Max(best, ratio(string(short), string(long[lo:hi])))
		if best == 100 {
			break
		}
	}
	return best
}

func tokenRatio(a, b string) float64 {
	return math.Max(tokenSetRatio(a, b), ratio(sortTokens(a), sortTokens(b)))
}

// tokenSetRatio compares the shared tokens against each side's shared plus
// leftover tokens.
func tokenSetRatio(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared, onlyA, onlyB := splitTokens(setA, setB)
	if len(shared) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sect := strings.Join(shared, " ")
	withA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))
	best := ratio(withA, withB)
	if sect == "" {
		return best
	}
	return math.Max(best, math.Max(ratio(sect, withA), ratio(sect, withB)))
}

// partialTokenRatio is 100 as soon as the two names share a whole token.
func partialTokenRatio(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	shared, onlyA, onlyB := splitTokens(setA, setB)
	if len(shared) > 0 {
		return 100
	}
	best := partialRatio(sortTokens(a), sortTokens(b))
	if len(onlyA) == len(strings.Fields(a)) && len(onlyB) == len(strings.Fields(b)) {
		return best
	}
	return math.Max(best, partialRatio(strings.Join(onlyA, " "), strings.Join(onlyB, " ")))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// splitTokens returns the sorted intersection and the sorted differences a-b and b-a.
func splitTokens(a, b map[string]struct{}) (shared, onlyA, onlyB []string) {
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range b {
		if _, ok := a[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return shared, onlyA, onlyB
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
