// Package rouge scores candidate text against a reference with character-level ROUGE-L.
package rouge

// Scorer rates how well candidate matches reference, in [0, 1].
type Scorer interface {
	Score(candidate, reference string) float64
}

const DefaultBeta = 1.2

// RougeL is the LCS-based F-measure over characters. Beta weights recall.
type RougeL struct {
	Beta float64
}

func New() RougeL {
	return RougeL{Beta: DefaultBeta}
}

func (r RougeL) Score(candidate, reference string) float64 {
	cand, ref := []rune(candidate), []rune(reference)
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}
	lcs := float64(LCS(cand, ref))
	if lcs == 0 {
		return 0
	}
	prec := lcs / float64(len(cand))
	rec := lcs / float64(len(ref))
	b2 := r.Beta * r.Beta
	return (1 + b2) * prec * rec / (rec + b2*prec)
}

// LCS returns the length of the longest common subsequence of a and b.
func LCS(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
