// Package answer reads gold answers written in document-reference markup,
// where plain text is wrapped by tokens of the form "@content{N}@".
package answer

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var tokenRegex = regexp.MustCompile(`@content(\d+)@`)

// Locate returns the distinct document indices referenced by the markup, ascending.
func Locate(markup string) []int {
	seen := map[int]struct{}{}
	for _, m := range tokenRegex.FindAllStringSubmatch(markup, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// ExtractFragments returns the answer text pieces wrapped by document n's token.
func ExtractFragments(markup string, n int) []string {
	token := fmt.Sprintf("@content%d@", n)
	leak := fmt.Sprintf("content%d@", n)

	var out []string
	for _, piece := range strings.Split(markup, token) {
		piece = strings.TrimSpace(piece)
		if piece == "" || strings.Contains(piece, "@content") {
			continue
		}
		out = append(out, strings.ReplaceAll(piece, leak, ""))
	}
	return out
}

// GoldText concatenates the fragments of every referenced document in index order.
func GoldText(markup string) string {
	var b strings.Builder
	for _, n := range Locate(markup) {
		for _, frag := range ExtractFragments(markup, n) {
			b.WriteString(frag)
		}
	}
	return b.String()
}
