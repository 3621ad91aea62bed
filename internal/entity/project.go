package entity

import (
	"strings"
	"unicode/utf8"
)

// Entity is one recognized span. It covers [Start, Start+rune length of Text).
type Entity struct {
	Start int    `json:"start"`
	Type  string `json:"type"`
	Text  string `json:"text"`
}

func (e Entity) End() int {
	return e.Start + utf8.RuneCountInString(e.Text)
}

var typeCodes = map[string]string{
	"time":     "T",
	"location": "L",
	"org":      "O",
	"job":      "J",
	"person":   "P",
	"company":  "C",
}

// TypeCode collapses a known type name to its single-letter code.
// Unknown names are returned unchanged.
func TypeCode(name string) string {
	if code, ok := typeCodes[name]; ok {
		return code
	}
	return name
}

// Project tags every character of a text of length textLen. Entities are
// expected ordered by start and non-overlapping; characters outside any
// entity get the empty tag.
func Project(textLen int, entities []Entity) []string {
	if textLen <= 0 {
		return []string{}
	}
	tags := make([]string, 0, textLen)
	ent := 0
	for pos := 0; pos < textLen; {
		if ent == len(entities) {
			tags = append(tags, "")
			pos++
			continue
		}
		cur := entities[ent]
		switch {
		case pos < cur.Start:
			tags = append(tags, "")
			pos++
		case pos < cur.End():
			tags = append(tags, TypeCode(cur.Type))
			pos++
		default:
			ent++
		}
	}
	return tags
}

// Join renders tags in the comma-separated wire form.
func Join(tags []string) string {
	return strings.Join(tags, ",")
}

// Split parses the comma-separated wire form of the tags of a text with n
// characters. The empty string is zero tags when n is 0 and one empty tag
// otherwise. Every comma separates a tag, so a malformed value yields a slice
// whose length differs from n.
func Split(s string, n int) []string {
	if n == 0 && s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
