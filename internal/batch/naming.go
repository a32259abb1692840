package batch

import (
	"fmt"
	"regexp"
	"strings"
)

// NamingPattern selects how archive entries are named.
type NamingPattern string

const (
	NameByIndex   NamingPattern = "index"
	NameByLabel   NamingPattern = "label"
	NameByContent NamingPattern = "content"
)

const contentNameLen = 20

func ParseNamingPattern(s string) (NamingPattern, error) {
	switch NamingPattern(strings.ToLower(strings.TrimSpace(s))) {
	case "", NameByIndex:
		return NameByIndex, nil
	case NameByLabel:
		return NameByLabel, nil
	case NameByContent:
		return NameByContent, nil
	}
	return "", fmt.Errorf("unknown naming pattern %q", s)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9]`)

func sanitize(s string) string {
	return unsafeName.ReplaceAllString(s, "_")
}

// namer hands out unique base names (without extension) for one run.
type namer struct {
	pattern NamingPattern
	used    map[string]int
}

func newNamer(p NamingPattern) *namer {
	return &namer{pattern: p, used: make(map[string]int)}
}

// indexName is the 1-based, zero-padded fallback name.
func indexName(i int) string {
	return fmt.Sprintf("qr_%03d", i+1)
}

// name returns the base name for row i. Labels and content are sanitized;
// a blank label or content falls back to the index name. Repeats get
// _2, _3, ... suffixes.
func (n *namer) name(i int, row Row) string {
	base := indexName(i)
	switch n.pattern {
	case NameByLabel:
		if row.Label != "" {
			base = sanitize(row.Label)
		}
	case NameByContent:
		if row.Data != "" {
			r := []rune(row.Data)
			if len(r) > contentNameLen {
				r = r[:contentNameLen]
			}
			base = sanitize(string(r))
		}
	}

	n.used[base]++
	if c := n.used[base]; c > 1 {
		candidate := fmt.Sprintf("%s_%d", base, c)
		for n.used[candidate] > 0 {
			c++
			candidate = fmt.Sprintf("%s_%d", base, c)
		}
		n.used[base] = c
		n.used[candidate]++
		return candidate
	}
	return base
}
