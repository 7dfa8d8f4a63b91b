// Package cookie accumulates Set-Cookie response headers into a single
// Cookie request-header value. The broker's login flow spreads its
// session cookies across two responses whose batches must be merged.
package cookie

import (
	"regexp"
	"strings"
)

// Pair is one name=value cookie, attributes stripped.
type Pair struct {
	Name  string
	Value string
}

// Jar is an ordered accumulation of cookies scoped to one
// authentication attempt. It is never persisted.
type Jar struct {
	pairs []Pair
}

// Cookie batches are comma-joined, but commas also appear inside
// attribute values (Expires dates). A fragment boundary is a comma
// followed by a name= token, not just any comma.
var boundaryRe = regexp.MustCompile(`,\s*[^;=\s,]+=`)

// ParseSetCookie parses one or more comma-joined raw Set-Cookie values
// into a Jar, keeping only the leading name=value of each fragment.
func ParseSetCookie(raw string) Jar {
	var jar Jar
	for _, fragment := range splitBatches(raw) {
		if semi := strings.Index(fragment, ";"); semi >= 0 {
			fragment = fragment[:semi]
		}
		fragment = strings.TrimSpace(fragment)
		eq := strings.Index(fragment, "=")
		if eq <= 0 {
			continue
		}
		jar.pairs = append(jar.pairs, Pair{
			Name:  strings.TrimSpace(fragment[:eq]),
			Value: fragment[eq+1:],
		})
	}
	return jar
}

func splitBatches(raw string) []string {
	var fragments []string
	start := 0
	for _, loc := range boundaryRe.FindAllStringIndex(raw, -1) {
		fragments = append(fragments, raw[start:loc[0]])
		start = loc[0] + 1 // skip the comma, keep the name= token
	}
	fragments = append(fragments, raw[start:])
	return fragments
}

// Merge appends all cookies from other, preserving source order.
func (j *Jar) Merge(other Jar) {
	j.pairs = append(j.pairs, other.pairs...)
}

// Get returns the value of the first cookie with the given name, or "".
func (j Jar) Get(name string) string {
	for _, p := range j.pairs {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Header serializes the jar as a Cookie request-header value.
func (j Jar) Header() string {
	parts := make([]string, 0, len(j.pairs))
	for _, p := range j.pairs {
		parts = append(parts, p.Name+"="+p.Value)
	}
	return strings.Join(parts, "; ")
}

// Len reports the number of accumulated cookies.
func (j Jar) Len() int {
	return len(j.pairs)
}
