// Package pattern matches Go import paths against package patterns.
//
// A pattern is a slash separated list of segments. The segment "..." matches
// zero or more path segments; any other segment is matched with path.Match,
// so "*" stands for exactly one segment. The keyword "std" matches standard
// library packages.
//
//	example.com/shop/domain        exactly that package
//	example.com/shop/domain/...    the package and everything below it
//	.../request/...                any package with a "request" segment
package pattern

import (
	"fmt"
	"path"
	"strings"
)

// Std is the pattern keyword for standard library packages.
const Std = "std"

const wildcard = "..."

// Pattern is a compiled package pattern.
type Pattern struct {
	raw      string
	segments []string
	std      bool
}

// Compile parses a pattern and validates its glob segments.
func Compile(raw string) (Pattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Pattern{}, fmt.Errorf("empty package pattern")
	}
	if raw == Std {
		return Pattern{raw: raw, std: true}, nil
	}
	segs := strings.Split(strings.Trim(raw, "/"), "/")
	for _, s := range segs {
		if s == wildcard || s == "" {
			continue
		}
		if _, err := path.Match(s, s); err != nil {
			return Pattern{}, fmt.Errorf("invalid package pattern %q: %w", raw, err)
		}
	}
	return Pattern{raw: raw, segments: segs}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(raw string) Pattern {
	p, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern as written.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether pkgPath matches the pattern.
func (p Pattern) Match(pkgPath string) bool {
	if p.std {
		return IsStandard(pkgPath)
	}
	if pkgPath == "" {
		return false
	}
	return matchSegments(p.segments, strings.Split(pkgPath, "/"))
}

// MatchModule is like Match, except that "std" never matches the packages
// of module. Module paths without a dot would otherwise look standard.
func (p Pattern) MatchModule(pkgPath, module string) bool {
	if p.std && module != "" && (pkgPath == module || strings.HasPrefix(pkgPath, module+"/")) {
		return false
	}
	return p.Match(pkgPath)
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == wildcard {
			// Collapse runs of wildcards.
			for len(pat) > 0 && pat[0] == wildcard {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pat, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		ok, _ := path.Match(pat[0], segs[0])
		if !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

// IsStandard reports whether pkgPath looks like a standard library package:
// its first element contains no dot. "C" and "unsafe" count as standard.
func IsStandard(pkgPath string) bool {
	if pkgPath == "" {
		return false
	}
	first, _, _ := strings.Cut(pkgPath, "/")
	return !strings.Contains(first, ".")
}

// Set is an ordered list of patterns. A set matches when any member does.
type Set []Pattern

// CompileSet compiles every raw pattern, skipping empty strings.
func CompileSet(raws ...string) (Set, error) {
	set := make(Set, 0, len(raws))
	for _, r := range raws {
		if strings.TrimSpace(r) == "" {
			continue
		}
		p, err := Compile(r)
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}

// MustSet is like CompileSet but panics on error.
func MustSet(raws ...string) Set {
	s, err := CompileSet(raws...)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether any pattern in the set matches pkgPath.
func (s Set) Match(pkgPath string) bool {
	for _, p := range s {
		if p.Match(pkgPath) {
			return true
		}
	}
	return false
}

// MatchModule reports whether any pattern in the set matches pkgPath,
// using Pattern.MatchModule.
func (s Set) MatchModule(pkgPath, module string) bool {
	for _, p := range s {
		if p.MatchModule(pkgPath, module) {
			return true
		}
	}
	return false
}

// Union returns a new set holding the patterns of s followed by other.
func (s Set) Union(other Set) Set {
	out := make(Set, 0, len(s)+len(other))
	out = append(out, s...)
	return append(out, other...)
}

// Strings returns the raw patterns.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.raw
	}
	return out
}

// String joins the raw patterns for messages.
func (s Set) String() string {
	return "[" + strings.Join(s.Strings(), ", ") + "]"
}
