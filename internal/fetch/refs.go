package fetch

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// tagVersion is a tag parsed as a semantic version. Tags that do not parse
// order after every version, lexically.
type tagVersion struct {
	major, minor, patch int
	pre                 string
}

var tagRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z\-\.]+))?(?:\+[0-9A-Za-z\-\.]+)?$`)

func parseTag(tag string) (tagVersion, bool) {
	m := tagRegex.FindStringSubmatch(tag)
	if m == nil {
		return tagVersion{}, false
	}
	num := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return tagVersion{major: num(m[1]), minor: num(m[2]), patch: num(m[3]), pre: m[4]}, true
}

func (v tagVersion) compare(o tagVersion) int {
	if c := cmp.Compare(v.major, o.major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.minor, o.minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.patch, o.patch); c != 0 {
		return c
	}
	switch {
	case v.pre == o.pre:
		return 0
	case v.pre == "":
		return 1
	case o.pre == "":
		return -1
	}
	return comparePrerelease(v.pre, o.pre)
}

// comparePrerelease compares dot-separated identifiers: numerically when
// both are numbers, numbers before words, and a longer list wins a tie.
func comparePrerelease(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		var c int
		switch {
		case errA == nil && errB == nil:
			c = cmp.Compare(na, nb)
		case errA == nil:
			c = -1
		case errB == nil:
			c = 1
		default:
			c = strings.Compare(pa[i], pb[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(pa), len(pb))
}

// CompareRefs orders version tags by precedence, before any other ref.
func CompareRefs(a, b string) int {
	va, okA := parseTag(a)
	vb, okB := parseTag(b)
	switch {
	case okA && okB:
		if c := va.compare(vb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// SortRefs sorts refs in place with CompareRefs.
func SortRefs(refs []string) {
	slices.SortFunc(refs, CompareRefs)
}

// Latest returns the highest version tag without a prerelease part.
func Latest(refs []string) (string, bool) {
	best, found := "", false
	for _, r := range refs {
		v, ok := parseTag(r)
		if !ok || v.pre != "" {
			continue
		}
		if !found || CompareRefs(r, best) > 0 {
			best, found = r, true
		}
	}
	return best, found
}
