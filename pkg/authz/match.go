package authz

import "strings"

// Matches reports whether the resource pattern matches the request path.
//
// Patterns use hierarchical ant-style wildcards:
//
//   - "?" matches exactly one character within a segment
//   - "*" matches zero or more characters within a segment
//   - "**" matches zero or more whole segments
//
// Literal segments must match exactly and are case-sensitive. A trailing
// "/**" also matches the bare prefix, so "/admin/**" matches "/admin".
// Matching is total: any (pattern, path) pair yields true or false, never
// an error.
func Matches(pattern, path string) bool {
	if strings.HasPrefix(path, "/") != strings.HasPrefix(pattern, "/") {
		return false
	}

	pattDirs := splitPath(pattern)
	pathDirs := splitPath(path)

	pattStart, pattEnd := 0, len(pattDirs)-1
	pathStart, pathEnd := 0, len(pathDirs)-1

	// Match leading segments up to the first "**".
	for pattStart <= pattEnd && pathStart <= pathEnd {
		patDir := pattDirs[pattStart]
		if patDir == "**" {
			break
		}
		if !matchSegment(patDir, pathDirs[pathStart]) {
			return false
		}
		pattStart++
		pathStart++
	}

	if pathStart > pathEnd {
		// Path is exhausted; remaining pattern segments must all be "**".
		if pattStart > pattEnd {
			return strings.HasSuffix(pattern, "/") == strings.HasSuffix(path, "/")
		}
		if pattStart == pattEnd && pattDirs[pattStart] == "*" && strings.HasSuffix(path, "/") {
			return true
		}
		for i := pattStart; i <= pattEnd; i++ {
			if pattDirs[i] != "**" {
				return false
			}
		}
		return true
	}

	if pattStart > pattEnd {
		// Pattern is exhausted but path segments remain.
		return false
	}

	// Match trailing segments back to the last "**".
	for pattStart <= pattEnd && pathStart <= pathEnd {
		patDir := pattDirs[pattEnd]
		if patDir == "**" {
			break
		}
		if !matchSegment(patDir, pathDirs[pathEnd]) {
			return false
		}
		pattEnd--
		pathEnd--
	}

	if pathStart > pathEnd {
		for i := pattStart; i <= pattEnd; i++ {
			if pattDirs[i] != "**" {
				return false
			}
		}
		return true
	}

	// Resolve segments between "**" wildcards by searching for each fixed
	// run of pattern segments in the remaining path.
	for pattStart != pattEnd && pathStart <= pathEnd {
		nextDoubleStar := -1
		for i := pattStart + 1; i <= pattEnd; i++ {
			if pattDirs[i] == "**" {
				nextDoubleStar = i
				break
			}
		}
		if nextDoubleStar == pattStart+1 {
			// Consecutive "**": skip one.
			pattStart++
			continue
		}

		runLen := nextDoubleStar - pattStart - 1
		pathLen := pathEnd - pathStart + 1
		found := -1
		for i := 0; i <= pathLen-runLen; i++ {
			ok := true
			for j := 0; j < runLen; j++ {
				if !matchSegment(pattDirs[pattStart+j+1], pathDirs[pathStart+i+j]) {
					ok = false
					break
				}
			}
			if ok {
				found = pathStart + i
				break
			}
		}
		if found == -1 {
			return false
		}

		pattStart = nextDoubleStar
		pathStart = found + runLen
	}

	for i := pattStart; i <= pattEnd; i++ {
		if pattDirs[i] != "**" {
			return false
		}
	}
	return true
}

// splitPath splits a path into its non-empty segments.
func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// matchSegment matches a single path segment against a segment pattern
// containing "*" and "?" wildcards.
func matchSegment(pattern, s string) bool {
	pi, si := 0, 0
	starPi, starSi := -1, 0

	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			// Record the star position and try matching zero characters
			// first; backtrack extends the match one character at a time.
			starPi = pi
			starSi = si
			pi++
		case starPi != -1:
			pi = starPi + 1
			starSi++
			si = starSi
		default:
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
