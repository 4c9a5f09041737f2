package match

// Wildcard reports whether s matches pattern in its entirety.
//
// Only two metacharacters exist: '*' matches any run of characters
// (including none and including newlines) and '?' matches exactly one
// character. Everything else, brackets and backslashes included, is literal.
// Matching is case-sensitive and works on runes, not bytes.
//
// filepath.Match is not usable here: its '*' stops at path separators and it
// gives '[' and '\\' special meaning, which breaks transcripts like "[* ms]".
func Wildcard(pattern, s string) bool {
	p := []rune(pattern)
	t := []rune(s)

	pi, ti := 0, 0
	star, mark := -1, 0

	for ti < len(t) {
		switch {
		case pi < len(p) && p[pi] == '*':
			// Record the star and first try matching it against nothing.
			star = pi
			mark = ti
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == t[ti]):
			pi++
			ti++
		case star >= 0:
			// Backtrack: let the last star swallow one more character.
			mark++
			ti = mark
			pi = star + 1
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
