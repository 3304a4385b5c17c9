package render

import "regexp"

var (
	// OSC: ESC ] ... terminated by BEL or ST (ESC \).
	oscRe = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
	// CSI: ESC [ parameter bytes, intermediate bytes, final byte.
	csiRe = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)
	// Two byte Fe escapes other than the CSI and OSC introducers.
	feRe = regexp.MustCompile(`\x1b[@-Z\\^_]`)
)

// Clean removes ANSI control sequences from raw and returns the visible text.
//
// Clean is total and idempotent: Clean(Clean(s)) == Clean(s) for every s.
// Removal repeats until nothing matches, so sequences that only form after
// an inner sequence is removed are stripped as well. Incomplete sequences
// are left untouched.
func Clean(raw string) string {
	out := raw
	for {
		next := oscRe.ReplaceAllString(out, "")
		next = csiRe.ReplaceAllString(next, "")
		next = feRe.ReplaceAllString(next, "")
		if next == out {
			return out
		}
		out = next
	}
}
