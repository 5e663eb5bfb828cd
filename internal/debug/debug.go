package debug

// Assert panics with info when fn reports false. It guards internal
// invariants, never caller input.
func Assert(info string, fn func() bool) {
	if !fn() {
		panic("assertion failed: " + info)
	}
}
