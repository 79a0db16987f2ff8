package domain

// Bundle maps interface string keys to their current-language text.
type Bundle map[string]string

// Clone returns an independent copy of the bundle.
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// HasKeys reports whether b contains every key of ref. A translated
// bundle missing keys from its source bundle is rejected.
func (b Bundle) HasKeys(ref Bundle) bool {
	for k := range ref {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
