package pattern

// Split merges one or more partial patterns left-to-right (later parts
// overwrite earlier ones on key collision) and returns the triple
// (message, meta, raw): non-meta keys land in message, meta keys land
// in meta with the sigil stripped, and every key — meta included, with
// its original sigil intact — lands in raw.
func Split(parts ...Pattern) (message, meta, raw Pattern) {
	message = make(Pattern)
	meta = make(Pattern)
	raw = make(Pattern)

	for _, part := range parts {
		for k, v := range part {
			raw[k] = v
			if IsMeta(k) {
				meta[StripSigil(k)] = v
			} else {
				message[k] = v
			}
		}
	}

	return message, meta, raw
}

// Merge composes parts left-to-right into a single Pattern, later
// parts overwriting earlier ones on key collision, without separating
// meta keys. The dispatcher composes the effective request pattern
// (§4.4 step 2) with Split instead.
func Merge(parts ...Pattern) Pattern {
	out := make(Pattern)
	for _, part := range parts {
		for k, v := range part {
			out[k] = v
		}
	}
	return out
}
