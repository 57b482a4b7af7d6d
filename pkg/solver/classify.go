package solver

// signatureDigits maps segment signatures of the fixed CAPTCHA font to digits.
// There is deliberately no entry for 0: no glyph for it has been observed.
var signatureDigits = map[uint64]int{
	101: 1,
	338: 2,
	381: 3,
	336: 4,
	358: 5,
	375: 6,
	301: 7,
	407: 8,
	424: 9,
}

// Classify returns the digit for an exact signature match.
func Classify(signature uint64) (int, bool) {
	d, ok := signatureDigits[signature]
	return d, ok
}

// KnownSignatures returns a copy of the signature table.
func KnownSignatures() map[uint64]int {
	out := make(map[uint64]int, len(signatureDigits))
	for s, d := range signatureDigits {
		out[s] = d
	}
	return out
}
