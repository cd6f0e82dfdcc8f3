// Package cachekey derives stable cache keys from synthesis parameters.
//
// The key is a hex-encoded SHA-256 digest over the length-prefixed fields of
// the tuple (text, voice, rate, pitch). Length prefixes make the encoding
// unambiguous: naive concatenation would alias distinct tuples whose field
// boundaries shift (voice "AB" + rate "" versus voice "A" + rate "B").
package cachekey

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/book-expert/tts-gateway/internal/core"
)

// KeyLength is the length of a derived key in hex characters.
const KeyLength = sha256.Size * 2

// Derive computes the cache key for the given synthesis parameters. The
// output is deterministic, fixed-length, lowercase hex, and safe to use as a
// filename. Distinct tuples produce distinct keys with overwhelming
// probability.
func Derive(params core.SynthesisParams) string {
	digest := sha256.New()

	for _, field := range []string{params.Text, params.Voice, params.Rate, params.Pitch} {
		var length [8]byte

		binary.BigEndian.PutUint64(length[:], uint64(len(field)))
		digest.Write(length[:])
		digest.Write([]byte(field))
	}

	return hex.EncodeToString(digest.Sum(nil))
}
