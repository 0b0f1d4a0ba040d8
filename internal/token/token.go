// Package token implements the packed 64-bit string type used throughout the
// map and definition formats.
//
// A token holds up to 12 characters from a 38-symbol alphabet. The i-th
// character contributes index(c)*38^i, so the first character is the least
// significant base-38 digit. That ordering is part of the on-disk format.
package token

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/scsmap/internal/maperr"
)

// MaxLength is the maximum number of characters a token can hold.
const MaxLength = 12

// alphabet maps digit values to characters.
const alphabet = "\x000123456789abcdefghijklmnopqrstuvwxyz_"

const base = uint64(len(alphabet))

// maxValue is 38^12; every encodable token is strictly below it.
var maxValue = pow(MaxLength)

// Token is an encoded token value.
type Token uint64

// Encode packs s into a token value. Upper-case letters are folded to lower
// case before encoding.
//
// Postcondition: Encode("") == 0; returns a RangeError if s is longer than
// MaxLength or contains a character outside the alphabet.
func Encode(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) > MaxLength {
		return 0, &maperr.RangeError{Field: "token", Value: s, Limit: fmt.Sprintf("at most %d characters", MaxLength)}
	}
	s = strings.ToLower(s)
	var v uint64
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(alphabet, s[i])
		if d < 0 {
			return 0, &maperr.RangeError{Field: "token", Value: s, Limit: fmt.Sprintf("invalid character %q", s[i])}
		}
		v += uint64(d) * pow(i)
	}
	return v, nil
}

// Decode unpacks a token value into its string.
//
// Postcondition: Decode(0) == ""; returns a RangeError if v >= 38^12.
func Decode(v uint64) (string, error) {
	if v == 0 {
		return "", nil
	}
	if v >= maxValue {
		return "", &maperr.RangeError{Field: "token", Value: v, Limit: "below 38^12"}
	}

	length := 1
	for pow(length) <= v {
		length++
	}

	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		p := pow(i)
		d := v / p
		out[i] = alphabet[d]
		v -= d * p
	}
	return string(out), nil
}

// IsValid reports whether s can be encoded without error.
func IsValid(s string) bool {
	if len(s) > MaxLength {
		return false
	}
	s = strings.ToLower(s)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// Parse returns the token for s.
func Parse(s string) (Token, error) {
	v, err := Encode(s)
	if err != nil {
		return 0, err
	}
	return Token(v), nil
}

// MustParse parses s and panics on error. Useful for package-level constants.
//
// Precondition: s must be a valid token string.
func MustParse(s string) Token {
	t, err := Parse(s)
	if err != nil {
		panic("token: MustParse failed for " + s + ": " + err.Error())
	}
	return t
}

// String returns the decoded token, or a hex rendering for values that are
// not valid tokens.
func (t Token) String() string {
	s, err := Decode(uint64(t))
	if err != nil {
		return fmt.Sprintf("0x%016x", uint64(t))
	}
	return s
}

// IsEmpty reports whether t is the empty token.
func (t Token) IsEmpty() bool { return t == 0 }

// pow returns 38^n.
func pow(n int) uint64 {
	r := uint64(1)
	for i := 0; i < n; i++ {
		r *= base
	}
	return r
}
