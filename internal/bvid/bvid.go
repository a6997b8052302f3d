package bvid

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxAID is the exclusive upper bound of the numeric identifier domain.
	MaxAID uint64 = 1 << 51

	// Length is the length of every encoded identifier, prefix included.
	Length = 12

	xorCode  uint64 = 23442827791579
	maskCode uint64 = MaxAID - 1
	base     uint64 = 58
	prefix          = "BV1"
	alphabet        = "FcwAPNKTMug3GV5Lj7EJnHpWsx4tb8haYeviqBz6rkCy12mUSDQX9RdoZf"
)

// encodeMap gives the body position (after the prefix) of each base-58
// digit, least significant digit first.
var encodeMap = [...]int{8, 7, 0, 5, 1, 3, 2, 4, 6}

var (
	// ErrOutOfRange reports a numeric identifier outside [0, MaxAID).
	ErrOutOfRange = errors.New("bvid: aid out of range")
	// ErrInvalidID reports a string that is not a well-formed BV identifier.
	ErrInvalidID = errors.New("bvid: invalid identifier")
)

var reverseAlphabet = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		table[alphabet[i]] = int8(i)
	}
	return table
}()

// Encode returns the BV identifier for a legacy numeric identifier.
func Encode(aid uint64) (string, error) {
	if aid >= MaxAID {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, aid)
	}
	body := make([]byte, len(encodeMap))
	tmp := (MaxAID | aid) ^ xorCode
	for _, pos := range encodeMap {
		body[pos] = alphabet[tmp%base]
		tmp /= base
	}
	return prefix + string(body), nil
}

// Decode returns the legacy numeric identifier for a BV identifier. The
// two-letter prefix is matched case-insensitively.
func Decode(id string) (uint64, error) {
	if len(id) != Length {
		return 0, fmt.Errorf("%w: %q has length %d", ErrInvalidID, id, len(id))
	}
	if !strings.EqualFold(id[:2], prefix[:2]) || id[2] != prefix[2] {
		return 0, fmt.Errorf("%w: %q lacks %s prefix", ErrInvalidID, id, prefix)
	}
	body := id[len(prefix):]
	var tmp uint64
	for i := len(encodeMap) - 1; i >= 0; i-- {
		digit := reverseAlphabet[body[encodeMap[i]]]
		if digit < 0 {
			return 0, fmt.Errorf("%w: %q contains %q", ErrInvalidID, id, body[encodeMap[i]])
		}
		tmp = tmp*base + uint64(digit)
	}
	// Bit 51 is always set by Encode; its absence means the digits were not
	// produced by this codec.
	if tmp&MaxAID == 0 || tmp>>52 != 0 {
		return 0, fmt.Errorf("%w: %q is outside the encoded range", ErrInvalidID, id)
	}
	return (tmp & maskCode) ^ xorCode, nil
}
