// Package idcodec converts 7TV legacy object ids (24 hex characters) to the
// 26-character sortable ids the current API expects, and back.
package idcodec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	ObjectIDLen = 24
	ULIDLen     = 26
)

// ObjectIDToULID encodes a 96-bit object id. The high 32 bits (Unix seconds)
// become the millisecond time component; the low 64 bits fill the entropy.
func ObjectIDToULID(objectID string) (string, error) {
	if len(objectID) != ObjectIDLen {
		return "", fmt.Errorf("idcodec: object id must be %d hex characters, got %d", ObjectIDLen, len(objectID))
	}
	raw, err := hex.DecodeString(objectID)
	if err != nil {
		return "", fmt.Errorf("idcodec: object id %q: %w", objectID, err)
	}

	seconds := binary.BigEndian.Uint32(raw[:4])

	var id ulid.ULID
	if err := id.SetTime(uint64(seconds) * 1000); err != nil {
		return "", fmt.Errorf("idcodec: set time: %w", err)
	}
	entropy := make([]byte, 10)
	copy(entropy[2:], raw[4:])
	if err := id.SetEntropy(entropy); err != nil {
		return "", fmt.Errorf("idcodec: set entropy: %w", err)
	}
	return id.String(), nil
}

// ULIDToObjectID reverses ObjectIDToULID. Sub-second precision in the time
// component is truncated, matching the seconds resolution of object ids.
func ULIDToObjectID(id string) (string, error) {
	if len(id) != ULIDLen {
		return "", fmt.Errorf("idcodec: ulid must be %d characters, got %d", ULIDLen, len(id))
	}
	parsed, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return "", fmt.Errorf("idcodec: ulid %q: %w", id, err)
	}

	seconds := parsed.Time() / 1000
	if seconds > 0xFFFFFFFF {
		return "", fmt.Errorf("idcodec: ulid %q: timestamp exceeds 32 bits", id)
	}
	entropy := parsed.Entropy()
	if entropy[0] != 0 || entropy[1] != 0 {
		return "", fmt.Errorf("idcodec: ulid %q: randomness exceeds 64 bits", id)
	}

	out := make([]byte, 12)
	binary.BigEndian.PutUint32(out[:4], uint32(seconds))
	copy(out[4:], entropy[2:])
	return hex.EncodeToString(out), nil
}

// IsObjectID reports whether s looks like a 24-character hex object id.
func IsObjectID(s string) bool {
	if len(s) != ObjectIDLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Normalize returns the sortable form of id, converting legacy object ids and
// passing anything else through unchanged. converted reports whether a
// conversion happened.
func Normalize(id string) (out string, converted bool, err error) {
	if len(id) != ObjectIDLen {
		return id, false, nil
	}
	out, err = ObjectIDToULID(id)
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}
