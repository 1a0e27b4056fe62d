// Package session generates and validates opaque print-session identifiers.
//
// Identifiers encode the creation timestamp with second granularity plus
// 32 bits of cryptographic randomness:
//
//	sess_20250131_142530_A1B2C3D4
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var idPattern = regexp.MustCompile(`^sess_\d{8}_\d{6}_[A-F0-9]{8}$`)

// Generate returns a new session identifier.
func Generate() string {
	now := time.Now()

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// the clock so an identifier is still produced.
		return fmt.Sprintf("sess_%s_%s_%08X",
			now.Format("20060102"), now.Format("150405"), now.UnixNano()&0xFFFFFFFF)
	}

	return fmt.Sprintf("sess_%s_%s_%s",
		now.Format("20060102"),
		now.Format("150405"),
		strings.ToUpper(hex.EncodeToString(buf)),
	)
}

// IsValid reports whether id matches the session identifier format.
func IsValid(id string) bool {
	return idPattern.MatchString(id)
}

// ExtractCreationDate decodes the timestamp embedded in a session
// identifier. The second return value is false for malformed input or
// an embedded timestamp that is not a real calendar time.
func ExtractCreationDate(id string) (time.Time, bool) {
	if !IsValid(id) {
		return time.Time{}, false
	}

	parts := strings.Split(id, "_")
	t, err := time.ParseInLocation("20060102150405", parts[1]+parts[2], time.Local)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
