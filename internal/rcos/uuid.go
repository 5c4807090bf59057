// Package rcos provides low-level id generation shared by the request
// serializer (command tags) and the connection engine (per-generation
// correlation ids for log lines that span a reconnect).
package rcos

import (
	"strconv"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

// Same alphabet the teacher uses for GenUUID: deliberately avoids characters
// that read awkwardly in log lines next to punctuation.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const LenShortID = 9

var (
	sid  *shortid.Shortid
	rtie uint32
)

func init() {
	sid = shortid.MustNew(4 /*worker*/, uuidABC, 0)
}

// GenUUID returns a short, log-friendly opaque identifier used to tag
// requests and connection generations. Not cryptographically random.
func GenUUID() string {
	uuid := sid.MustGenerate()
	var h, t string
	if !isAlpha(uuid[0]) {
		tie := int(atomic.AddUint32(&rtie, 1))
		h = string(rune('A' + tie%26))
	}
	c := uuid[len(uuid)-1]
	if c == '-' || c == '_' {
		tie := int(atomic.AddUint32(&rtie, 1))
		t = string(rune('a' + tie%26))
	}
	return h + uuid + t
}

// Fingerprint64 returns a 64-bit fingerprint of b, used to key the push
// dedup filter.
func Fingerprint64(b []byte) uint64 {
	return xxhash.Checksum64S(b, 0)
}

// FingerprintHex is Fingerprint64 rendered as a compact hex string.
func FingerprintHex(b []byte) string {
	return strconv.FormatUint(Fingerprint64(b), 16)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
