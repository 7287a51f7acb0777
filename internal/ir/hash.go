package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainMatchSet = "rematch/match-set/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MatchSetDigest returns a digest of the (from, to, type, score) tuples of
// matches, independent of their order, ids, task and creation time.
//
// Two runs that found the same pairs with the same scores have the same
// digest, which is how re-runs over unchanged vectors are compared.
func MatchSetDigest(matches []Match) string {
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("%d\x1f%d\x1f%s\x1f%s",
			m.FromInstanceID, m.ToInstanceID, m.Type,
			strconv.FormatFloat(m.Score, 'g', -1, 64))
	}
	sort.Strings(lines)

	var buf []byte
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	return hashWithDomain(DomainMatchSet, buf)
}
