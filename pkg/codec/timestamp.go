package codec

import "time"

// epochA is 1904-01-01 UTC, the classic Mac/Palm OS epoch.
var epochA = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

// epochB is the Unix epoch, 1970-01-01 UTC.
var epochB = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// DecodeTimestamp interprets a 32-bit PDB/PRC timestamp field:
// if the top bit is set or the value is zero, it is an unsigned seconds
// count from epochA; otherwise it is a signed seconds count from epochB.
// Zero decodes to the canonical epochA instant.
func DecodeTimestamp(v uint32) time.Time {
	if v&0x80000000 != 0 || v == 0 {
		return epochA.Add(time.Duration(v) * time.Second)
	}
	return epochB.Add(time.Duration(int32(v)) * time.Second)
}

// EncodeTimestampEpochA encodes t as an unsigned seconds count from
// epochA. The producer may choose this convention freely;
// it is the default because it round-trips values at or after ~1972,
// unlike the signed epochB form, which cannot represent dates in 2038+.
// Callers relying on the decoder picking the epochA branch must ensure
// the resulting count is either zero or has bit 31 set (true for any
// instant from 1972 onward).
func EncodeTimestampEpochA(t time.Time) uint32 {
	secs := int64(t.Sub(epochA).Seconds())
	if secs < 0 {
		secs = 0
	}
	return uint32(secs)
}

// EncodeTimestampEpochB encodes t as a signed seconds count from epochB.
// Only valid for instants representable in a signed 32-bit range
// (roughly 1901-2038); callers needing wider range should prefer
// EncodeTimestampEpochA.
func EncodeTimestampEpochB(t time.Time) uint32 {
	secs := int64(t.Sub(epochB).Seconds())
	return uint32(int32(secs))
}
