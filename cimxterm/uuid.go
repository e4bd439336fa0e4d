package cimxterm

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	dashedUUID   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	undashedUUID = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
)

// UUIDNormalization is the outcome of NormalizeCIMUUID.
type UUIDNormalization struct {
	// IRI is the urn:uuid:<...> IRI string when Matched is true.
	IRI string
	// Matched reports whether raw was recognized as one of the two UUID
	// lexical forms spec.md §4.I defines.
	Matched bool
	// UpperCase reports whether raw contained upper-case hex digits that
	// were lower-cased (a warning case per spec.md §4.I/§7).
	UpperCase bool
	// DashesInserted reports whether raw was the 32-character undashed
	// form and dashes were inserted (a warning case per spec.md §4.I/§7).
	DashesInserted bool
}

// NormalizeCIMUUID implements the CIMXML UUID normalization algorithm of
// spec.md §4.I. raw is the value of rdf:about/rdf:ID/rdf:resource after
// stripping any leading "#" and the leading "_" (or "#_") prefix the
// caller is responsible for removing before calling this function.
//
// A 36-character dashed UUID or a 32-character undashed UUID both
// normalize to "urn:uuid:<lower-case, dashed>"; anything else is
// reported as unmatched so the caller falls back to ordinary relative-IRI
// resolution.
func NormalizeCIMUUID(raw string) UUIDNormalization {
	switch {
	case len(raw) == 36 && dashedUUID.MatchString(raw):
		lower := strings.ToLower(raw)
		return UUIDNormalization{
			IRI:       "urn:uuid:" + lower,
			Matched:   true,
			UpperCase: lower != raw,
		}
	case len(raw) == 32 && undashedUUID.MatchString(raw):
		lower := strings.ToLower(raw)
		dashed := lower[0:8] + "-" + lower[8:12] + "-" + lower[12:16] + "-" + lower[16:20] + "-" + lower[20:32]
		return UUIDNormalization{
			IRI:            "urn:uuid:" + dashed,
			Matched:        true,
			UpperCase:      lower != raw,
			DashesInserted: true,
		}
	default:
		return UUIDNormalization{}
	}
}

// StripCIMIDPrefix removes the leading "#_" or "_" prefix CIMXML puts on
// rdf:ID/rdf:about/rdf:resource UUID references before the value is
// passed to NormalizeCIMUUID.
func StripCIMIDPrefix(raw string) string {
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(raw, "_")
	return raw
}

// ValidUUID reports whether s parses as an RFC 4122 UUID in either
// dashed or undashed form, regardless of case. Nothing else in this
// module calls it; NormalizeCIMUUID matches the two UUID forms with
// regular expressions instead.
func ValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
