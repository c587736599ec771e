package bank

import (
	"regexp"
	"strconv"
	"strings"
)

// creditMarker is the bank's direction symbol for inbound transfers.
const creditMarker = "+"

// transferMarker is the phrase banks append to person-to-person
// transfer descriptions ("chuyen tien" = money transfer).
const transferMarker = "chuyen tien"

// Confidence tags how a transfer message was recovered. The extraction
// is heuristic and lossy; donor identity is not recoverable from this
// feed and callers always use "Anonymous" for the donor name.
type Confidence string

const (
	ConfidenceMarker    Confidence = "marker"
	ConfidenceHeuristic Confidence = "heuristic"
	ConfidenceRaw       Confidence = "raw"
)

// IsCredit reports whether tx is an inbound transfer: either the
// direction marker says so or a credit amount is present.
func IsCredit(tx RawTransaction) bool {
	if strings.TrimSpace(tx.Direction) == creditMarker {
		return true
	}
	return strings.TrimSpace(tx.CreditAmount) != ""
}

// ParseAmount strips every non-digit rune and parses the rest as an
// integer in the smallest currency unit. Malformed or empty input
// yields zero; callers reject non-positive amounts.
func ParseAmount(raw string) int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}

// upperNameRun matches a contiguous run of 3+ uppercase letters,
// diacritics included, as a crude stand-in for a sender name.
var upperNameRun = regexp.MustCompile(`\p{Lu}{3,}`)

// ExtractTransferMessage pulls a best-effort transfer message out of a
// dot-delimited bank description. Preference order: the segment carrying
// the transfer marker (text up to and including it), then an uppercase
// name-like run in the second segment, then the raw description.
func ExtractTransferMessage(description string) (string, Confidence) {
	segments := strings.Split(description, ".")

	for _, segment := range segments {
		lower := strings.ToLower(segment)
		idx := strings.Index(lower, transferMarker)
		if idx < 0 {
			continue
		}
		return strings.TrimSpace(segment[:idx+len(transferMarker)]), ConfidenceMarker
	}

	if len(segments) >= 2 {
		if match := upperNameRun.FindString(segments[1]); match != "" {
			return match, ConfidenceHeuristic
		}
	}

	return description, ConfidenceRaw
}
