// Package poll defines the two fixed polls and their allowed options.
package poll

import (
	"strings"
	"unicode/utf8"
)

type Kind string

const (
	KindVenue Kind = "venue"
	KindDate  Kind = "date"
)

// OtherOption is the date option that accepts free text.
const OtherOption = "other"

// MaxOtherTextLen caps the free text kept for the "other" date option, in runes.
const MaxOtherTextLen = 40

var (
	venueOptions = []string{"kadavu", "vythiri", "bolgatty"}
	dateOptions  = []string{"july18_19", "aug8_9", OtherOption}
)

// ParseKind maps request input to a poll kind. Anything but "date" is the
// venue poll.
func ParseKind(s string) Kind {
	if s == string(KindDate) {
		return KindDate
	}
	return KindVenue
}

// Options returns the allowed options for k in display order.
func Options(k Kind) []string {
	switch k {
	case KindDate:
		return append([]string(nil), dateOptions...)
	case KindVenue:
		return append([]string(nil), venueOptions...)
	}
	return nil
}

func ValidOption(k Kind, option string) bool {
	for _, o := range Options(k) {
		if o == option {
			return true
		}
	}
	return false
}

// CleanOtherText returns the trimmed, length-capped free text for the
// "other" date option, and "" for any other option.
func CleanOtherText(option, text string) string {
	if option != OtherOption {
		return ""
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= MaxOtherTextLen {
		return text
	}
	r := []rune(text)
	return string(r[:MaxOtherTextLen])
}

// Counts maps option to number of votes.
type Counts map[string]int

// Merge sums legacy and live counts per option. Options present on only one
// side are kept with the other side treated as zero.
func Merge(legacy, live Counts) Counts {
	out := make(Counts, len(legacy)+len(live))
	for opt, n := range legacy {
		out[opt] += n
	}
	for opt, n := range live {
		out[opt] += n
	}
	return out
}
