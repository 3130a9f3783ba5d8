// Package legacy imports the aggregate votes file kept by the first version
// of the poll.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	"github.com/reunion50/reunion/internal/poll"
	"github.com/reunion50/reunion/internal/store"
)

type Choice struct {
	Option    string `json:"option"`
	OtherText string `json:"otherText"`
}

type VoterRecord struct {
	Venue *Choice `json:"venue"`
	Date  *Choice `json:"date"`
}

// File is the votes.json document. VotedPhones is keyed by the hex sha256 of
// the phone, the same value as auth.VoterKey.
type File struct {
	Votes       map[string]int         `json:"votes"`
	DateVotes   map[string]int         `json:"dateVotes"`
	VotedPhones map[string]VoterRecord `json:"votedPhones"`
}

func Parse(r io.Reader) (File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse votes file: %w", err)
	}
	return f, nil
}

type Result struct {
	VenueRows int
	DateRows  int
	Skipped   int
}

var voterKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Import writes per-voter rows for every voter in f and stores the remaining
// totals as legacy counts. Totals in the file already include the per-voter
// votes, so those are subtracted to keep merged counts equal to the file's.
// Running it twice gives the same result.
func Import(ctx context.Context, votes *store.VoteStore, f File) (Result, error) {
	var res Result
	venue := validCounts(poll.KindVenue, f.Votes, &res)
	date := validCounts(poll.KindDate, f.DateVotes, &res)

	for key, rec := range f.VotedPhones {
		if !voterKeyPattern.MatchString(key) {
			res.Skipped++
			continue
		}

		if c := rec.Venue; c != nil && c.Option != "" && c.Option != "unknown" {
			if !poll.ValidOption(poll.KindVenue, c.Option) {
				res.Skipped++
			} else {
				if _, err := votes.ImportVenueVote(ctx, key, c.Option); err != nil {
					return res, fmt.Errorf("import venue vote: %w", err)
				}
				decrement(venue, c.Option)
				res.VenueRows++
			}
		}

		if c := rec.Date; c != nil && c.Option != "" {
			if !poll.ValidOption(poll.KindDate, c.Option) {
				res.Skipped++
			} else {
				if err := votes.RecordDateVote(ctx, key, c.Option, c.OtherText); err != nil {
					return res, fmt.Errorf("import date vote: %w", err)
				}
				decrement(date, c.Option)
				res.DateRows++
			}
		}
	}

	if err := votes.SetLegacyCounts(ctx, poll.KindVenue, venue); err != nil {
		return res, err
	}
	if err := votes.SetLegacyCounts(ctx, poll.KindDate, date); err != nil {
		return res, err
	}
	return res, nil
}

func validCounts(k poll.Kind, in map[string]int, res *Result) poll.Counts {
	out := poll.Counts{}
	for opt, n := range in {
		if !poll.ValidOption(k, opt) || n < 0 {
			res.Skipped++
			continue
		}
		out[opt] = n
	}
	return out
}

func decrement(c poll.Counts, opt string) {
	if c[opt] > 0 {
		c[opt]--
	}
}
