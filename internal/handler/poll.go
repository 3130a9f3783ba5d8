package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/reunion50/reunion/internal/auth"
	"github.com/reunion50/reunion/internal/otp"
	"github.com/reunion50/reunion/internal/poll"
	"github.com/reunion50/reunion/internal/store"
)

type PollHandler struct {
	votes  *store.VoteStore
	users  *store.UserStore
	tokens *auth.TokenCodec
	gate   otp.Authorizer
	now    func() time.Time
	logger *slog.Logger
}

func NewPollHandler(votes *store.VoteStore, users *store.UserStore, tokens *auth.TokenCodec, gate otp.Authorizer, logger *slog.Logger) *PollHandler {
	return &PollHandler{
		votes:  votes,
		users:  users,
		tokens: tokens,
		gate:   gate,
		now:    time.Now,
		logger: logger,
	}
}

type tally struct {
	OK        bool        `json:"ok"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Votes     poll.Counts `json:"votes"`
	DateVotes poll.Counts `json:"dateVotes"`
}

func (h *PollHandler) tally(ctx context.Context) (tally, error) {
	venue, err := h.votes.MergedCounts(ctx, poll.KindVenue)
	if err != nil {
		return tally{}, err
	}
	date, err := h.votes.MergedCounts(ctx, poll.KindDate)
	if err != nil {
		return tally{}, err
	}
	return tally{
		OK:        true,
		UpdatedAt: h.now().UTC(),
		Votes:     venue,
		DateVotes: date,
	}, nil
}

type resultsResponse struct {
	tally
	HasVotedVenue bool     `json:"hasVotedVenue"`
	HasVotedDate  bool     `json:"hasVotedDate"`
	VotedVenue    []string `json:"votedVenue"`
	VotedDate     *string  `json:"votedDate"`
	UserName      *string  `json:"userName"`
	ForceLogout   bool     `json:"forceLogout"`
}

// Results handles GET /api/results. The caller's own votes are included when
// the request carries a valid token.
func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := h.tally(ctx)
	if err != nil {
		respondErr(w, h.logger, "tally votes", err)
		return
	}
	resp := resultsResponse{tally: t, VotedVenue: []string{}}

	voter, ok := auth.FromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if !h.gate.Allowed(voter.Phone) {
		resp.ForceLogout = true
		writeJSON(w, http.StatusOK, resp)
		return
	}

	u, err := h.users.Get(ctx, voter.VoterKey)
	if err != nil {
		respondErr(w, h.logger, "load voter", err)
		return
	}
	if u != nil && u.Name != "" {
		resp.UserName = &u.Name
	}

	venue, err := h.votes.VenueSelections(ctx, voter.VoterKey)
	if err != nil {
		respondErr(w, h.logger, "load venue selections", err)
		return
	}
	if len(venue) > 0 {
		resp.HasVotedVenue = true
		resp.VotedVenue = venue
	}

	date, err := h.votes.DateVoteFor(ctx, voter.VoterKey)
	if err != nil {
		respondErr(w, h.logger, "load date vote", err)
		return
	}
	if date != nil {
		resp.HasVotedDate = true
		resp.VotedDate = &date.Option
	}

	writeJSON(w, http.StatusOK, resp)
}

type voteRequest struct {
	Kind       string `json:"kind"`
	Option     string `json:"option"`
	PhoneToken string `json:"phoneToken"`
	OtherText  string `json:"otherText"`
}

type voteResponse struct {
	tally
	Kind     poll.Kind `json:"kind"`
	Selected *bool     `json:"selected,omitempty"`
}

func invalidOptionMsg(k poll.Kind) string {
	if k == poll.KindDate {
		return msgInvalidDate
	}
	return msgInvalidVenue
}

// Vote handles POST /api/vote. Venue votes toggle the option; date votes
// replace the previous choice.
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	kind := poll.ParseKind(req.Kind)
	if !poll.ValidOption(kind, req.Option) {
		writeError(w, http.StatusBadRequest, invalidOptionMsg(kind))
		return
	}

	sess, err := h.tokens.Verify(req.PhoneToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgNeedsLogin)
		return
	}
	if !h.gate.Allowed(sess.Phone) {
		writeError(w, http.StatusForbidden, msgNotAllowed)
		return
	}

	ctx := r.Context()
	voterKey := auth.VoterKey(sess.Phone)
	var selected *bool

	switch kind {
	case poll.KindVenue:
		on, err := h.votes.ToggleVenueVote(ctx, voterKey, req.Option)
		if err != nil {
			respondErr(w, h.logger, "toggle venue vote", err)
			return
		}
		selected = &on
	case poll.KindDate:
		if err := h.votes.RecordDateVote(ctx, voterKey, req.Option, req.OtherText); err != nil {
			respondErr(w, h.logger, "record date vote", err)
			return
		}
	}

	t, err := h.tally(ctx)
	if err != nil {
		respondErr(w, h.logger, "tally votes", err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{tally: t, Kind: kind, Selected: selected})
}

type votersResponse struct {
	OK     bool      `json:"ok"`
	Kind   poll.Kind `json:"kind"`
	Option string    `json:"option"`
	Names  []string  `json:"names"`
}

// Voters handles GET /api/voters?kind=&option=
func (h *PollHandler) Voters(w http.ResponseWriter, r *http.Request) {
	kind := poll.ParseKind(r.URL.Query().Get("kind"))
	option := r.URL.Query().Get("option")
	if !poll.ValidOption(kind, option) {
		writeError(w, http.StatusBadRequest, invalidOptionMsg(kind))
		return
	}

	names, err := h.votes.VotersForOption(r.Context(), kind, option)
	if err != nil {
		respondErr(w, h.logger, "list voters", err)
		return
	}
	writeJSON(w, http.StatusOK, votersResponse{OK: true, Kind: kind, Option: option, Names: names})
}
