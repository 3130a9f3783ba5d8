package model

import "time"

type User struct {
	VoterKey   string    `json:"-"`
	Name       string    `json:"name"`
	VerifiedAt time.Time `json:"verified_at"`
}

type DateVote struct {
	VoterKey  string    `json:"-"`
	Option    string    `json:"option"`
	OtherText string    `json:"other_text,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
