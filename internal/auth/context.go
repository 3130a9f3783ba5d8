package auth

import "context"

type contextKey struct{}

// Voter is the verified identity attached to a request.
type Voter struct {
	Phone    string
	VoterKey string
}

func WithVoter(ctx context.Context, v Voter) context.Context {
	return context.WithValue(ctx, contextKey{}, v)
}

func FromContext(ctx context.Context) (Voter, bool) {
	v, ok := ctx.Value(contextKey{}).(Voter)
	return v, ok
}

func VoterKeyFrom(ctx context.Context) string {
	v, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return v.VoterKey
}
