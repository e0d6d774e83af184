package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubLookup struct {
	names map[string]string
	err   error
	calls []string
}

func (s *stubLookup) LookupLocalityName(_ context.Context, id string) (string, error) {
	s.calls = append(s.calls, id)
	if s.err != nil {
		return "", s.err
	}
	name, ok := s.names[id]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func TestResolveLocality(t *testing.T) {
	lookup := &stubLookup{names: map[string]string{"12": "Irisan", "13": "  "}}

	tests := []struct {
		name    string
		profile ProfileLocality
		want    string
		outcome ResolutionOutcome
	}{
		{"null", ProfileLocality{}, "", OutcomeUnset},
		{"empty", ProfileLocality{Value: "", Valid: true}, "", OutcomeUnset},
		{"whitespace", ProfileLocality{Value: "   ", Valid: true}, "", OutcomeUnset},
		{"not set literal", ProfileLocality{Value: "Not set", Valid: true}, "", OutcomeUnset},
		{"not set any case", ProfileLocality{Value: "NOT SET", Valid: true}, "", OutcomeUnset},
		{"display name", ProfileLocality{Value: " Aurora Hill ", Valid: true}, "Aurora Hill", OutcomeVerbatim},
		{"alphanumeric name", ProfileLocality{Value: "Camp 7", Valid: true}, "Camp 7", OutcomeVerbatim},
		{"numeric id", ProfileLocality{Value: "12", Valid: true}, "Irisan", OutcomeResolved},
		{"integral float id", ProfileLocality{Value: "12.0", Valid: true}, "Irisan", OutcomeResolved},
		{"unknown id", ProfileLocality{Value: "99", Valid: true}, "", OutcomeNotFound},
		{"blank name", ProfileLocality{Value: "13", Valid: true}, "", OutcomeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveLocality(context.Background(), tt.profile, lookup, discardLogger())
			assert.Equal(t, tt.want, got.Name())
			assert.Equal(t, tt.want != "", got.IsSet())
			assert.Equal(t, tt.outcome, got.Outcome)
		})
	}
}

func TestResolveLocality_LookupFailureFailsOpen(t *testing.T) {
	lookup := &stubLookup{err: errors.New("connection refused")}

	got := ResolveLocality(context.Background(), ProfileLocality{Value: "7", Valid: true}, lookup, discardLogger())

	assert.False(t, got.IsSet())
	assert.Equal(t, "7", got.Raw)
	assert.Equal(t, OutcomeLookupFailed, got.Outcome)
	assert.True(t, got.Failed())
	assert.Equal(t, []string{"7"}, lookup.calls)
}

func TestLocalityContext_Failed(t *testing.T) {
	tests := map[ResolutionOutcome]bool{
		OutcomeResolved:      false,
		OutcomeVerbatim:      false,
		OutcomeUnset:         false,
		OutcomeNotFound:      false,
		OutcomeGuest:         false,
		OutcomeLookupFailed:  true,
		OutcomeProfileFailed: true,
	}
	for outcome, want := range tests {
		assert.Equal(t, want, LocalityContext{Outcome: outcome}.Failed(), string(outcome))
	}
}

func TestResolveLocality_NilLookup(t *testing.T) {
	got := ResolveLocality(context.Background(), ProfileLocality{Value: "7", Valid: true}, nil, discardLogger())

	assert.False(t, got.IsSet())
	assert.Equal(t, OutcomeLookupFailed, got.Outcome)
}

func TestResolveLocality_NamesSkipLookup(t *testing.T) {
	lookup := &stubLookup{}

	ResolveLocality(context.Background(), ProfileLocality{Value: "Riverside", Valid: true}, lookup, discardLogger())
	ResolveLocality(context.Background(), ProfileLocality{Value: "NaN", Valid: true}, lookup, discardLogger())

	assert.Empty(t, lookup.calls)
}

func TestLocalityID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		numeric bool
	}{
		{"12", "12", true},
		{"12.0", "12", true},
		{"1e2", "100", true},
		{"12.5", "12.5", true},
		{"-3", "-3", true},
		{"12a", "", false},
		{"Inf", "", false},
		{"Irisan", "", false},
	}
	for _, tt := range tests {
		got, ok := localityID(tt.in)
		assert.Equal(t, tt.numeric, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
