package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRejection(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"stale answer", ErrStaleQuestion, true},
		{"wrapped settings failure", fmt.Errorf("%w: rounds out of range", ErrInvalidSettings), true},
		{"unknown room", ErrRoomNotFound, true},
		{"closed room", ErrRoomClosed, false},
		{"provider outage", fmt.Errorf("%w: timeout", ErrQuestionsUnavailable), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := IsRejection(tc.err); got != tc.want {
			t.Errorf("%s: IsRejection = %v, want %v", tc.name, got, tc.want)
		}
	}
}
