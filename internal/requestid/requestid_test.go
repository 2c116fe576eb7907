package requestid_test

import (
	"context"
	"strings"
	"testing"

	"github.com/p3tuh/notello/internal/requestid"
)

func TestAccept(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{requestid.New(), true},
		{"abc-123_x.y", true},
		{"", false},
		{"has space", false},
		{"line\nbreak", false},
		{"ünicode", false},
		{strings.Repeat("a", 129), false},
	}
	for _, tc := range cases {
		if got := requestid.Accept(tc.id); got != tc.want {
			t.Errorf("Accept(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := requestid.WithRequestID(context.Background(), "req-1")
	if got := requestid.FromContext(ctx); got != "req-1" {
		t.Errorf("FromContext = %q", got)
	}
	if got := requestid.FromContext(context.Background()); got != "" {
		t.Errorf("FromContext(empty) = %q", got)
	}
}
