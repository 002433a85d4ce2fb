package impression

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusRequested, StatusImpression, true},
		{StatusRequested, StatusCompleted, false},
		{StatusRequested, StatusClicked, false},
		{StatusRequested, StatusRequested, false},
		{StatusImpression, StatusCompleted, true},
		{StatusImpression, StatusClicked, true},
		{StatusImpression, StatusRequested, false},
		{StatusImpression, StatusImpression, false},
		{StatusCompleted, StatusClicked, true},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusRequested, false},
		{StatusCompleted, StatusImpression, false},
		{StatusClicked, StatusCompleted, true},
		{StatusClicked, StatusClicked, true},
		{StatusClicked, StatusImpression, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%s, %s)=%v want=%v", c.from, c.to, got, c.want)
		}
	}
}

func TestValid(t *testing.T) {
	for _, s := range []Status{StatusRequested, StatusImpression, StatusCompleted, StatusClicked} {
		if !Valid(s) {
			t.Fatalf("Valid(%s)=false", s)
		}
	}
	if Valid("billed") {
		t.Fatalf("Valid(billed)=true")
	}
}
