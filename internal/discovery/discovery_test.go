package discovery

import "testing"

func TestContributorPriorityClamped(t *testing.T) {
	cases := []struct {
		contributions int
		want          int
	}{
		{0, 0},
		{1, 1},
		{100, 4},
		{1000000, 12},
	}
	for _, c := range cases {
		got := contributorPriority(c.contributions)
		if got < 0 || got > maxContributorScore {
			t.Errorf("contributorPriority(%d) = %d, out of [0,%d] bound", c.contributions, got, maxContributorScore)
		}
	}
}

func TestContributorPriorityMonotonic(t *testing.T) {
	prev := -1
	for _, n := range []int{0, 1, 5, 20, 100, 1000} {
		got := contributorPriority(n)
		if got < prev {
			t.Errorf("expected priority to be non-decreasing in contributions, got %d after %d for n=%d", got, prev, n)
		}
		prev = got
	}
}

func TestSplitOwnerRepo(t *testing.T) {
	cases := []struct {
		in        string
		wantOwner string
		wantName  string
		wantOK    bool
	}{
		{"golang/go", "golang", "go", true},
		{"noSlash", "", "", false},
		{"/missingowner", "", "", false},
		{"missingname/", "", "", false},
	}
	for _, c := range cases {
		owner, name, ok := splitOwnerRepo(c.in)
		if ok != c.wantOK || owner != c.wantOwner || name != c.wantName {
			t.Errorf("splitOwnerRepo(%q) = (%q, %q, %v), want (%q, %q, %v)", c.in, owner, name, ok, c.wantOwner, c.wantName, c.wantOK)
		}
	}
}
