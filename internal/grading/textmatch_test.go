package grading

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		submitted, key string
		want           bool
	}{
		{"paris", "Paris", true},
		{"  PARIS ", "Paris", true},
		{"New   York", "new york", true},
		{"42", "42", true},
		{"On", "O(n)", false},
		{"o(N)", "O(n)", true},
		{"", "Paris", false},
		{"Pariss", "Paris", false},
	}
	for _, c := range cases {
		if got := Match(c.submitted, c.key); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.submitted, c.key, got, c.want)
		}
	}
}
