package metrics

import "testing"

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"10 lbs", 10},
		{"3 boxes", 3},
		{"  25 kg", 25},
		{"120", 120},
		{"a few boxes", 0},
		{"", 0},
		{"lbs 10", 0},
		{"0 items", 0},
	}
	for _, tt := range tests {
		if got := ParseQuantity(tt.in); got != tt.want {
			t.Errorf("ParseQuantity(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
