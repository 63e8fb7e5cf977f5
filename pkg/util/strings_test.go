package util

import "testing"

func TestParseIntDefault(t *testing.T) {
	tests := []struct {
		in   string
		def  int
		want int
	}{
		{"", 7, 7},
		{"42", 7, 42},
		{"-3", 7, -3},
		{"abc", 7, 7},
		{"4.2", 7, 7},
	}
	for _, tt := range tests {
		if got := ParseIntDefault(tt.in, tt.def); got != tt.want {
			t.Errorf("ParseIntDefault(%q, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}
