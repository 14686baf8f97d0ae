package colormap

import (
	"errors"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#3182bd", Color{0x31, 0x82, 0xbd}},
		{"#DEEBF7", Color{0xde, 0xeb, 0xf7}},
		{"#fff", Color{255, 255, 255}},
		{"rgb(49,130,189)", Color{49, 130, 189}},
		{"rgb( 0, 12 , 255 )", Color{0, 12, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if err != nil {
				t.Fatalf("ParseColor: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseColorInvalid(t *testing.T) {
	for _, in := range []string{"", "blue", "#12345", "rgb(1,2)", "rgb(1,2,300)", "rgb(a,b,c)"} {
		if _, err := ParseColor(in); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("ParseColor(%q) error = %v, want ErrInvalidColor", in, err)
		}
	}
}

func TestColorTextRoundTrip(t *testing.T) {
	c := Color{R: 179, G: 209, B: 233}
	if c.Hex() != "#b3d1e9" {
		t.Errorf("Hex = %s", c.Hex())
	}
	if c.String() != "rgb(179, 209, 233)" {
		t.Errorf("String = %s", c.String())
	}
	for _, text := range []string{c.Hex(), c.String()} {
		parsed, err := ParseColor(text)
		if err != nil || parsed != c {
			t.Errorf("ParseColor(%q) = %v, %v", text, parsed, err)
		}
	}
}

func TestLerpRounds(t *testing.T) {
	a := Color{0, 0, 0}
	b := Color{255, 1, 3}
	if got := Lerp(a, b, 0.5); got != (Color{128, 1, 2}) {
		t.Errorf("Lerp midpoint = %v", got)
	}
	if got := Lerp(a, b, 0); got != a {
		t.Errorf("Lerp(0) = %v", got)
	}
	if got := Lerp(a, b, 1); got != b {
		t.Errorf("Lerp(1) = %v", got)
	}
}
