package engine

import (
	"strings"
	"testing"
)

func TestFlooredTenths(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{9.9999, "9.9"},
		{9.999999999999998, "9.9"},
		{10, "10.0"},
		{18.66025, "18.6"},
		{0, "0.0"},
		{20, "20.0"},
	}
	for _, tt := range tests {
		if got := flooredTenths(tt.in); got != tt.want {
			t.Errorf("flooredTenths(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPieIconFullCircle(t *testing.T) {
	icon := PieIcon("#004d61", 1, 0)
	want := `d="M 10 10 L 10.0 20.0 A 10 10 0 1 0 9.9 20.0 L 10 10 Z"`
	if !strings.Contains(icon.HTML, want) {
		t.Errorf("Expected path %s in %s", want, icon.HTML)
	}
	if !strings.Contains(icon.HTML, `data-nbro-overlaps="1" data-overlap-nbr="0"`) {
		t.Errorf("Expected slice attributes in %s", icon.HTML)
	}
	if !strings.Contains(icon.HTML, `fill="#004d61"`) {
		t.Errorf("Expected fill color in %s", icon.HTML)
	}
	if icon.Size != [2]int{20, 20} || icon.Anchor != [2]int{10, 10} {
		t.Errorf("Unexpected icon geometry size=%v anchor=%v", icon.Size, icon.Anchor)
	}
}

func TestPieIconHalves(t *testing.T) {
	tests := []struct {
		slice int
		want  string
	}{
		{0, "M 10 10 L 10.0 20.0 A 10 10 0 1 0 10.0 0.0 L 10 10 Z"},
		{1, "M 10 10 L 10.0 0.0 A 10 10 0 1 0 9.9 20.0 L 10 10 Z"},
	}
	for _, tt := range tests {
		if got := slicePath(2, tt.slice); got != tt.want {
			t.Errorf("slicePath(2, %d) = %q, want %q", tt.slice, got, tt.want)
		}
	}
}

func TestPieIconQuarter(t *testing.T) {
	got := slicePath(4, 1)
	want := "M 10 10 L 20.0 10.0 A 10 10 0 1 0 10.0 0.0 L 10 10 Z"
	if got != want {
		t.Errorf("slicePath(4, 1) = %q, want %q", got, want)
	}
}
