package model

import "testing"

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		input string
		want  Verdict
		ok    bool
	}{
		{"craft", VerdictCraft, true},
		{"crap", VerdictCrap, true},
		{"  CRAFT ", VerdictCraft, true},
		{"", "", false},
		{"meh", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseVerdict(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseVerdict(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTotals_AddSub(t *testing.T) {
	var tot Totals
	tot = tot.Add(VerdictCraft).Add(VerdictCraft).Add(VerdictCrap)
	if tot.Craft != 2 || tot.Crap != 1 {
		t.Fatalf("got %+v, want {2 1}", tot)
	}
	tot = tot.Sub(VerdictCrap).Sub(VerdictCrap)
	if tot.Crap != 0 {
		t.Errorf("crap = %d, want 0 (never negative)", tot.Crap)
	}
}

func TestTotals_Percentage(t *testing.T) {
	tests := []struct {
		name string
		tot  Totals
		want float64
	}{
		{"no votes", Totals{}, 0},
		{"all craft", Totals{Craft: 4}, 100},
		{"even split", Totals{Craft: 1, Crap: 1}, 50},
		{"thirds", Totals{Craft: 1, Crap: 2}, 33.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tot.Percentage(); got != tt.want {
				t.Errorf("Percentage() = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}
