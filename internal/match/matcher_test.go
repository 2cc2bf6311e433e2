package match

import "testing"

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 100},
		{"maquina", "maquina", 100},
		{"maquina", "", 0},
		{"", "maquina", 0},
		{"abcd", "wxyz", 0},
		// one edit over 7 runes -> 6*100/7 = 85
		{"maquina", "maquinas", 87}, // one insert over 8 runes -> 7*100/8
		{"figura", "figuras", 85},   // 6*100/7
	}

	for _, tc := range cases {
		if got := Ratio(tc.a, tc.b); got != tc.want {
			t.Fatalf("Ratio(%q, %q) = %d; want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"maquina", "maquinilla"},
		{"esto antes era todo campo", "esto antes era campo"},
		{"fiera", "figura"},
	}
	for _, p := range pairs {
		if Ratio(p[0], p[1]) != Ratio(p[1], p[0]) {
			t.Fatalf("Ratio not symmetric for %q / %q", p[0], p[1])
		}
	}
}

func TestBestEmpty(t *testing.T) {
	if _, _, ok := Best("maquina", nil); ok {
		t.Fatalf("Best over no candidates reported ok")
	}
}

func TestBestPicksHighestRatio(t *testing.T) {
	cands := []Candidate{
		{ID: 1, Text: "esto antes era todo campo"},
		{ID: 2, Text: "maquina"},
		{ID: 3, Text: "maquinas"},
	}
	best, ratio, ok := Best("maquina", cands)
	if !ok {
		t.Fatalf("expected a best candidate")
	}
	if best.ID != 2 || ratio != 100 {
		t.Fatalf("Best = id %d ratio %d; want id 2 ratio 100", best.ID, ratio)
	}
}

func TestBestTieBreaks(t *testing.T) {
	// Identical texts tie on ratio; the higher score wins.
	cands := []Candidate{
		{ID: 1, Text: "fiera", Score: 2},
		{ID: 2, Text: "fiera", Score: 9},
	}
	best, _, ok := Best("fiera", cands)
	if !ok || best.ID != 2 {
		t.Fatalf("score tie-break picked id %d; want 2", best.ID)
	}

	// Equal scores fall back to the lower id.
	cands = []Candidate{
		{ID: 7, Text: "fiera", Score: 3},
		{ID: 4, Text: "fiera", Score: 3},
	}
	best, _, ok = Best("fiera", cands)
	if !ok || best.ID != 4 {
		t.Fatalf("id tie-break picked id %d; want 4", best.ID)
	}
}
