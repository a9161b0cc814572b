package deals

import (
	"math"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Ah Seng's Café!  ": "ah seng s caf",
		"KOI Thé":             "koi th",
		"Burger-King #01-22":  "burger king 01 22",
		"":                    "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSourcePriorityOrdering(t *testing.T) {
	order := []string{"instagram", "tiktok", "facebook", "telegram", "whatsapp", "youtube", "web"}
	for i := 0; i < len(order)-1; i++ {
		if SourcePriority(order[i]) <= SourcePriority(order[i+1]) {
			t.Fatalf("%s should outrank %s", order[i], order[i+1])
		}
	}
	if SourcePriority("youtube") != SourcePriority("reddit") {
		t.Fatal("youtube and reddit should rank equal")
	}
	if SourcePriority("carrier-pigeon") != SourcePriority("web") {
		t.Fatal("unknown sources should rank with web")
	}
}

func TestDedupeByNameKeepsFirst(t *testing.T) {
	in := []Deal{
		{DealID: "1", BusinessName: "KOI Thé"},
		{DealID: "2", BusinessName: "koi the"},
		{DealID: "3", BusinessName: "Other"},
		{DealID: "4", BusinessName: ""},
	}
	out := DedupeByName(in)
	if len(out) != 2 {
		t.Fatalf("want 2, got %d: %+v", len(out), out)
	}
	if out[0].DealID != "1" || out[1].DealID != "3" {
		t.Fatalf("first occurrence should win: %+v", out)
	}
}

func TestHaversine(t *testing.T) {
	// Marina Bay Sands to Merlion Park, roughly 600-700m apart.
	d := Haversine(1.2834, 103.8607, 1.2868, 103.8545)
	if d < 0.5 || d > 0.9 {
		t.Fatalf("unexpected distance %f km", d)
	}
	if z := Haversine(1.3, 103.8, 1.3, 103.8); math.Abs(z) > 1e-9 {
		t.Fatalf("same point should be 0, got %f", z)
	}
}
