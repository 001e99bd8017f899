package citation

import "testing"

func TestPrune_RemovesDanglingCitationLine(t *testing.T) {
	in := "Revenue grew 20% [1].\n\n[1] doc:doc-1 p1-2\n[2] doc:doc-2 p3-4"
	want := "Revenue grew 20% [1].\n\n[1] doc:doc-1 p1-2"
	if got := Prune(in); got != want {
		t.Fatalf("Prune() = %q, want %q", got, want)
	}
}

func TestPrune_KeepsAllUsedMarkers(t *testing.T) {
	in := "Revenue grew 20% [1] and costs fell [2].\n\n[1] doc:doc-1 p1-2\n[2] doc:doc-2 p3-4"
	want := in
	if got := Prune(in); got != want {
		t.Fatalf("Prune() = %q, want %q", got, want)
	}
}

func TestPrune_StripsInlineConfidenceFragment(t *testing.T) {
	in := "Revenue grew 20% [1] (confidence: 87.5%).\n\n[1] doc:doc-1 p1-2"
	want := "Revenue grew 20% [1].\n\n[1] doc:doc-1 p1-2"
	if got := Prune(in); got != want {
		t.Fatalf("Prune() = %q, want %q", got, want)
	}
}

func TestPrune_NoCitationsIsNoOp(t *testing.T) {
	in := "I don't know."
	if got := Prune(in); got != in {
		t.Fatalf("Prune() = %q, want %q", got, in)
	}
}

func TestPrune_Idempotent(t *testing.T) {
	in := "Revenue grew 20% [1].\n\n[1] doc:doc-1 p1-2\n[2] doc:doc-2 p3-4"
	once := Prune(in)
	twice := Prune(once)
	if once != twice {
		t.Fatalf("Prune() not idempotent: %q != %q", once, twice)
	}
}

func TestPrune_LeavesProseUnchanged(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain prose, no citations", "This is a plain answer with no markers.", "This is a plain answer with no markers."},
		{"marker used, no trailing line", "See [1] for detail.", "See [1] for detail."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Prune(tt.in); got != tt.want {
				t.Fatalf("Prune(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
