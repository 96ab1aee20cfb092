package notes

import (
	"encoding/json"
	"testing"
)

func TestFrequencies(t *testing.T) {
	want := map[Symbol]float64{
		LowG: 414, LowA: 466, B: 524, C: 583, D: 629,
		E: 699, F: 777, HighG: 839, HighA: 932,
	}
	for s, hz := range want {
		if got := Frequency(s); got != hz {
			t.Errorf("Frequency(%v) = %v, want %v", s, got, hz)
		}
	}
}

func TestCatalogIsAscending(t *testing.T) {
	for i := 1; i < len(All); i++ {
		if Frequency(All[i]) <= Frequency(All[i-1]) {
			t.Fatalf("%v is not above %v", All[i], All[i-1])
		}
	}
}

func TestLetterRoundTrip(t *testing.T) {
	seen := map[byte]bool{}
	for _, s := range All {
		c := Letter(s)
		if seen[c] {
			t.Fatalf("letter %q used twice", c)
		}
		seen[c] = true
		got, ok := FromLetter(c)
		if !ok || got != s {
			t.Errorf("FromLetter(%q) = %v, %v; want %v", c, got, ok, s)
		}
	}
	if _, ok := FromLetter('z'); ok {
		t.Error("FromLetter('z') should fail")
	}
}

func TestFromKeyIgnoresCase(t *testing.T) {
	tests := []struct {
		key  string
		want Symbol
		ok   bool
	}{
		{"a", LowG, true},
		{"A", LowG, true},
		{"L", HighA, true},
		{"g", D, true},
		{"q", 0, false},
		{"backspace", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := FromKey(tt.key)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("FromKey(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestShortLabel(t *testing.T) {
	if got := ShortLabel(LowG); got != "Low\nG" {
		t.Errorf("ShortLabel(LowG) = %q", got)
	}
	if got := ShortLabel(HighA); got != "High\nA" {
		t.Errorf("ShortLabel(HighA) = %q", got)
	}
	if got := ShortLabel(D); got != "D" {
		t.Errorf("ShortLabel(D) = %q", got)
	}
}

func TestSequenceJSON(t *testing.T) {
	seq := Sequence{LowG, HighG, HighA, B}
	data, err := json.Marshal(seq)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["G","g","a","B"]` {
		t.Fatalf("marshal = %s", data)
	}
	var back Sequence
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(seq) {
		t.Fatalf("got %v, want %v", back, seq)
	}
	if err := json.Unmarshal([]byte(`["G","x"]`), &back); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSequenceOpsDoNotMutate(t *testing.T) {
	orig := Sequence{LowA, B, C}
	added := orig.Append(D)
	removed := orig.RemoveAt(1)
	if !orig.Equal(Sequence{LowA, B, C}) {
		t.Fatalf("original changed: %v", orig)
	}
	if !added.Equal(Sequence{LowA, B, C, D}) {
		t.Errorf("Append = %v", added)
	}
	if !removed.Equal(Sequence{LowA, C}) {
		t.Errorf("RemoveAt = %v", removed)
	}
	if got := orig.RemoveAt(7); !got.Equal(orig) {
		t.Errorf("RemoveAt out of range = %v", got)
	}
}
