// Package tune converts note sequences to and from the short letter codes
// used in share links.
//
// A sequence is written one letter per note using the home-row keys that
// enter those notes (a = Low G ... l = High A), so "asdf" is Low G, Low A,
// B, C. The code goes in the "tune" query parameter and the tune's name, if
// any, in "name".
package tune

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pipedream/notes"
)

// Query parameter keys
const (
	TuneKey = "tune"
	NameKey = "name"
)

// ErrMalformedShareCode is returned by DecodeStrict for codes containing
// characters outside the note alphabet
var ErrMalformedShareCode = errors.New("malformed share code")

// Tune is a named sequence
type Tune struct {
	Name  string         `json:"name" yaml:"name"`
	Notes notes.Sequence `json:"tune" yaml:"tune"`
}

// Equal compares name and exact note order
func (t Tune) Equal(o Tune) bool {
	return t.Name == o.Name && t.Notes.Equal(o.Notes)
}

// EncodeNotes writes one letter per note
func EncodeNotes(seq notes.Sequence) string {
	var b strings.Builder
	b.Grow(len(seq))
	for _, s := range seq {
		b.WriteByte(notes.Letter(s))
	}
	return b.String()
}

// DecodeNotes reads a letter code. Characters outside the alphabet are
// dropped; the remaining notes keep their order.
func DecodeNotes(code string) notes.Sequence {
	seq := make(notes.Sequence, 0, len(code))
	for i := 0; i < len(code); i++ {
		if s, ok := notes.FromLetter(code[i]); ok {
			seq = append(seq, s)
		}
	}
	return seq
}

// Encode builds the query fragment for a tune. The tune key is present
// whenever there is something to share, so a name with no notes encodes as
// "name=...&tune=" and decodes back to the same name. An empty sequence
// with no name encodes to "".
func Encode(seq notes.Sequence, name string) string {
	if len(seq) == 0 && name == "" {
		return ""
	}
	q := url.Values{}
	q.Set(TuneKey, EncodeNotes(seq))
	if name != "" {
		q.Set(NameKey, name)
	}
	return q.Encode()
}

// Decode reads a query fragment, a "?"-prefixed query or a full link. A
// missing tune key yields an empty sequence and empty name.
func Decode(fragment string) (notes.Sequence, string) {
	t, _ := Parse(fragment)
	return t.Notes, t.Name
}

// Parse is Decode that also reports whether a tune key was present
func Parse(raw string) (Tune, bool) {
	q := query(raw)
	if !q.Has(TuneKey) {
		return Tune{Notes: notes.Sequence{}}, false
	}
	return Tune{
		Name:  q.Get(NameKey),
		Notes: DecodeNotes(q.Get(TuneKey)),
	}, true
}

// DecodeStrict is the opt-in strict variant of Decode: any character outside
// the note alphabet is an error
func DecodeStrict(raw string) (Tune, error) {
	q := query(raw)
	if !q.Has(TuneKey) {
		return Tune{}, fmt.Errorf("%w: no %s parameter", ErrMalformedShareCode, TuneKey)
	}
	code := q.Get(TuneKey)
	var bad []string
	for i := 0; i < len(code); i++ {
		if _, ok := notes.FromLetter(code[i]); !ok {
			bad = append(bad, fmt.Sprintf("%q at %d", code[i], i))
		}
	}
	if len(bad) > 0 {
		return Tune{}, fmt.Errorf("%w: %s", ErrMalformedShareCode, strings.Join(bad, ", "))
	}
	return Tune{Name: q.Get(NameKey), Notes: DecodeNotes(code)}, nil
}

// ShareURL returns base with its query replaced by the tune's fragment
func ShareURL(base string, seq notes.Sequence, name string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse share base %q: %w", base, err)
	}
	u.RawQuery = Encode(seq, name)
	u.Fragment = ""
	return u.String(), nil
}

// query extracts the query values from a link or a bare fragment. Anything
// unparsable is treated as having no parameters.
func query(raw string) url.Values {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return url.Values{}
		}
		raw = u.RawQuery
	}
	raw = strings.TrimPrefix(raw, "?")
	q, err := url.ParseQuery(raw)
	if err != nil && q == nil {
		return url.Values{}
	}
	return q
}
