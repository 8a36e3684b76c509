package extract

import (
	"testing"

	"github.com/ppiankov/dossier/internal/catalog/catalogtest"
)

func pairMap(pairs []LabeledValue) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Label] = p.Value
	}
	return m
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Full Name", "full name"},
		{"identity.full_name", "identity full name"},
		{"  Check-in date: ", "check in date"},
		{"Passport No.", "passport no"},
		{"***", ""},
	}
	for _, tt := range tests {
		if got := NormalizeLabel(tt.in); got != tt.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(catalogtest.Travel(t).Facts())

	tests := []struct {
		label      string
		factID     string
		confidence float64
		ok         bool
	}{
		{"identity.full_name", "identity.full_name", MatchExact, true},
		{"FULL NAME", "identity.full_name", MatchAlias, true},
		{"Hotel", "travel.hotel_name", MatchAlias, true},
		{"party_size", "travel.party_size", MatchAlias, true},
		{"Preferred hotel", "accommodation.preferred_hotel", MatchAlias, true},
		{"Shoe size", "", 0, false},
	}
	for _, tt := range tests {
		factID, confidence, ok := m.Match(tt.label)
		if ok != tt.ok || factID != tt.factID || confidence != tt.confidence {
			t.Errorf("Match(%q) = %q, %v, %v; want %q, %v, %v", tt.label, factID, confidence, ok, tt.factID, tt.confidence, tt.ok)
		}
	}
}

func TestParseLabelLines(t *testing.T) {
	text := `# Booking confirmation
- **Full name:** Jane Doe
* Arrival date: 01/07/2026
> Hotel: Hotel Roma
See https://example.com/booking
Check-in at 14:00 sharp

| Field | Value |
|-------|-------|
| Purpose | Tourism |
| a | b | c |
Notes:
`
	got := pairMap(ParseLabelLines(text))

	want := map[string]string{
		"Full name":    "Jane Doe",
		"Arrival date": "01/07/2026",
		"Hotel":        "Hotel Roma",
		"Field":        "Value",
		"Purpose":      "Tourism",
	}

	if len(got) != len(want) {
		t.Errorf("Expected %d pairs, got %d: %v", len(want), len(got), got)
	}
	for label, value := range want {
		if got[label] != value {
			t.Errorf("Expected %q -> %q, got %q", label, value, got[label])
		}
	}
}

func TestSplitLabel(t *testing.T) {
	if _, ok := SplitLabel("Departure 10:30"); ok {
		t.Error("Expected clock time not to split into a label")
	}
	if _, ok := SplitLabel("url: https://example.com"); !ok {
		t.Error("Expected label with URL value to split")
	}
	if _, ok := SplitLabel("https://example.com"); ok {
		t.Error("Expected bare URL not to split")
	}
}

func TestParseHTMLPairs(t *testing.T) {
	page := `<html><head><title>Title: Booking</title><style>.x { color: red }</style></head><body>
<table>
  <tr><th>Hotel name</th><td>Hotel Roma</td></tr>
  <tr><td>Arrival date:</td><td>2 July 2026</td></tr>
  <tr><td>a</td><td>b</td><td>c</td></tr>
</table>
<dl><dt>Guests</dt><dd>2</dd><dt>Full name</dt><dd>Jane <b>Doe</b></dd></dl>
<p>Purpose: Tourism</p>
<script>var label = "Secret: value";</script>
</body></html>`

	pairs, err := ParseHTMLPairs(page)
	if err != nil {
		t.Fatalf("ParseHTMLPairs failed: %v", err)
	}
	got := pairMap(pairs)

	want := map[string]string{
		"Hotel name":   "Hotel Roma",
		"Arrival date": "2 July 2026",
		"Guests":       "2",
		"Full name":    "Jane Doe",
		"Purpose":      "Tourism",
	}
	for label, value := range want {
		if got[label] != value {
			t.Errorf("Expected %q -> %q, got %q", label, value, got[label])
		}
	}
	if _, ok := got["Secret"]; ok {
		t.Error("Script content should not be extracted")
	}
	if _, ok := got["Title"]; ok {
		t.Error("Head content should not be extracted")
	}
}

func TestParseStructured_YAML(t *testing.T) {
	doc := `
identity:
  full_name: Jane Doe
travel:
  arrival_date: 2026-07-01
  cities: [Rome, Milan]
party_size: 2
accommodation:
  has_booking: true
previous_trips:
  - country: France
    year: 2019
empty:
`
	pairs, err := ParseStructured(doc)
	if err != nil {
		t.Fatalf("ParseStructured failed: %v", err)
	}

	want := []LabeledValue{
		{"identity.full_name", "Jane Doe"},
		{"travel.arrival_date", "2026-07-01"},
		{"travel.cities", "Rome, Milan"},
		{"party_size", "2"},
		{"accommodation.has_booking", "yes"},
		{"previous_trips", `[{"country":"France","year":2019}]`},
	}
	if len(pairs) != len(want) {
		t.Fatalf("Expected %d pairs, got %d: %v", len(want), len(pairs), pairs)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d: expected %v, got %v", i, want[i], pairs[i])
		}
	}
}

func TestParseStructured_JSON(t *testing.T) {
	pairs, err := ParseStructured(`{"identity": {"full_name": "Jane Doe"}, "travel.party_size": 3.5}`)
	if err != nil {
		t.Fatalf("ParseStructured failed: %v", err)
	}
	got := pairMap(pairs)
	if got["identity.full_name"] != "Jane Doe" || got["travel.party_size"] != "3.5" {
		t.Errorf("Unexpected pairs: %v", got)
	}
}

func TestParseStructured_Invalid(t *testing.T) {
	if _, err := ParseStructured("key: [unterminated"); err == nil {
		t.Error("Expected error for malformed document")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"passport.yml": FormatYAML,
		"form.JSON":    FormatJSON,
		"booking.html": FormatHTML,
		"letter.md":    FormatMarkdown,
		"scan.txt":     FormatText,
		"no-extension": FormatText,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
