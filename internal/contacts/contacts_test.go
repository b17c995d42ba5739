package contacts

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+91 98765-43210", "9876543210"},
		{"(987) 654 3210", "9876543210"},
		{"0091 9876543210", "9876543210"},
		{"12345", "12345"},
		{"", ""},
		{"tel: n/a", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	book := AddressBook{
		{DisplayName: "Office", Phones: []string{"020 555 0101"}},
		{DisplayName: "Ravi", Phones: []string{"+1 (555) 000-1111", "+91 98765 43210"}},
		{DisplayName: "Ravi old", Phones: []string{"9876543210"}},
	}

	m, ok := book.Lookup("+919876543210")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Name != "Ravi" || m.Phone != "+91 98765 43210" {
		t.Errorf("unexpected match %+v", m)
	}

	if _, ok := book.Lookup("+44 7000 000000"); ok {
		t.Error("unexpected match for unknown number")
	}
	if _, ok := book.Lookup(""); ok {
		t.Error("empty phone must never match")
	}
	var empty AddressBook
	if _, ok := empty.Lookup("9876543210"); ok {
		t.Error("empty book must never match")
	}
}
