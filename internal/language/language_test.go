package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" de ", "de"},
		{"deu", "de"},
		{"ger", "de"},
		{"fre", "fr"},
		{"chi", "zh"},
		{"de-AT", "de"},
		{"German", "de"},
		{"spanish", "es"},
		{"", ""},
		{"not a language", ""},
	}
	for _, tt := range tests {
		if got := ToISO2(tt.input); got != tt.expected {
			t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"de", "deu"},
		{"en", "eng"},
		{"ger", "deu"},
		{"french", "fra"},
		{"", "und"},
		{"??", "und"},
	}
	for _, tt := range tests {
		if got := ToISO3(tt.input); got != tt.expected {
			t.Errorf("ToISO3(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"de", "German"},
		{"eng", "English"},
		{"", "Unknown"},
		{"??", "??"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("de") || !Valid("German") {
		t.Fatal("expected German to be valid")
	}
	if Valid("") || Valid("zz-not-real!") {
		t.Fatal("expected garbage to be invalid")
	}
}
