package middleware

import "testing"

func TestExtractHouseholdSlug(t *testing.T) {
	tests := []struct {
		name       string
		host       string
		baseDomain string
		want       string
	}{
		{"simple subdomain", "smith.householdfinance.app", "householdfinance.app", "smith"},
		{"hyphenated subdomain", "garcia-nyc.householdfinance.app", "householdfinance.app", "garcia-nyc"},
		{"subdomain with port", "smith.householdfinance.app:8080", "householdfinance.app", "smith"},
		{"uppercase host", "SMITH.HouseholdFinance.app", "householdfinance.app", "smith"},
		{"base domain only", "householdfinance.app", "householdfinance.app", ""},
		{"www", "www.householdfinance.app", "householdfinance.app", ""},
		{"reserved api", "api.householdfinance.app", "householdfinance.app", ""},
		{"reserved staging", "staging.householdfinance.app", "householdfinance.app", ""},
		{"unrelated host", "example.com", "householdfinance.app", ""},
		{"suffix but not subdomain", "nothouseholdfinance.app", "householdfinance.app", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractHouseholdSlug(tt.host, tt.baseDomain); got != tt.want {
				t.Errorf("ExtractHouseholdSlug(%q, %q) = %q, want %q", tt.host, tt.baseDomain, got, tt.want)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"smith", true},
		{"garcia-nyc", true},
		{"abc", true},
		{"ab", false},                  // too short
		{"UPPER", false},               // uppercase
		{"has--double", false},         // consecutive hyphens
		{"-leading", false},            // leading hyphen
		{"trailing-", false},           // trailing hyphen
		{"has space", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidateSlug(tt.slug); got != tt.want {
			t.Errorf("ValidateSlug(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}
