package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"already canonical", "+919876543210", "+919876543210", true},
		{"spaces and dashes", " +91 98765-43210 ", "+919876543210", true},
		{"fancy hyphens", "+91‑98765‐43210", "+919876543210", true},
		{"bare ten digits", "9876543210", "+919876543210", true},
		{"parentheses", "(987) 654-3210", "+919876543210", true},
		{"double zero prefix", "00447911123456", "+447911123456", true},
		{"internal plus collapsed", "91+9876543210", "+919876543210", true},
		{"repeated plus", "++919876543210", "+919876543210", true},
		{"too short", "+1234567", "", false},
		{"too long", "+1234567890123456", "", false},
		{"eleven digits no plus", "19876543210", "", false},
		{"letters only", "call me", "", false},
		{"empty", "", "", false},
		{"plus only", "+", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"+919876543210",
		"9876543210",
		"0044 7911 123456",
		"+1 (415) 555-0100",
		"+49 30 123456",
	}
	for _, in := range inputs {
		once, ok := Normalize(in)
		if !ok {
			t.Fatalf("Normalize(%q) failed", in)
		}
		twice, ok := Normalize(once)
		if !ok {
			t.Fatalf("Normalize(%q) failed on second pass", once)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestMask(t *testing.T) {
	if got := Mask("+919876543210"); got != "+91******3210" {
		t.Errorf("Mask = %q, want %q", got, "+91******3210")
	}
	if got := Mask("+1234"); got != "*****" {
		t.Errorf("Mask short = %q, want %q", got, "*****")
	}
}
