package accnumpkg

import "testing"

func TestGenerate(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		got := Generate("LT")
		if !Valid(got) {
			t.Fatalf("Generate(%q) = %q, not a valid account number", "LT", got)
		}

		if len(got) != 2+DigitsLen {
			t.Fatalf("len(%q) = %d, want %d", got, len(got), 2+DigitsLen)
		}

		seen[got] = struct{}{}
	}

	if len(seen) < 99 {
		t.Errorf("Generate produced %d distinct numbers out of 100", len(seen))
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want bool
	}{
		{in: "LT00000000000001", want: true},
		{in: "DE12345678901234", want: true},
		{in: "lt00000000000001", want: false},
		{in: "LT0000000000001", want: false},
		{in: "LT000000000000012", want: false},
		{in: "L100000000000001", want: false},
		{in: "", want: false},
	}

	for _, tc := range testCases {
		if got := Valid(tc.in); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidCountryCode(t *testing.T) {
	t.Parallel()

	for cc, want := range map[string]bool{"LT": true, "DE": true, "lt": false, "LTU": false, "L1": false, "": false} {
		if got := ValidCountryCode(cc); got != want {
			t.Errorf("ValidCountryCode(%q) = %v, want %v", cc, got, want)
		}
	}
}
