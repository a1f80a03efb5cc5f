package depsolve

import (
	"testing"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // canonical String()
	}{
		{"bare name", "requests", "requests"},
		{"name normalizes", "Typing_Extensions", "typing-extensions"},
		{"with range", "alpha >=1.0,<2.0", "alpha >=1.0,<2.0"},
		{"no space before range", "alpha>=1.0", "alpha >=1.0"},
		{"parenthesized range", "alpha (>=1.0, <2.0)", "alpha >=1.0,<2.0"},
		{"extras", "alpha[tls,socks] >=1.0", "alpha[socks,tls] >=1.0"},
		{"extras normalize", "alpha[TLS_v2]", "alpha[tls-v2]"},
		{"marker", `alpha >=1.0 ; sys_platform == "linux"`, `alpha >=1.0 ; sys_platform == "linux"`},
		{"marker only", `alpha ; extra == "fast"`, `alpha ; extra == "fast"`},
		{"everything", `Alpha[ext] ~=1.4 ; python_version >= "3.9"`, `alpha[ext] ~=1.4 ; python_version >= "3.9"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequirement(tt.input)
			if err != nil {
				t.Fatalf("ParseRequirement(%q) error: %v", tt.input, err)
			}
			if got := req.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if req.Origin != OriginDirect {
				t.Errorf("Origin = %q, want %q", req.Origin, OriginDirect)
			}

			// Canonical form must re-parse to itself.
			again, err := ParseRequirement(req.String())
			if err != nil {
				t.Fatalf("reparse error: %v", err)
			}
			if again.String() != req.String() {
				t.Errorf("reparse = %q, want %q", again.String(), req.String())
			}
		})
	}
}

func TestParseRequirementMalformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		">=1.0",
		"alpha[",
		"alpha[]",
		"alpha >=abc",
		`alpha ; sys_platform ==`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseRequirement(input); err == nil {
				t.Fatalf("ParseRequirement(%q) succeeded, want error", input)
			}
		})
	}
}
