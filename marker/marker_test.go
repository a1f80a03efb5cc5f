package marker

import (
	"errors"
	"testing"
)

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple comparison",
			input: `sys_platform == "linux"`,
			want:  `sys_platform == "linux"`,
		},
		{
			name:  "single quotes normalize to double",
			input: `sys_platform == 'linux'`,
			want:  `sys_platform == "linux"`,
		},
		{
			name:  "conjunction",
			input: `python_version >= "3.9" and sys_platform != "win32"`,
			want:  `python_version >= "3.9" and sys_platform != "win32"`,
		},
		{
			name:  "and binds tighter than or",
			input: `os_name == "posix" or os_name == "nt" and sys_platform == "win32"`,
			want:  `os_name == "posix" or (os_name == "nt" and sys_platform == "win32")`,
		},
		{
			name:  "explicit grouping",
			input: `(os_name == "posix" or os_name == "nt") and extra == "tls"`,
			want:  `(os_name == "posix" or os_name == "nt") and extra == "tls"`,
		},
		{
			name:  "negation",
			input: `not (sys_platform == "win32")`,
			want:  `not sys_platform == "win32"`,
		},
		{
			name:  "containment",
			input: `"arm" in platform_machine`,
			want:  `"arm" in platform_machine`,
		},
		{
			name:  "negated containment",
			input: `"musl" not in platform_machine`,
			want:  `"musl" not in platform_machine`,
		},
		{
			name:  "whitespace tolerated",
			input: `  python_version   >=   "3.9"  `,
			want:  `python_version >= "3.9"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got := expr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}

			// Canonical output must re-parse to the same canonical form.
			again, err := Parse(expr.String())
			if err != nil {
				t.Fatalf("reparse error: %v", err)
			}
			if again.String() != expr.String() {
				t.Errorf("reparse = %q, want %q", again.String(), expr.String())
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		``,
		`sys_platform ==`,
		`== "linux"`,
		`sys_platform = "linux"`,
		`sys_platform == "linux`,
		`(sys_platform == "linux"`,
		`sys_platform == "linux" and`,
		`sys_platform == "linux" garbage`,
		`not in "x"`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", input)
			}
			var malformed *MalformedMarkerError
			if !errors.As(err, &malformed) {
				t.Fatalf("error = %T, want *MalformedMarkerError", err)
			}
		})
	}
}

func testEnv() Environment {
	return Environment{
		OSName:             "posix",
		SysPlatform:        "linux",
		PlatformMachine:    "x86_64",
		PlatformSystem:     "Linux",
		PythonVersion:      "3.11",
		PythonFullVersion:  "3.11.4",
		ImplementationName: "cpython",
	}
}

func TestEvaluate(t *testing.T) {
	env := testEnv()

	tests := []struct {
		name   string
		marker string
		want   bool
	}{
		{"matching platform", `sys_platform == "linux"`, true},
		{"non-matching platform", `sys_platform == "win32"`, false},
		{"negated match", `sys_platform != "win32"`, true},
		{"and both true", `sys_platform == "linux" and os_name == "posix"`, true},
		{"and one false", `sys_platform == "linux" and os_name == "nt"`, false},
		{"or short", `sys_platform == "win32" or os_name == "posix"`, true},
		{"not", `not (sys_platform == "win32")`, true},
		{"in", `"x86" in platform_machine`, true},
		{"not in", `"arm" not in platform_machine`, true},
		{"reversed literal", `"linux" == sys_platform`, true},

		// python_version compares as a version, not a string.
		{"version ge", `python_version >= "3.9"`, true},
		{"version lt", `python_version < "3.9"`, false},
		{"numeric not lexical", `python_version >= "3.9"`, true},
		{"full version", `python_full_version >= "3.11.2"`, true},
		{"compatible", `python_version ~= "3.10"`, true},

		// Attributes the environment does not define never match, in
		// either polarity.
		{"unknown attribute eq", `platform_release == "5.0"`, false},
		{"unknown attribute ne", `platform_release != "5.0"`, false},

		// extra without any extras active.
		{"extra inactive", `extra == "tls"`, false},
		{"extra negated", `extra != "tls"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := MustParse(tt.marker)
			if got := Evaluate(expr, env); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.marker, got, tt.want)
			}
		})
	}
}

func TestEvaluateExtras(t *testing.T) {
	env := testEnv().WithExtras([]string{"TLS", "socks_v5"})

	tests := []struct {
		marker string
		want   bool
	}{
		{`extra == "tls"`, true},        // normalized on both sides
		{`extra == "socks-v5"`, true},   // separator normalization
		{`extra == "brotli"`, false},
		{`extra == "tls" and sys_platform == "linux"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			expr := MustParse(tt.marker)
			if got := Evaluate(expr, env); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.marker, got, tt.want)
			}
		})
	}
}

func TestEvaluatorCaching(t *testing.T) {
	ev := NewEvaluator(testEnv())
	expr := MustParse(`python_version >= "3.9"`)

	if !ev.Eval(expr) {
		t.Fatal("Eval = false, want true")
	}
	// Second call hits the cache; same result.
	if !ev.Eval(expr) {
		t.Fatal("cached Eval = false, want true")
	}

	if !ev.Eval(nil) {
		t.Fatal("Eval(nil) = false, want true")
	}

	if !ev.EvalWithExtras(MustParse(`extra == "tls"`), []string{"tls"}) {
		t.Fatal("EvalWithExtras = false, want true")
	}
	if ev.EvalWithExtras(MustParse(`extra == "tls"`), nil) {
		t.Fatal("EvalWithExtras with no extras = true, want false")
	}
}

func TestFingerprint(t *testing.T) {
	a := testEnv()
	b := testEnv()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal environments have different fingerprints")
	}

	c := testEnv()
	c.PythonVersion = "3.12"
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different environments share a fingerprint")
	}

	// Extras are part of the identity, order-independently.
	d := testEnv().WithExtras([]string{"a", "b"})
	e := testEnv().WithExtras([]string{"b", "a"})
	if d.Fingerprint() != e.Fingerprint() {
		t.Error("extra order changed the fingerprint")
	}
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("extras did not change the fingerprint")
	}
}
