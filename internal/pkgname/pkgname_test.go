package pkgname

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"requests", "requests"},
		{"Django", "django"},
		{"typing_extensions", "typing-extensions"},
		{"zope.interface", "zope-interface"},
		{"my--weird__name", "my-weird-name"},
		{"My.Mixed_Name", "my-mixed-name"},
		{"  spaced  ", "spaced"},
		{"-leading", "leading"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, input := range []string{"A_b.C", "already-normal", "X"} {
		once := Normalize(input)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", input, twice, once)
		}
	}
}
