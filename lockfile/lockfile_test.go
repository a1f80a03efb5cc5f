package lockfile

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func sampleDocument() *Document {
	doc := New()
	doc.Metadata.Requires = ">=3.9"
	doc.Metadata.Requirements = []string{"beta >=1.0", "alpha >=1.0,<2.0"}
	doc.Add(Entry{
		Name:    "beta",
		Version: "1.2",
		Artifacts: []Artifact{
			{File: "beta-1.2.tar.gz", Digest: SHA256Digest([]byte("beta"))},
		},
	})
	doc.Add(Entry{
		Name:    "alpha",
		Version: "1.5",
		Extras:  []string{"tls"},
		Artifacts: []Artifact{
			{File: "alpha-1.5.tar.gz", Digest: SHA256Digest([]byte("alpha-sdist"))},
			{File: "alpha-1.5-py3-none-any.whl", Digest: SHA256Digest([]byte("alpha-wheel"))},
		},
	})
	return doc
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := sampleDocument().Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	second, err := sampleDocument().Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("two marshals of the same document differ")
	}

	// Insertion order must not leak into the output.
	reordered := New()
	reordered.Metadata.Requires = ">=3.9"
	reordered.Metadata.Requirements = []string{"alpha >=1.0,<2.0", "beta >=1.0"}
	for _, e := range sampleDocument().Packages {
		reordered.Add(e)
	}
	third, err := reordered.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !bytes.Equal(first, third) {
		t.Error("entry insertion order changed the output bytes")
	}
}

func TestMarshalLayout(t *testing.T) {
	data, err := sampleDocument().Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	text := string(data)

	if !strings.HasPrefix(text, header) {
		t.Error("output does not start with the generated-file header")
	}

	// Packages sorted by name, artifacts by file name.
	alpha := strings.Index(text, `name = "alpha"`)
	beta := strings.Index(text, `name = "beta"`)
	if alpha < 0 || beta < 0 || alpha > beta {
		t.Errorf("packages out of order: alpha at %d, beta at %d", alpha, beta)
	}
	wheel := strings.Index(text, "alpha-1.5-py3-none-any.whl")
	sdist := strings.Index(text, "alpha-1.5.tar.gz")
	if wheel < 0 || sdist < 0 || wheel > sdist {
		t.Errorf("artifacts out of order: wheel at %d, sdist at %d", wheel, sdist)
	}

	// Requirements render sorted regardless of declaration order.
	if !strings.Contains(text, `requirements = ["alpha >=1.0,<2.0", "beta >=1.0"]`) {
		t.Error("requirements not sorted in metadata")
	}

	if !strings.Contains(text, `content-hash = "sha256:`) {
		t.Error("content-hash missing or not sha256-prefixed")
	}
}

func TestRoundTrip(t *testing.T) {
	original := sampleDocument()
	data, err := original.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	again, err := parsed.Marshal()
	if err != nil {
		t.Fatalf("re-Marshal error: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("serialize(parse(serialize(doc))) is not byte-identical")
	}

	if parsed.Metadata.Requires != original.Metadata.Requires {
		t.Errorf("Requires = %q, want %q", parsed.Metadata.Requires, original.Metadata.Requires)
	}
	if len(parsed.Packages) != len(original.Packages) {
		t.Fatalf("package count = %d, want %d", len(parsed.Packages), len(original.Packages))
	}

	entry, ok := parsed.Package("Alpha") // lookup normalizes
	if !ok {
		t.Fatal("Package(Alpha) not found")
	}
	if entry.Version != "1.5" || !reflect.DeepEqual(entry.Extras, []string{"tls"}) {
		t.Errorf("entry = %+v", entry)
	}
}

func TestParseTamperedDocument(t *testing.T) {
	data, err := sampleDocument().Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	tampered := bytes.Replace(data, []byte(`version = "1.5"`), []byte(`version = "1.6"`), 1)
	if bytes.Equal(tampered, data) {
		t.Fatal("tamper replacement did not apply")
	}

	_, err = Parse(tampered)
	if !errors.Is(err, ErrIntegrityMismatch) {
		t.Fatalf("Parse(tampered) error = %v, want ErrIntegrityMismatch", err)
	}
}

func TestParseMalformed(t *testing.T) {
	valid, err := sampleDocument().Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not toml", []byte("[metadata\nlock-version")},
		{"missing lock-version", []byte("[metadata]\ncontent-hash = \"sha256:aa\"\n")},
		{
			"unsupported major version",
			bytes.Replace(valid, []byte(`lock-version = "1.0"`), []byte(`lock-version = "2.0"`), 1),
		},
		{
			"bad content hash syntax",
			[]byte("[metadata]\nlock-version = \"1.0\"\ncontent-hash = \"md5:abc\"\n"),
		},
		{
			"duplicate normalized names",
			[]byte("[metadata]\nlock-version = \"1.0\"\ncontent-hash = \"sha256:" + strings.Repeat("a", 64) + "\"\n" +
				"[[package]]\nname = \"my-pkg\"\nversion = \"1.0\"\n" +
				"[[package]]\nname = \"my_pkg\"\nversion = \"1.1\"\n"),
		},
		{
			"package missing version",
			[]byte("[metadata]\nlock-version = \"1.0\"\ncontent-hash = \"sha256:" + strings.Repeat("a", 64) + "\"\n" +
				"[[package]]\nname = \"my-pkg\"\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			var malformed *MalformedDocumentError
			if !errors.As(err, &malformed) {
				t.Fatalf("error = %T (%v), want *MalformedDocumentError", err, err)
			}
		})
	}
}

func TestDigestHelpers(t *testing.T) {
	data := []byte("hello")

	digest := SHA256Digest(data)
	if !strings.HasPrefix(digest, "sha256:") {
		t.Errorf("SHA256Digest = %q, want sha256: prefix", digest)
	}

	algo, hex, err := SplitDigest(digest)
	if err != nil {
		t.Fatalf("SplitDigest error: %v", err)
	}
	if algo != "sha256" || len(hex) != 64 {
		t.Errorf("SplitDigest = (%q, %d chars)", algo, len(hex))
	}

	for _, bad := range []string{"", "sha256", "sha256:", "sha256:zz", "md5:" + strings.Repeat("a", 32), "sha256:" + strings.Repeat("a", 63)} {
		if ValidDigest(bad) {
			t.Errorf("ValidDigest(%q) = true, want false", bad)
		}
	}

	sha512, err := ComputeDigest("sha512", data)
	if err != nil {
		t.Fatalf("ComputeDigest(sha512) error: %v", err)
	}
	if !ValidDigest(sha512) {
		t.Errorf("ComputeDigest produced invalid digest %q", sha512)
	}
}

func TestDocumentAddReplaces(t *testing.T) {
	doc := New()
	doc.Add(Entry{Name: "pkg", Version: "1.0"})
	doc.Add(Entry{Name: "PKG", Version: "2.0"}) // same normalized name

	if len(doc.Packages) != 1 {
		t.Fatalf("package count = %d, want 1", len(doc.Packages))
	}
	if doc.Packages[0].Version != "2.0" {
		t.Errorf("version = %q, want 2.0", doc.Packages[0].Version)
	}
}
