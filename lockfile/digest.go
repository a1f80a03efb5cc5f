package lockfile

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// digestHexLengths maps supported digest algorithms to their hex digest
// length, used for syntactic validation.
var digestHexLengths = map[string]int{
	"sha256": 64,
	"sha384": 96,
	"sha512": 128,
}

// ComputeDigest hashes data with the named algorithm and returns the
// prefixed form "algo:hex". Unsupported algorithms return an error.
func ComputeDigest(algorithm string, data []byte) (string, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	_, _ = h.Write(data)
	return algorithm + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Digest hashes data with SHA-256 and returns "sha256:hex".
// This is the algorithm used for document content hashes.
func SHA256Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}
}

// SplitDigest splits a prefixed digest into algorithm and hex value.
// It returns an error when the syntax or hex length is wrong.
func SplitDigest(digest string) (algorithm, hexValue string, err error) {
	algorithm, hexValue, ok := strings.Cut(digest, ":")
	if !ok {
		return "", "", fmt.Errorf("digest %q missing algorithm prefix", digest)
	}
	wantLen, ok := digestHexLengths[algorithm]
	if !ok {
		return "", "", fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}
	if len(hexValue) != wantLen {
		return "", "", fmt.Errorf("digest %q: want %d hex characters, have %d", digest, wantLen, len(hexValue))
	}
	if _, err := hex.DecodeString(hexValue); err != nil {
		return "", "", fmt.Errorf("digest %q: invalid hex: %w", digest, err)
	}
	return algorithm, hexValue, nil
}

// ValidDigest reports whether the digest has a supported algorithm prefix
// and a well-formed hex value of the right length.
func ValidDigest(digest string) bool {
	_, _, err := SplitDigest(digest)
	return err == nil
}
