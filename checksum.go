package classpath

import (
	"context"
	"crypto/md5"  //nolint:gosec // MD5 used for checksum verification, not security
	"crypto/sha1" //nolint:gosec // SHA1 used for checksum verification, not security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ChecksumAlgorithm names the digest used to fingerprint resource content.
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is xxHash64. Use it to spot changed resources between scans.
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// NewHasher returns a fresh digest for algorithm. Unknown names fail with
// ErrNotSupported before any resource is opened.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumMD5:
		return md5.New(), nil //nolint:gosec // MD5 used for checksum verification, not security
	case ChecksumSHA1:
		return sha1.New(), nil //nolint:gosec // SHA1 used for checksum verification, not security
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrNotSupported, algorithm)
	}
}

// CalculateChecksum digests resource content read from r and returns the
// sum hex encoded.
func CalculateChecksum(r io.Reader, algorithm ChecksumAlgorithm) (string, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read resource content: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Checksum opens a scanned resource through its Base and Name and digests
// its content. Archive handles are released before it returns.
func (s *Scanner) Checksum(ctx context.Context, r Resource, algorithm ChecksumAlgorithm) (string, error) {
	if _, err := NewHasher(algorithm); err != nil {
		return "", err
	}
	return ReadResource(ctx, s, r, func(content io.Reader) (string, error) {
		return CalculateChecksum(content, algorithm)
	})
}
