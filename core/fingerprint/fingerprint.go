// Package fingerprint computes the partial-content digest KOReader uses to
// identify a document against its sync server.
//
// The digest is an MD5 over a 1024-byte sample at the start of the file plus
// further 1024-byte samples at geometrically increasing offsets
// (1024 << 2i). Both sides of the sync compute it independently and compare
// by value, so the sampling schedule must match KOReader's fastDigest
// bit for bit.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const (
	// sampleSize is the number of bytes read per sample.
	sampleSize = 1024
	// sampleStep is the base offset shifted left by 2i for sample i.
	sampleStep = 1024
	// sampleCount is the number of offset samples after the initial one.
	sampleCount = 10
)

// Compute returns the hex digest of the partial-content hash of r. The
// reader is consumed from its start; sampling stops early once a seek lands
// past end of file.
func Compute(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("fingerprint: seek start: %w", err)
	}

	h := md5.New()
	buf := make([]byte, sampleSize)

	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("fingerprint: read head sample: %w", err)
	}
	h.Write(buf[:n])

	for i := 0; i < sampleCount; i++ {
		offset := int64(sampleStep) << (2 * i)
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return "", fmt.Errorf("fingerprint: seek sample %d: %w", i, err)
		}
		n, err := io.ReadFull(r, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return "", fmt.Errorf("fingerprint: read sample %d: %w", i, err)
		}
		if n == 0 {
			break
		}
		h.Write(buf[:n])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeFile computes the digest of a file on the local filesystem.
func ComputeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint: open %s: %w", path, err)
	}
	defer f.Close()
	return Compute(f)
}
