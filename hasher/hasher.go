package hasher

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"sasaudit/logger"

	"github.com/cespare/xxhash/v2"
	"github.com/glaslos/tlsh"
	"lukechampine.com/blake3"
)

// Digest is one content fingerprint.
type Digest struct {
	Algorithm string
	Value     string
}

func (d Digest) String() string {
	return d.Algorithm + ":" + d.Value
}

// ComputeDigests fingerprints content with each algorithm in order. Duplicate
// algorithms are ignored. tlsh needs enough varied input; when it cannot hash
// the content it is skipped rather than failing the other digests.
func ComputeDigests(content []byte, algorithms []string) ([]Digest, error) {
	digests := make([]Digest, 0, len(algorithms))
	seen := make(map[string]struct{}, len(algorithms))
	for _, algo := range algorithms {
		if _, ok := seen[algo]; ok {
			continue
		}
		seen[algo] = struct{}{}
		switch algo {
		case "xxhash64":
			digests = append(digests, Digest{Algorithm: algo, Value: fastHash(content)})
		case "blake3":
			sum := blake3.Sum256(content)
			digests = append(digests, Digest{Algorithm: algo, Value: hex.EncodeToString(sum[:])})
		case "sha256":
			sum := sha256.Sum256(content)
			digests = append(digests, Digest{Algorithm: algo, Value: hex.EncodeToString(sum[:])})
		case "tlsh":
			h, err := tlsh.HashReader(bytes.NewReader(content))
			if err != nil {
				logger.Debugf("tlsh skipped (%d bytes): %v", len(content), err)
				continue
			}
			digests = append(digests, Digest{Algorithm: algo, Value: h.String()})
		default:
			return digests, fmt.Errorf("unsupported hash algorithm: %s", algo)
		}
	}
	return digests, nil
}

func fastHash(b []byte) string {
	s := strconv.FormatUint(xxhash.Sum64(b), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
