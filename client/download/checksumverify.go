package download

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"slices"
	"strings"
)

// digest hashes the bytes written through it for comparison with the
// value the server reported.
type digest struct {
	algo string
	hash hash.Hash
	want string
}

func (d *digest) Write(p []byte) (int, error) {
	return d.hash.Write(p)
}

func (d *digest) check(dest string) error {
	got := hex.EncodeToString(d.hash.Sum(nil))
	if strings.EqualFold(got, d.want) {
		return nil
	}

	return &IntegrityError{
		Dest: dest,
		Err:  ErrChecksumMismatch,
		Want: d.algo + ":" + d.want,
		Got:  d.algo + ":" + got,
	}
}

// algorithms lists the digests the storage API reports, strongest first.
var algorithms = []struct {
	name string
	new  func() hash.Hash
}{
	{"sha256", sha256.New},
	{"sha1", sha1.New},
	{"md5", md5.New},
}

// strongest picks the best supported digest from an item's checksums.
func strongest(checksums map[string]string) (*digest, error) {
	for _, algo := range algorithms {
		if want := checksums[algo.name]; want != "" {
			return &digest{algo: algo.name, hash: algo.new(), want: want}, nil
		}
	}

	names := make([]string, 0, len(checksums))
	for name := range checksums {
		names = append(names, name)
	}
	slices.Sort(names)

	return nil, fmt.Errorf("%w among %v", ErrNoKnownChecksum, names)
}
