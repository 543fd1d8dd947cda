package schema

import (
	"github.com/zeebo/blake3"
)

const crc64Empty uint64 = 0xc15d213aa4d7a795

var crc64Table = func() (t [256]uint64) {
	for i := range t {
		fp := uint64(i)
		for j := 0; j < 8; j++ {
			fp = (fp >> 1) ^ (crc64Empty & -(fp & 1))
		}
		t[i] = fp
	}
	return t
}()

// FingerprintCRC64 returns the 64-bit Rabin fingerprint (CRC-64-AVRO) of
// the canonical form of d.
func FingerprintCRC64(d *Descriptor) uint64 {
	return crc64([]byte(Canonical(d)))
}

func crc64(data []byte) uint64 {
	fp := crc64Empty
	for _, b := range data {
		fp = (fp >> 8) ^ crc64Table[byte(fp)^b]
	}
	return fp
}

// FingerprintBLAKE3 returns the BLAKE3-256 digest of the canonical form of d.
func FingerprintBLAKE3(d *Descriptor) [32]byte {
	return blake3.Sum256([]byte(Canonical(d)))
}
