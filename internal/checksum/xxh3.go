// xxh3.go wires the XXH3 checksum to the real implementation rather
// than a hand-rolled port of the xxHash spec.
//
// Reference: RocksDB v10.7.5 uses XXH3_64bits() (via its bundled
// xxHash sources) for format_version 5+ block checksums; here that
// role is filled by github.com/zeebo/xxh3, a pure-Go, SIMD-free port
// with the same hash function.
package checksum

import "github.com/zeebo/xxh3"

// XXH3_64bits computes the 64-bit XXH3 hash of data.
func XXH3_64bits(data []byte) uint64 {
	return xxh3.Hash(data)
}

// XXH3Checksum computes the RocksDB-style XXH3 checksum for a block.
// This matches ComputeBuiltinChecksum with kXXH3 in RocksDB: the hash
// is computed over all bytes except the last, then folded with the
// last byte via a fixed multiplier.
func XXH3Checksum(data []byte) uint32 {
	if len(data) == 0 {
		return 0
	}
	h := XXH3_64bits(data[:len(data)-1])
	v := uint32(h)
	lastByte := data[len(data)-1]
	const kRandomPrime = 0x6b9083d9
	return v ^ (uint32(lastByte) * kRandomPrime)
}

// XXH3ChecksumWithLastByte computes the XXH3 checksum over data with a
// last byte (typically a compression-type tag) folded in separately,
// for when that byte is not part of the data buffer itself.
func XXH3ChecksumWithLastByte(data []byte, lastByte byte) uint32 {
	h := XXH3_64bits(data)
	v := uint32(h)
	const kRandomPrime = 0x6b9083d9
	return v ^ (uint32(lastByte) * kRandomPrime)
}
