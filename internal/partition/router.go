// Package partition maps routing keys to partition indexes in a fixed
// 1024-slot space. The backing store is range-partitioned over these
// indexes, so both functions here are frozen contracts: changing either
// formula would silently re-shard every identity already on disk.
package partition

import (
	"crypto/md5"
	"fmt"

	"github.com/offerhub/userfed/internal/common"
)

// Count is the size of the partition space.
const Count = 1024

// ForString returns the partition index for a string routing key.
//
// The key's raw bytes are digested with MD5 (a content digest, not a
// security boundary) and the first three digest bytes are combined as
// (b0*65536 + b1*256 + b2) mod 1024. The same bytes always map to the same
// partition, in any process and on any platform.
func ForString(key string) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: empty partition key", common.ErrInvalidArgument)
	}
	d := md5.Sum([]byte(key))
	return (int(d[0])*65536 + int(d[1])*256 + int(d[2])) % Count, nil
}

// ForUint64 returns the partition index for a 64-bit numeric routing key.
//
// The key is run through a fixed avalanche mix (Wang's 64-bit hash: a
// sequence of XOR-shift and additive steps with the constants below) and
// reduced mod 1024. The constants are part of the on-disk partitioning
// contract and must never change.
func ForUint64(key uint64) int {
	key = ^key + key<<21
	key ^= key >> 24
	key = key + key<<3 + key<<8
	key ^= key >> 14
	key = key + key<<2 + key<<4
	key ^= key >> 28
	key = key + key<<31
	return int(key % Count)
}

// ForInt64 routes a signed 64-bit key through the same mix as ForUint64.
func ForInt64(key int64) int {
	return ForUint64(uint64(key))
}
