// Package backup uploads snapshots of local documents to a remote content-addressed store
// and restores them by Merkle root.
package backup

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SegmentSize is the leaf size of the content Merkle tree.
const SegmentSize = 256

// MerkleRoot returns the Keccak-256 Merkle root of data split into SegmentSize leaves.
// The last leaf is zero padded; an odd node is promoted unchanged to the next level.
// Empty data hashes a single zero segment.
func MerkleRoot(data []byte) common.Hash {
	n := (len(data) + SegmentSize - 1) / SegmentSize
	if n == 0 {
		n = 1
	}
	level := make([]common.Hash, n)
	for i := 0; i < n; i++ {
		seg := make([]byte, SegmentSize)
		start := i * SegmentSize
		end := start + SegmentSize
		if end > len(data) {
			end = len(data)
		}
		if start < end {
			copy(seg, data[start:end])
		}
		level[i] = crypto.Keccak256Hash(seg)
	}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, crypto.Keccak256Hash(level[i].Bytes(), level[i+1].Bytes()))
		}
		level = next
	}
	return level[0]
}
