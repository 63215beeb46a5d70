package store

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Prefix constants for all record types
const (
	prefixSnapshot byte = iota + 1
	prefixEntry
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixSnapshot:
		return "snapshot"
	case prefixEntry:
		return "entry"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and a ledger id
func makeKey(prefix byte, id common.Hash) []byte {
	key := make([]byte, 1+common.HashLength)
	key[0] = prefix
	copy(key[1:], id[:])
	return key
}

// entryKey orders the entries of one ledger by sequence number.
func entryKey(id common.Hash, seq uint64) []byte {
	key := make([]byte, 1+common.HashLength+8)
	key[0] = prefixEntry
	copy(key[1:], id[:])
	binary.BigEndian.PutUint64(key[1+common.HashLength:], seq)
	return key
}
