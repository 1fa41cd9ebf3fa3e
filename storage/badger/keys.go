package badger

import (
	"encoding/binary"

	"github.com/poiesic/studykit/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "docrec"
	chunkPrefix    = "chkrec"
)

// makeDocumentKey generates a key for a document row by its opaque ID.
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + ":" + id)
}

// makeChunkKey generates a composite key for a chunk row.
// Format: prefix : 8-byte document hash : 8-byte chunk index.
// The document component is a fixed-width content hash of the opaque
// document ID, and both components are written in BigEndian order so
// lexicographic iteration yields chunks in index order.
func makeChunkKey(documentID string, index int) []byte {
	prefix := chunkPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(documentID)))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makeChunkScanPrefix generates the iteration prefix for all chunks of
// a document.
func makeChunkScanPrefix(documentID string) []byte {
	prefix := chunkPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(documentID)))
	return buf
}
