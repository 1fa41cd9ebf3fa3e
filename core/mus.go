package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the persisted row formats. Timestamps
// are stored as Unix microseconds, embedding values as varint-encoded
// IEEE 754 bits so the on-disk layout is pinned explicitly.
var (
	// DocumentMUS serializes Document rows.
	DocumentMUS = documentMUS{}
	// ChunkMUS serializes Chunk rows.
	ChunkMUS = chunkMUS{}
)

type documentMUS struct{}

// Size returns the serialized size of a Document in bytes.
func (documentMUS) Size(doc Document) (size int) {
	size += ord.String.Size(doc.Id)
	size += ord.String.Size(doc.Title)
	size += ord.String.Size(doc.SourceURI)
	size += varint.Int.Size(doc.PageCount)
	size += varint.Int.Size(int(doc.Status))
	size += varint.Int.Size(doc.ChunkCount)
	size += ord.String.Size(doc.ErrorMessage)
	size += ord.String.Size(doc.LockToken)
	size += varint.Int64.Size(doc.InsertedAt.UnixMicro())
	size += varint.Int64.Size(doc.UpdatedAt.UnixMicro())
	return size
}

// Marshal writes a Document into bs and returns the number of bytes written.
func (documentMUS) Marshal(doc Document, bs []byte) (n int) {
	n += ord.String.Marshal(doc.Id, bs[n:])
	n += ord.String.Marshal(doc.Title, bs[n:])
	n += ord.String.Marshal(doc.SourceURI, bs[n:])
	n += varint.Int.Marshal(doc.PageCount, bs[n:])
	n += varint.Int.Marshal(int(doc.Status), bs[n:])
	n += varint.Int.Marshal(doc.ChunkCount, bs[n:])
	n += ord.String.Marshal(doc.ErrorMessage, bs[n:])
	n += ord.String.Marshal(doc.LockToken, bs[n:])
	n += varint.Int64.Marshal(doc.InsertedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(doc.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

// Unmarshal reads a Document from bs.
func (documentMUS) Unmarshal(bs []byte) (doc Document, n int, err error) {
	var n1 int
	if doc.Id, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	n += n1
	if doc.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	n += n1
	if doc.SourceURI, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	n += n1
	if doc.PageCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	doc.Status = ProcessingStatus(status)
	n += n1
	if doc.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	n += n1
	if doc.ErrorMessage, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	n += n1
	if doc.LockToken, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	doc.InsertedAt = time.UnixMicro(micros).UTC()
	n += n1
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return doc, n + n1, err
	}
	doc.UpdatedAt = time.UnixMicro(micros).UTC()
	n += n1
	return doc, n, nil
}

type chunkMUS struct{}

// Size returns the serialized size of a Chunk in bytes.
func (chunkMUS) Size(chunk Chunk) (size int) {
	size += ord.String.Size(chunk.DocumentId)
	size += varint.Int.Size(chunk.Index)
	size += ord.String.Size(chunk.Content)
	size += varint.Int.Size(chunk.PageStart)
	size += varint.Int.Size(chunk.PageEnd)
	size += varint.Int.Size(chunk.TokenCount)
	size += varint.Int.Size(len(chunk.Embedding))
	for _, v := range chunk.Embedding {
		size += varint.Uint32.Size(math.Float32bits(v))
	}
	size += varint.Int64.Size(chunk.InsertedAt.UnixMicro())
	return size
}

// Marshal writes a Chunk into bs and returns the number of bytes written.
func (chunkMUS) Marshal(chunk Chunk, bs []byte) (n int) {
	n += ord.String.Marshal(chunk.DocumentId, bs[n:])
	n += varint.Int.Marshal(chunk.Index, bs[n:])
	n += ord.String.Marshal(chunk.Content, bs[n:])
	n += varint.Int.Marshal(chunk.PageStart, bs[n:])
	n += varint.Int.Marshal(chunk.PageEnd, bs[n:])
	n += varint.Int.Marshal(chunk.TokenCount, bs[n:])
	n += varint.Int.Marshal(len(chunk.Embedding), bs[n:])
	for _, v := range chunk.Embedding {
		n += varint.Uint32.Marshal(math.Float32bits(v), bs[n:])
	}
	n += varint.Int64.Marshal(chunk.InsertedAt.UnixMicro(), bs[n:])
	return n
}

// Unmarshal reads a Chunk from bs.
func (chunkMUS) Unmarshal(bs []byte) (chunk Chunk, n int, err error) {
	var n1 int
	if chunk.DocumentId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	n += n1
	if chunk.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	n += n1
	if chunk.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	n += n1
	if chunk.PageStart, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	n += n1
	if chunk.PageEnd, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	n += n1
	if chunk.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	n += n1
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	n += n1
	if count > 0 {
		chunk.Embedding = make([]float32, count)
		for i := 0; i < count; i++ {
			var bits uint32
			if bits, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
				return chunk, n + n1, err
			}
			chunk.Embedding[i] = math.Float32frombits(bits)
			n += n1
		}
	}
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return chunk, n + n1, err
	}
	chunk.InsertedAt = time.UnixMicro(micros).UTC()
	n += n1
	return chunk, n, nil
}
