package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/studykit/core"
	"github.com/poiesic/studykit/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	return &DocumentRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *DocumentRepository) Close() error {
	return nil
}

// CreateDocument adds a new document row.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc != nil && doc.Status == 0 {
		doc.Status = core.StatusPending
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)
		existing, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		doc.InsertedAt = time.Now().UTC()
		doc.UpdatedAt = doc.InsertedAt

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = r.readDocument(tx, makeDocumentKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// AcquireProcessingLock atomically sets the document's lock token.
// The check-and-set runs inside a single write transaction, so two
// concurrent runs for the same document cannot both acquire the lock.
func (r *DocumentRepository) AcquireProcessingLock(ctx context.Context, id, token string) error {
	return r.mutateDocument(id, func(doc *core.Document) error {
		if doc.LockToken != "" && doc.LockToken != token {
			return storage.ErrLocked
		}
		doc.LockToken = token
		return nil
	})
}

// ReleaseProcessingLock clears the lock token.
func (r *DocumentRepository) ReleaseProcessingLock(ctx context.Context, id, token string) error {
	return r.mutateDocument(id, func(doc *core.Document) error {
		if doc.LockToken == "" {
			return nil
		}
		if doc.LockToken != token {
			return storage.ErrLockMismatch
		}
		doc.LockToken = ""
		return nil
	})
}

// MarkProcessing transitions the document into the processing state.
func (r *DocumentRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.mutateDocument(id, func(doc *core.Document) error {
		if !doc.Status.CanTransitionTo(core.StatusProcessing) {
			return transitionError(doc.Status, core.StatusProcessing)
		}
		doc.Status = core.StatusProcessing
		doc.ChunkCount = 0
		doc.ErrorMessage = ""
		return nil
	})
}

// SetExtractionMetadata records the page count and title from extraction.
func (r *DocumentRepository) SetExtractionMetadata(ctx context.Context, id, title string, pageCount int) error {
	return r.mutateDocument(id, func(doc *core.Document) error {
		if title != "" {
			doc.Title = title
		}
		doc.PageCount = pageCount
		return nil
	})
}

// MarkCompleted transitions the document to completed with its chunk count.
func (r *DocumentRepository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	return r.mutateDocument(id, func(doc *core.Document) error {
		if !doc.Status.CanTransitionTo(core.StatusCompleted) {
			return transitionError(doc.Status, core.StatusCompleted)
		}
		doc.Status = core.StatusCompleted
		doc.ChunkCount = chunkCount
		doc.ErrorMessage = ""
		return nil
	})
}

// MarkFailed transitions the document to failed with an error message.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id, message string) error {
	return r.mutateDocument(id, func(doc *core.Document) error {
		if !doc.Status.CanTransitionTo(core.StatusFailed) {
			return transitionError(doc.Status, core.StatusFailed)
		}
		doc.Status = core.StatusFailed
		doc.ChunkCount = 0
		doc.ErrorMessage = message
		return nil
	})
}

// mutateDocument applies fn to the stored row inside one write
// transaction and persists the result with a fresh UpdatedAt.
func (r *DocumentRepository) mutateDocument(id string, fn func(doc *core.Document) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := fn(doc); err != nil {
			return err
		}
		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads and deserializes a document row.
// Returns nil, nil if the key doesn't exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func transitionError(from, to core.ProcessingStatus) error {
	return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, from, to)
}
