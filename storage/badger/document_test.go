// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"testing"

	"github.com/poiesic/studykit/core"
	"github.com/poiesic/studykit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDocumentRepo(t *testing.T) storage.DocumentRepository {
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	return docRepo
}

func addDocument(t *testing.T, repo storage.DocumentRepository, id string) *core.Document {
	doc, err := repo.CreateDocument(context.Background(), &core.Document{
		Id:    id,
		Title: "Test Document",
	})
	require.NoError(t, err)
	return doc
}

func TestCreateDocument_DefaultsToPending(t *testing.T) {
	repo := setupDocumentRepo(t)
	doc := addDocument(t, repo, "doc-1")

	assert.Equal(t, core.StatusPending, doc.Status)
	assert.False(t, doc.InsertedAt.IsZero())
	assert.Equal(t, doc.InsertedAt, doc.UpdatedAt)

	loaded, err := repo.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Test Document", loaded.Title)
	assert.Equal(t, core.StatusPending, loaded.Status)
}

func TestCreateDocument_DuplicateKey(t *testing.T) {
	repo := setupDocumentRepo(t)
	addDocument(t, repo, "doc-1")

	_, err := repo.CreateDocument(context.Background(), &core.Document{Id: "doc-1"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestGetDocument_NotFound(t *testing.T) {
	repo := setupDocumentRepo(t)

	_, err := repo.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProcessingLock(t *testing.T) {
	repo := setupDocumentRepo(t)
	ctx := context.Background()
	addDocument(t, repo, "doc-1")

	require.NoError(t, repo.AcquireProcessingLock(ctx, "doc-1", "run-a"))

	// A second run cannot acquire while run-a holds the lock.
	err := repo.AcquireProcessingLock(ctx, "doc-1", "run-b")
	assert.ErrorIs(t, err, storage.ErrLocked)

	// Re-acquiring with the same token is allowed.
	require.NoError(t, repo.AcquireProcessingLock(ctx, "doc-1", "run-a"))

	// Only the holder can release.
	err = repo.ReleaseProcessingLock(ctx, "doc-1", "run-b")
	assert.ErrorIs(t, err, storage.ErrLockMismatch)
	require.NoError(t, repo.ReleaseProcessingLock(ctx, "doc-1", "run-a"))

	// Released lock is free for the next run.
	require.NoError(t, repo.AcquireProcessingLock(ctx, "doc-1", "run-b"))
}

func TestReleaseProcessingLock_AlreadyUnlocked(t *testing.T) {
	repo := setupDocumentRepo(t)
	ctx := context.Background()
	addDocument(t, repo, "doc-1")

	assert.NoError(t, repo.ReleaseProcessingLock(ctx, "doc-1", "run-a"))
}

func TestStatusTransitions_SuccessfulRun(t *testing.T) {
	repo := setupDocumentRepo(t)
	ctx := context.Background()
	addDocument(t, repo, "doc-1")

	require.NoError(t, repo.MarkProcessing(ctx, "doc-1"))
	require.NoError(t, repo.SetExtractionMetadata(ctx, "doc-1", "Extracted Title", 9))
	require.NoError(t, repo.MarkCompleted(ctx, "doc-1", 42))

	doc, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, doc.Status)
	assert.Equal(t, "Extracted Title", doc.Title)
	assert.Equal(t, 9, doc.PageCount)
	assert.Equal(t, 42, doc.ChunkCount)
	assert.Empty(t, doc.ErrorMessage)
}

func TestStatusTransitions_FailedRun(t *testing.T) {
	repo := setupDocumentRepo(t)
	ctx := context.Background()
	addDocument(t, repo, "doc-1")

	require.NoError(t, repo.MarkProcessing(ctx, "doc-1"))
	require.NoError(t, repo.MarkFailed(ctx, "doc-1", "embedding service unreachable"))

	doc, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, doc.Status)
	assert.Equal(t, "embedding service unreachable", doc.ErrorMessage)
	assert.Equal(t, 0, doc.ChunkCount)

	// A fresh run clears the failure fields.
	require.NoError(t, repo.MarkProcessing(ctx, "doc-1"))
	doc, err = repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessing, doc.Status)
	assert.Empty(t, doc.ErrorMessage)
}

func TestStatusTransitions_Invalid(t *testing.T) {
	repo := setupDocumentRepo(t)
	ctx := context.Background()
	addDocument(t, repo, "doc-1")

	// Completed requires processing first.
	err := repo.MarkCompleted(ctx, "doc-1", 1)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)

	// Completed is never overwritten by a failure.
	require.NoError(t, repo.MarkProcessing(ctx, "doc-1"))
	require.NoError(t, repo.MarkCompleted(ctx, "doc-1", 1))
	err = repo.MarkFailed(ctx, "doc-1", "late failure")
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)
}

func TestMutations_NotFound(t *testing.T) {
	repo := setupDocumentRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.MarkProcessing(ctx, "missing"), storage.ErrNotFound)
	assert.ErrorIs(t, repo.AcquireProcessingLock(ctx, "missing", "tok"), storage.ErrNotFound)
}
