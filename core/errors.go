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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyDocumentID indicates the document ID is empty.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrEmptyContent indicates the chunk Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidChunkIndex indicates a negative chunk index.
	ErrInvalidChunkIndex = errors.New("chunk index cannot be negative")

	// ErrInvalidPageRange indicates pageStart > pageEnd or a page number < 1.
	ErrInvalidPageRange = errors.New("invalid page range")

	// ErrInvalidStatus indicates an invalid ProcessingStatus value.
	ErrInvalidStatus = errors.New("invalid processing status")
)
