package queue

import "errors"

var (
	// ErrProcessFuncRequired is returned when a worker is created without
	// a process function.
	ErrProcessFuncRequired = errors.New("process function required")

	// ErrEmptyDocumentID is returned when a task names no document.
	ErrEmptyDocumentID = errors.New("task payload has empty document id")
)
