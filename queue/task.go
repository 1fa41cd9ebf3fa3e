package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeDocumentReprocess identifies a document reprocess task.
const TaskTypeDocumentReprocess = "document:reprocess"

type reprocessPayload struct {
	DocumentID string `json:"document_id"`
}

func newReprocessTask(documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(reprocessPayload{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeDocumentReprocess, payload), nil
}
