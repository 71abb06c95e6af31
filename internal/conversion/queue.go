// Package conversion runs asynchronous template conversion jobs. Job
// payloads and job records carry identifiers and storage keys only; the
// document text itself lives in the document store.
package conversion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// queuePayload is the wire form of a conversion job. No document text.
type queuePayload struct {
	JobID        string `json:"job_id"`
	InputKey     string `json:"input_key"`
	TargetFormat string `json:"target_format"`
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("conversion: failed to encode payload: %w", err)
	}
	return payload, string(body), nil
}
