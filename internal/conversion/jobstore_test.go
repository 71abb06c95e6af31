package conversion

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

type fakeDynamo struct {
	putErr    error
	updateErr error
	getOut    *dynamodb.GetItemOutput
	getErr    error

	lastPut    *dynamodb.PutItemInput
	lastUpdate *dynamodb.UpdateItemInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdate = in
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getOut, f.getErr
}

func TestJobStore_PutPendingSetsLifecycleFields(t *testing.T) {
	api := &fakeDynamo{}
	store := NewJobStore(api, "conversion_jobs", logging.New("error"))

	job := &JobRecord{JobID: "job-1", TargetFormat: "narrative", InputKey: "in/job-1"}
	if err := store.PutPending(context.Background(), job); err != nil {
		t.Fatalf("put pending: %v", err)
	}
	if job.Status != JobStatusPending || job.CreatedAt == "" || job.ExpiresAt == 0 {
		t.Fatalf("lifecycle fields not set: %+v", job)
	}
	if api.lastPut == nil || api.lastPut.ConditionExpression == nil {
		t.Fatalf("expected conditional put")
	}
}

func TestJobStore_MarkCompleted(t *testing.T) {
	api := &fakeDynamo{}
	store := NewJobStore(api, "conversion_jobs", logging.New("error"))

	if err := store.MarkCompleted(context.Background(), "job-1", "out/job-1"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	status, ok := api.lastUpdate.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
	if !ok || status.Value != string(JobStatusCompleted) {
		t.Fatalf("unexpected status update: %+v", api.lastUpdate.ExpressionAttributeValues)
	}
}

func TestJobStore_GetJobNotFound(t *testing.T) {
	api := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	store := NewJobStore(api, "conversion_jobs", logging.New("error"))

	_, err := store.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobStore_GetJobDecodes(t *testing.T) {
	api := &fakeDynamo{getOut: &dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			"jobId":        &types.AttributeValueMemberS{Value: "job-1"},
			"status":       &types.AttributeValueMemberS{Value: string(JobStatusCompleted)},
			"targetFormat": &types.AttributeValueMemberS{Value: "narrative"},
			"outputKey":    &types.AttributeValueMemberS{Value: "out/job-1"},
		},
	}}
	store := NewJobStore(api, "conversion_jobs", logging.New("error"))

	job, err := store.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobStatusCompleted || job.OutputKey != "out/job-1" {
		t.Fatalf("unexpected job: %+v", job)
	}
}
