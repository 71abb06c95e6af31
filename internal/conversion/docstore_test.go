package conversion

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func TestDocumentStore_RoundTrip(t *testing.T) {
	api := &fakeS3{}
	store := NewDocumentStore(api, "scribe-docs", logging.New("error"))

	key, err := store.PutInput(context.Background(), "job-1", "Pt ambulating 50 ft.")
	if err != nil {
		t.Fatalf("put input: %v", err)
	}
	if !strings.Contains(key, "job-1") {
		t.Fatalf("key does not reference job: %q", key)
	}

	doc, err := store.Get(context.Background(), key)
	if err != nil || doc != "Pt ambulating 50 ft." {
		t.Fatalf("get: %q, %v", doc, err)
	}
}

func TestDocumentStore_InputAndOutputKeysDiffer(t *testing.T) {
	api := &fakeS3{}
	store := NewDocumentStore(api, "scribe-docs", logging.New("error"))

	in, err := store.PutInput(context.Background(), "job-1", "before")
	if err != nil {
		t.Fatalf("put input: %v", err)
	}
	out, err := store.PutOutput(context.Background(), "job-1", "after")
	if err != nil {
		t.Fatalf("put output: %v", err)
	}
	if in == out {
		t.Fatalf("input and output share a key: %q", in)
	}
}

func TestDocumentStore_GetMissing(t *testing.T) {
	store := NewDocumentStore(&fakeS3{}, "scribe-docs", logging.New("error"))
	if _, err := store.Get(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
