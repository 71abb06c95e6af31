package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

func TestFallbackClient_PrimarySucceeds(t *testing.T) {
	primary := &scriptedClient{resp: Response{Text: "primary"}}
	fallback := &scriptedClient{resp: Response{Text: "fallback"}}
	c := NewFallbackClient(primary, fallback, logging.New("error"))

	resp, err := c.Complete(context.Background(), Request{Model: "m"})
	if err != nil || resp.Text != "primary" {
		t.Fatalf("expected primary response, got %q, %v", resp.Text, err)
	}
	if len(fallback.reqs) != 0 {
		t.Fatalf("fallback called despite primary success")
	}
}

func TestFallbackClient_FallsBackOnPrimaryError(t *testing.T) {
	primary := &scriptedClient{err: errors.New("throttled")}
	fallback := &scriptedClient{resp: Response{Text: "fallback"}}
	c := NewFallbackClient(primary, fallback, logging.New("error"))

	resp, err := c.Complete(context.Background(), Request{Model: "m"})
	if err != nil || resp.Text != "fallback" {
		t.Fatalf("expected fallback response, got %q, %v", resp.Text, err)
	}
}

func TestFallbackClient_NoFallbackReturnsPrimaryError(t *testing.T) {
	primaryErr := errors.New("throttled")
	c := NewFallbackClient(&scriptedClient{err: primaryErr}, nil, logging.New("error"))

	_, err := c.Complete(context.Background(), Request{Model: "m"})
	if !errors.Is(err, primaryErr) {
		t.Fatalf("expected primary error, got %v", err)
	}
}

func TestFallbackClient_SkipsFallbackWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &scriptedClient{err: context.Canceled}
	fallback := &scriptedClient{resp: Response{Text: "fallback"}}
	c := NewFallbackClient(primary, fallback, logging.New("error"))

	if _, err := c.Complete(ctx, Request{Model: "m"}); err == nil {
		t.Fatalf("expected error for dead context")
	}
	if len(fallback.reqs) != 0 {
		t.Fatalf("fallback attempted with dead context")
	}
}
