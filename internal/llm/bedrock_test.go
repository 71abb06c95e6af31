package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeConverseAPI struct {
	out   *bedrockruntime.ConverseOutput
	err   error
	input *bedrockruntime.ConverseInput
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func converseTextOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: text},
				},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(12),
			OutputTokens: aws.Int32(34),
			TotalTokens:  aws.Int32(46),
		},
	}
}

func TestBedrockComplete_MapsRequestAndResponse(t *testing.T) {
	api := &fakeConverseAPI{out: converseTextOutput("  generated note  ")}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), Request{
		Model:     "anthropic.claude-3-haiku",
		System:    []string{"you write notes"},
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: "dictation"}},
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "generated note" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 46 {
		t.Fatalf("usage not mapped: %+v", resp.Usage)
	}
	if aws.ToString(api.input.ModelId) != "anthropic.claude-3-haiku" {
		t.Fatalf("model id not forwarded")
	}
	if len(api.input.System) != 1 || len(api.input.Messages) != 1 {
		t.Fatalf("prompt not mapped: system=%d messages=%d", len(api.input.System), len(api.input.Messages))
	}
}

func TestBedrockComplete_RequiresModel(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{})
	if _, err := client.Complete(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error for missing model id")
	}
}

func TestBedrockComplete_RejectsUnknownRole(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{out: converseTextOutput("x")})
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []ChatMessage{{Role: "tool", Content: "x"}},
	})
	if err == nil {
		t.Fatalf("expected error for unsupported role")
	}
}

func TestBedrockComplete_PropagatesAPIError(t *testing.T) {
	apiErr := errors.New("throttled")
	client := NewBedrockClient(&fakeConverseAPI{err: apiErr})
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "x"}},
	})
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestBedrockComplete_EmptyOutputIsError(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{out: &bedrockruntime.ConverseOutput{}})
	_, err := client.Complete(context.Background(), Request{
		Model:    "m",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "x"}},
	})
	if err == nil {
		t.Fatalf("expected error for message-less output")
	}
}

func TestNewBedrockClient_NilAPIPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for nil api")
		}
	}()
	NewBedrockClient(nil)
}
