package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	reply    string
	err      error
	received []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestChatModelCaller_Text(t *testing.T) {
	fake := &fakeChatModel{reply: "Glucose looks stable."}
	caller := NewChatModelCaller(fake, "gemini-test")

	result, err := caller.Call(context.Background(), CallRequest{
		SystemPrompt: "analyze",
		UserPrompt:   "how is it?",
		Mode:         ModeText,
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result.Text != "Glucose looks stable." {
		t.Errorf("Unexpected text: %q", result.Text)
	}
	if len(fake.received) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(fake.received))
	}
	if fake.received[0].Role != schema.System || fake.received[0].Content != "analyze" {
		t.Errorf("Unexpected system message: %+v", fake.received[0])
	}
	if fake.received[1].Role != schema.User || fake.received[1].Content != "how is it?" {
		t.Errorf("Unexpected user message: %+v", fake.received[1])
	}
}

func TestChatModelCaller_JSON(t *testing.T) {
	fake := &fakeChatModel{reply: "```json\n{\"patient_id\": \"001\", \"format\": \"\"}\n```"}
	caller := NewChatModelCaller(fake, "gemini-test")

	result, err := caller.Call(context.Background(), CallRequest{UserPrompt: "patient 1", Mode: ModeJSON})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result.String("patient_id") != "001" {
		t.Errorf("Expected patient_id 001, got %q", result.String("patient_id"))
	}
	if result.String("format") != "" {
		t.Errorf("Expected empty format, got %q", result.String("format"))
	}
}

func TestChatModelCaller_Error(t *testing.T) {
	boom := errors.New("boom")
	caller := NewChatModelCaller(&fakeChatModel{err: boom}, "gemini-test")

	_, err := caller.Call(context.Background(), CallRequest{UserPrompt: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped error, got %v", err)
	}
}
