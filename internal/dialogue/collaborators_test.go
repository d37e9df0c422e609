package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/glucobot/glucobot/internal/action"
	"github.com/glucobot/glucobot/internal/config"
	"github.com/glucobot/glucobot/internal/llm"
)

type fakeCaller struct {
	result   *llm.Result
	err      error
	requests []llm.CallRequest
}

func (f *fakeCaller) Call(_ context.Context, req llm.CallRequest) (*llm.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func TestLLMExtractor(t *testing.T) {
	prompts := config.DefaultPromptConfig()

	t.Run("resolves both slots", func(t *testing.T) {
		caller := &fakeCaller{result: &llm.Result{Fields: map[string]any{"patient_id": "032", "format": "FIGURE"}}}
		e := NewLLMExtractor(caller, "small-model", prompts)

		slots, err := e.Extract(context.Background(), "figure for 032", "\n\nRecent conversation:\nUser: hi\n")
		gt.NoError(t, err)
		gt.Equal(t, slots, SlotSet{PatientID: "032", Format: action.FormatFigure})

		req := caller.requests[0]
		gt.Equal(t, req.Model, "small-model")
		gt.Equal(t, req.Mode, llm.ModeJSON)
		gt.Equal(t, req.SystemPrompt, prompts.Extract)
		gt.S(t, req.UserPrompt).Contains("User: hi")
		gt.S(t, req.UserPrompt).Contains("Current query: figure for 032")
	})

	t.Run("unexpected format stays unresolved", func(t *testing.T) {
		caller := &fakeCaller{result: &llm.Result{Fields: map[string]any{"patient_id": "", "format": "chart"}}}
		slots, err := NewLLMExtractor(caller, "", prompts).Extract(context.Background(), "a chart", "")
		gt.NoError(t, err)
		gt.Equal(t, slots, SlotSet{})
	})

	t.Run("missing keys", func(t *testing.T) {
		caller := &fakeCaller{result: &llm.Result{Fields: map[string]any{"explanation": "none"}}}
		slots, err := NewLLMExtractor(caller, "", prompts).Extract(context.Background(), "hello", "")
		gt.NoError(t, err)
		gt.False(t, slots.Complete())
		gt.Equal(t, slots.Missing(), []Slot{SlotPatientID, SlotFormat})
	})

	t.Run("call failure", func(t *testing.T) {
		caller := &fakeCaller{err: llm.ErrMalformedOutput}
		_, err := NewLLMExtractor(caller, "", prompts).Extract(context.Background(), "hello", "")
		gt.True(t, errors.Is(err, llm.ErrMalformedOutput))
	})
}

func TestLLMClassifier(t *testing.T) {
	prompts := config.DefaultPromptConfig()

	testCases := []struct {
		label string
		want  Intention
	}{
		{"analyze_current", IntentionAnalyzeCurrent},
		{"Retrieve_New", IntentionRetrieveNew},
		{"something_else", IntentionUnknown},
		{"", IntentionUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			caller := &fakeCaller{result: &llm.Result{Fields: map[string]any{"explanation": "x", "intention": tc.label}}}
			c := NewLLMClassifier(caller, "small-model", prompts)

			got, err := c.Classify(context.Background(), ClassifyRequest{
				Utterance: "what about patient 040?",
				History:   "\n\nRecent conversation:\nBot: here you go\n",
				PatientID: "001",
			})
			gt.NoError(t, err)
			gt.Equal(t, got, tc.want)

			req := caller.requests[0]
			gt.Equal(t, req.Mode, llm.ModeJSON)
			gt.Equal(t, req.SystemPrompt, prompts.Intention)
			gt.S(t, req.UserPrompt).Contains("glucose data for patient 001.")
			gt.S(t, req.UserPrompt).Contains("Bot: here you go")
			gt.S(t, req.UserPrompt).Contains("User message: what about patient 040?")
		})
	}

	t.Run("call failure", func(t *testing.T) {
		caller := &fakeCaller{err: errors.New("unavailable")}
		got, err := NewLLMClassifier(caller, "", prompts).Classify(context.Background(), ClassifyRequest{})
		gt.Error(t, err)
		gt.Equal(t, got, IntentionUnknown)
	})
}

func TestLLMAnalyst(t *testing.T) {
	prompts := config.DefaultPromptConfig()
	caller := &fakeCaller{result: &llm.Result{Text: "  Mostly in range.\n"}}
	a := NewLLMAnalyst(caller, "big-model", prompts)

	answer, err := a.Analyze(context.Background(), AnalysisRequest{
		PatientID: "007",
		Summary:   "Number of readings: 3",
		Utterance: "how stable is it?",
	})
	gt.NoError(t, err)
	gt.Equal(t, answer, "Mostly in range.")

	req := caller.requests[0]
	gt.Equal(t, req.Model, "big-model")
	gt.Equal(t, req.Mode, llm.ModeText)
	gt.Equal(t, req.SystemPrompt, prompts.Analysis)
	gt.S(t, req.UserPrompt).Contains("Data for patient 007:\nNumber of readings: 3")
	gt.S(t, req.UserPrompt).Contains("Current query: how stable is it?")

	caller.err = errors.New("quota")
	_, err = a.Analyze(context.Background(), AnalysisRequest{PatientID: "007"})
	gt.Error(t, err)
}
