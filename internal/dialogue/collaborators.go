package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/glucobot/glucobot/internal/action"
	"github.com/glucobot/glucobot/internal/config"
	"github.com/glucobot/glucobot/internal/llm"
)

// Intention label returned by the classifier
type Intention string

const (
	IntentionUnknown        Intention = ""
	IntentionAnalyzeCurrent Intention = "analyze_current"
	IntentionRetrieveNew    Intention = "retrieve_new"
)

// Extractor guesses slot values from an utterance
type Extractor interface {
	Extract(ctx context.Context, utterance, history string) (SlotSet, error)
}

// ClassifyRequest input of the intention classifier
type ClassifyRequest struct {
	Utterance string
	History   string
	PatientID string
}

// Classifier labels what the user wants after data was shown
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (Intention, error)
}

// AnalysisRequest input of the analyst
type AnalysisRequest struct {
	PatientID string
	Summary   string
	History   string
	Utterance string
}

// Analyst answers free-form questions about the active dataset
type Analyst interface {
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
}

// LLMExtractor extracts slots with a structured language-model call
type LLMExtractor struct {
	caller llm.Caller
	model  string
	prompt string
}

// NewLLMExtractor creates an LLMExtractor
func NewLLMExtractor(caller llm.Caller, model string, prompts *config.PromptConfig) *LLMExtractor {
	return &LLMExtractor{caller: caller, model: model, prompt: prompts.Extract}
}

// Extract implements Extractor. Missing or unexpected keys yield empty slots.
func (e *LLMExtractor) Extract(ctx context.Context, utterance, history string) (SlotSet, error) {
	res, err := e.caller.Call(ctx, llm.CallRequest{
		Model:        e.model,
		SystemPrompt: e.prompt,
		UserPrompt:   fmt.Sprintf("%s\nCurrent query: %s", history, utterance),
		Mode:         llm.ModeJSON,
	})
	if err != nil {
		return SlotSet{}, err
	}

	return SlotSet{
		PatientID: res.String("patient_id"),
		Format:    action.ParseFormat(res.String("format")),
	}, nil
}

// LLMClassifier classifies intentions with a structured language-model call
type LLMClassifier struct {
	caller llm.Caller
	model  string
	prompt string
}

// NewLLMClassifier creates an LLMClassifier
func NewLLMClassifier(caller llm.Caller, model string, prompts *config.PromptConfig) *LLMClassifier {
	return &LLMClassifier{caller: caller, model: model, prompt: prompts.Intention}
}

// Classify implements Classifier. Labels other than the two known ones
// come back as IntentionUnknown.
func (c *LLMClassifier) Classify(ctx context.Context, req ClassifyRequest) (Intention, error) {
	prompt := fmt.Sprintf("The user has just viewed glucose data for patient %s.%s\nUser message: %s",
		req.PatientID, req.History, req.Utterance)

	res, err := c.caller.Call(ctx, llm.CallRequest{
		Model:        c.model,
		SystemPrompt: c.prompt,
		UserPrompt:   prompt,
		Mode:         llm.ModeJSON,
	})
	if err != nil {
		return IntentionUnknown, err
	}

	switch Intention(strings.ToLower(res.String("intention"))) {
	case IntentionAnalyzeCurrent:
		return IntentionAnalyzeCurrent, nil
	case IntentionRetrieveNew:
		return IntentionRetrieveNew, nil
	default:
		return IntentionUnknown, nil
	}
}

// LLMAnalyst answers analysis questions with a free-text language-model call
type LLMAnalyst struct {
	caller llm.Caller
	model  string
	prompt string
}

// NewLLMAnalyst creates an LLMAnalyst
func NewLLMAnalyst(caller llm.Caller, model string, prompts *config.PromptConfig) *LLMAnalyst {
	return &LLMAnalyst{caller: caller, model: model, prompt: prompts.Analysis}
}

// Analyze implements Analyst
func (a *LLMAnalyst) Analyze(ctx context.Context, req AnalysisRequest) (string, error) {
	prompt := fmt.Sprintf("Data for patient %s:\n%s\n%s\nCurrent query: %s",
		req.PatientID, req.Summary, req.History, req.Utterance)

	res, err := a.caller.Call(ctx, llm.CallRequest{
		Model:        a.model,
		SystemPrompt: a.prompt,
		UserPrompt:   prompt,
		Mode:         llm.ModeText,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}
