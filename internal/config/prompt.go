package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds every prompt and reply template used by the assistant.
// Fields left empty in prompt.yaml keep their default wording.
type PromptConfig struct {
	// Language model system prompts
	Extract   string `yaml:"extract"`
	Intention string `yaml:"intention"`
	Analysis  string `yaml:"analysis"`

	// Reply templates
	Clarification    string `yaml:"clarification"`
	MissingPatient   string `yaml:"missing_patient"`
	MissingFormat    string `yaml:"missing_format"`
	NotFound         string `yaml:"not_found"`
	NotFoundHint     string `yaml:"not_found_hint"`
	NotFoundOverflow string `yaml:"not_found_overflow"`
	FollowUp         string `yaml:"follow_up"`
	Ambiguous        string `yaml:"ambiguous"`
	NoData           string `yaml:"no_data"`
	AnalysisFailed   string `yaml:"analysis_failed"`
	ExportFailed     string `yaml:"export_failed"`
}

// DefaultPromptConfig returns default prompt configuration
func DefaultPromptConfig() *PromptConfig {
	return &PromptConfig{
		Extract: `<< Task >>
You are an assistant that analyzes user queries about diabetic patient glucose data.
Extract the following information from the query:
1. Patient ID being requested (e.g., "032", "001", etc.)
2. Format requested: "raw" for data or "figure" for visualization

[Rule 1] If the user doesn't specify one of these, leave it as an empty string.
[Rule 2] Make sure the patient ID and format are exactly specified by the user, otherwise leave it as an empty string.
[Rule 3] The format needs to be exactly specified in the user's latest message, otherwise leave it as an empty string.
[Rule 4] If the user only said "give me the data of patient xxx", the format is not specified and must be an empty string.

<< Output Format >>
Return a JSON object with these keys:
{
    "patient_id": "",
    "format": ""
}
"patient_id" is the patient ID or an empty string; "format" is "raw", "figure" or an empty string.`,
		Intention: `<< Task >>
You are an assistant analyzing a user's response after they've been shown glucose data for a patient.
Determine if the user wants:
1. To analyze the current patient data further
2. To retrieve data for a different patient

[Rule 1] The user needs to clearly ask for analysis of the current data or for data of a different patient in order to be considered as an intention.

<< Output Format >>
Return a JSON object with these keys:
{
    "explanation": "",
    "intention": ""
}
"explanation" says why you think the user wants this; "intention" is "analyze_current" or "retrieve_new".`,
		Analysis: `<< Task >>
You are a specialized assistant with expertise in analyzing glucose monitoring data.
You are currently analyzing data for a specific patient. Answer the user's questions about the data and provide helpful insights about:

1. Patterns in glucose levels
2. Potential anomalies or areas of concern
3. General trends (rising, falling, stable)
4. Correlations with other data points (if available)

Be conversational and helpful. If you don't have enough information to make a specific analysis, ask clarifying questions or suggest what additional data might be helpful.`,
		Clarification:    "To help you better, I need a bit more information:\n%s\n\nPlease provide the missing details so I can assist you properly.",
		MissingPatient:   "- Please specify which patient's data you'd like to see (e.g., patient 032)",
		MissingFormat:    "- Please specify if you want to see the raw data or a visual figure",
		NotFound:         "I'm sorry, but I couldn't find data for patient %s.\nAvailable patient IDs are: %s.\nPlease specify a valid patient ID.",
		NotFoundHint:     "Please provide another patient ID from the list above. For example: 'Show me data for patient 015'",
		NotFoundOverflow: "Note: I've shown only the first %d patient IDs. There are %d patients available in total.",
		FollowUp:         "I can help you analyze this data further, or I can retrieve data for another patient. What would you like to do?",
		Ambiguous:        "I'm not sure what you'd like to do. Would you like to analyze this patient's data further, or retrieve data for a different patient?",
		NoData:           "I don't have any patient data to analyze. Please specify which patient's data you'd like to see.",
		AnalysisFailed:   "Sorry, I couldn't analyze the data right now. You can ask again, or request data for another patient.",
		ExportFailed:     "Sorry, I couldn't export the conversation. Please try again.",
	}
}

// PromptConfigPath returns the prompt config file path
func PromptConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prompt.yaml"), nil
}

// LoadPromptConfig loads prompt overrides from prompt.yaml on top of the defaults
func LoadPromptConfig() (*PromptConfig, error) {
	configPath, err := PromptConfigPath()
	if err != nil {
		return DefaultPromptConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultPromptConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt config: %w", err)
	}

	overrides := &PromptConfig{}
	if err := yaml.Unmarshal(data, overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompt config: %w", err)
	}

	return DefaultPromptConfig().merge(overrides), nil
}

// merge copies every non-empty field of o over p
func (p *PromptConfig) merge(o *PromptConfig) *PromptConfig {
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&p.Extract, o.Extract)
	pick(&p.Intention, o.Intention)
	pick(&p.Analysis, o.Analysis)
	pick(&p.Clarification, o.Clarification)
	pick(&p.MissingPatient, o.MissingPatient)
	pick(&p.MissingFormat, o.MissingFormat)
	pick(&p.NotFound, o.NotFound)
	pick(&p.NotFoundHint, o.NotFoundHint)
	pick(&p.NotFoundOverflow, o.NotFoundOverflow)
	pick(&p.FollowUp, o.FollowUp)
	pick(&p.Ambiguous, o.Ambiguous)
	pick(&p.NoData, o.NoData)
	pick(&p.AnalysisFailed, o.AnalysisFailed)
	pick(&p.ExportFailed, o.ExportFailed)
	return p
}
