package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/glucobot/glucobot/internal/action"
	"github.com/glucobot/glucobot/internal/config"
	"github.com/glucobot/glucobot/internal/dataset"
	"github.com/glucobot/glucobot/internal/export"
	"github.com/glucobot/glucobot/internal/logger"
	"github.com/glucobot/glucobot/internal/memory"
)

const (
	// maxReentry bounds how often one external turn may re-enter INITIAL
	// handling
	maxReentry = 1

	// notFoundSample is how many catalog ids a not-found reply lists
	notFoundSample = 10
)

// exportKeywords trigger a conversation export from any state
var exportKeywords = []string{"pdf", "export", "save conversation", "export conversation"}

// Catalog resolves patient ids
type Catalog interface {
	Lookup(id string) (string, bool)
	Sample(n int) []string
	Len() int
}

// DataLoader loads a patient's dataset
type DataLoader interface {
	Load(patientID string) (*dataset.Dataset, error)
}

// Dispatcher produces the artifact for a resolved request
type Dispatcher interface {
	Dispatch(ctx context.Context, req action.Request) string
}

// Exporter writes the conversation log
type Exporter interface {
	Export(ctx context.Context, turns []memory.Turn, patientID string) (*export.Result, error)
}

// Components are the collaborators the machine consults
type Components struct {
	Catalog    Catalog
	Loader     DataLoader
	Extractor  Extractor
	Classifier Classifier
	Analyst    Analyst
	Dispatcher Dispatcher
	Exporter   Exporter
}

// Machine is the dialogue state machine. It is not safe for concurrent use;
// one utterance is processed at a time.
type Machine struct {
	c         Components
	prompts   *config.PromptConfig
	memory    *memory.Conversation
	state     State
	ctx       Context
	reentries int
}

// Option configures a Machine
type Option func(*Machine)

// WithPrompts overrides the reply templates
func WithPrompts(p *config.PromptConfig) Option {
	return func(m *Machine) { m.prompts = p }
}

// WithMemory uses conv as the conversation memory
func WithMemory(conv *memory.Conversation) Option {
	return func(m *Machine) { m.memory = conv }
}

// New creates a Machine in INITIAL state
func New(c Components, opts ...Option) *Machine {
	m := &Machine{
		c:       c,
		prompts: config.DefaultPromptConfig(),
		memory:  memory.NewConversation(memory.DefaultMaxTurns),
		state:   StateInitial,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Context returns a copy of the dialogue context
func (m *Machine) Context() Context {
	out := m.ctx
	out.Missing = append([]Slot(nil), m.ctx.Missing...)
	if m.ctx.Active != nil {
		sel := *m.ctx.Active
		out.Active = &sel
	}
	return out
}

// Memory returns the conversation memory
func (m *Machine) Memory() *memory.Conversation {
	return m.memory
}

// Reset returns to INITIAL with an empty context and memory
func (m *Machine) Reset() {
	m.state = StateInitial
	m.ctx.Reset()
	m.memory = memory.NewConversation(m.memory.Cap())
}

// Process handles one user utterance and returns the reply. Collaborator
// failures are turned into replies, never returned.
func (m *Machine) Process(ctx context.Context, utterance string) string {
	m.memory.Append(memory.RoleUser, utterance)
	m.reentries = 0

	var reply string
	if isExportRequest(utterance) {
		reply = m.export(ctx)
	} else {
		reply = m.dispatch(ctx, utterance)
	}

	m.memory.Append(memory.RoleBot, reply)
	return reply
}

func (m *Machine) dispatch(ctx context.Context, utterance string) string {
	switch m.state {
	case StateInitial:
		return m.handleInitial(ctx, utterance)
	case StateNeedsClarification:
		return m.handleClarification(ctx, utterance)
	case StateDataRetrieved:
		return m.handleDataRetrieved(ctx, utterance)
	case StateAnalyzingData:
		return m.handleAnalysis(ctx, utterance)
	default:
		logger.Warn().Str("state", m.state.String()).Msg("unknown state, falling back to INITIAL")
		m.transition(StateInitial)
		return m.handleInitial(ctx, utterance)
	}
}

func (m *Machine) handleInitial(ctx context.Context, utterance string) string {
	slots := m.ctx.Partial.Merge(m.extract(ctx, utterance))
	m.ctx.Partial = slots

	if missing := slots.Missing(); len(missing) > 0 {
		m.ctx.Missing = missing
		m.transition(StateNeedsClarification)
		return m.clarification(missing)
	}
	m.ctx.Missing = nil

	patientID, ok := m.c.Catalog.Lookup(slots.PatientID)
	if !ok {
		logger.Info().Str("patient_id", slots.PatientID).Msg("patient not found")
		return m.notFound(slots.PatientID)
	}

	data := m.load(patientID)
	m.ctx.Partial = SlotSet{}
	m.ctx.Active = &Selection{PatientID: patientID, Format: slots.Format, Data: data}
	m.transition(StateDataRetrieved)

	reply := m.c.Dispatcher.Dispatch(ctx, action.Request{
		PatientID: patientID,
		Format:    slots.Format,
		Data:      data,
	})
	return reply + "\n\n" + m.prompts.FollowUp
}

func (m *Machine) handleClarification(ctx context.Context, utterance string) string {
	slots := m.ctx.Partial.Merge(m.extract(ctx, utterance))
	m.ctx.Partial = slots

	var stillMissing []Slot
	for _, slot := range m.ctx.Missing {
		if !slots.Has(slot) {
			stillMissing = append(stillMissing, slot)
		}
	}
	if len(stillMissing) > 0 {
		m.ctx.Missing = stillMissing
		return m.clarification(stillMissing)
	}
	m.ctx.Missing = nil

	canonical := fmt.Sprintf("Get %s data for patient %s", slots.Format, slots.PatientID)
	return m.reenter(ctx, canonical)
}

func (m *Machine) handleDataRetrieved(ctx context.Context, utterance string) string {
	intention, err := m.c.Classifier.Classify(ctx, ClassifyRequest{
		Utterance: utterance,
		History:   m.memory.Render(),
		PatientID: m.ctx.ActivePatientID(),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("intention classification failed")
		intention = IntentionUnknown
	}
	logger.Debug().Str("intention", string(intention)).Msg("classified intention")

	switch intention {
	case IntentionAnalyzeCurrent:
		m.transition(StateAnalyzingData)
		return m.handleAnalysis(ctx, utterance)
	case IntentionRetrieveNew:
		m.transition(StateInitial)
		m.ctx.Reset()
		m.ctx.Partial = m.extract(ctx, utterance)
		return m.reenter(ctx, utterance)
	default:
		return m.prompts.Ambiguous
	}
}

func (m *Machine) handleAnalysis(ctx context.Context, utterance string) string {
	sel := m.ctx.Active
	if sel == nil || sel.PatientID == "" || sel.Data.Empty() {
		m.transition(StateInitial)
		return m.prompts.NoData
	}

	answer, err := m.c.Analyst.Analyze(ctx, AnalysisRequest{
		PatientID: sel.PatientID,
		Summary:   dataset.Summarize(sel.Data).String(),
		History:   m.memory.Render(),
		Utterance: utterance,
	})
	m.transition(StateDataRetrieved)
	if err != nil {
		logger.Error().Err(err).Str("patient_id", sel.PatientID).Msg("analysis failed")
		return m.prompts.AnalysisFailed
	}
	return answer
}

// reenter runs INITIAL handling again within the same external turn
func (m *Machine) reenter(ctx context.Context, utterance string) string {
	if m.reentries >= maxReentry {
		logger.Warn().Int("reentries", m.reentries).Msg("re-entry limit reached")
		missing := m.ctx.Partial.Missing()
		if len(missing) == 0 {
			missing = []Slot{SlotPatientID, SlotFormat}
		}
		return m.clarification(missing)
	}
	m.reentries++
	m.transition(StateInitial)
	return m.handleInitial(ctx, utterance)
}

func (m *Machine) extract(ctx context.Context, utterance string) SlotSet {
	slots, err := m.c.Extractor.Extract(ctx, utterance, m.memory.Render())
	if err != nil {
		logger.Warn().Err(err).Msg("slot extraction failed, treating slots as unresolved")
		return SlotSet{}
	}
	logger.Debug().
		Str("patient_id", slots.PatientID).
		Str("format", string(slots.Format)).
		Msg("extracted slots")
	return slots
}

func (m *Machine) load(patientID string) *dataset.Dataset {
	data, err := m.c.Loader.Load(patientID)
	if err != nil {
		logger.Warn().Err(err).Str("patient_id", patientID).Msg("no dataset for patient")
		return nil
	}
	return data
}

func (m *Machine) export(ctx context.Context) string {
	if m.c.Exporter == nil {
		return export.EmptyMessage
	}
	result, err := m.c.Exporter.Export(ctx, m.memory.Turns(), m.ctx.ActivePatientID())
	if err != nil {
		logger.Error().Err(err).Msg("conversation export failed")
		return m.prompts.ExportFailed
	}
	return result.Message
}

func (m *Machine) transition(next State) {
	if next == m.state {
		return
	}
	logger.Debug().
		Str("state", m.state.String()).
		Str("next", next.String()).
		Str("patient_id", m.ctx.ActivePatientID()).
		Str("missing", slotNames(m.ctx.Missing)).
		Msg("state transition")
	m.state = next
}

func (m *Machine) clarification(missing []Slot) string {
	var lines []string
	for _, slot := range missing {
		switch slot {
		case SlotPatientID:
			lines = append(lines, m.prompts.MissingPatient)
		case SlotFormat:
			lines = append(lines, m.prompts.MissingFormat)
		}
	}
	return fmt.Sprintf(m.prompts.Clarification, strings.Join(lines, "\n"))
}

func (m *Machine) notFound(patientID string) string {
	ids := strings.Join(m.c.Catalog.Sample(notFoundSample), ", ")
	reply := fmt.Sprintf(m.prompts.NotFound, patientID, ids) + "\n\n" + m.prompts.NotFoundHint
	if total := m.c.Catalog.Len(); total > notFoundSample {
		reply += "\n\n" + fmt.Sprintf(m.prompts.NotFoundOverflow, notFoundSample, total)
	}
	return reply
}

func isExportRequest(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, kw := range exportKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
