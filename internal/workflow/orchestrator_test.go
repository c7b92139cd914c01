package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evernook/solace/internal/domain"
)

// fakeIntel scripts the model boundary: Analyze and Respond return the
// configured payloads and count invocations.
type fakeIntel struct {
	mu           sync.Mutex
	analysis     string
	analysisErr  error
	response     string
	responseErr  error
	analyzeCalls int
	respondCalls int
	prompts      []string
}

func (f *fakeIntel) Analyze(ctx context.Context, message, contextJSON string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	return f.analysis, f.analysisErr
}

func (f *fakeIntel) Respond(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respondCalls++
	f.prompts = append(f.prompts, prompt)
	return f.response, f.responseErr
}

type fakeSink struct {
	mu     sync.Mutex
	alerts []Alert
}

func (f *fakeSink) Notify(_ context.Context, alert Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
}

type fakeReports struct {
	saved map[string]domain.SessionReport
	err   error
}

func (f *fakeReports) SaveSessionReport(_ context.Context, sessionID string, report domain.SessionReport) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]domain.SessionReport)
	}
	f.saved[sessionID] = report
	return nil
}

type fakeRecs struct {
	saved map[int64][]domain.ActivityRecommendation
	err   error
}

func (f *fakeRecs) SaveRecommendations(_ context.Context, userID int64, recs []domain.ActivityRecommendation) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[int64][]domain.ActivityRecommendation)
	}
	f.saved[userID] = recs
	return nil
}

func newTestOrchestrator(intel *fakeIntel) (*Orchestrator, *fakeSink, *fakeReports, *fakeRecs) {
	sink := &fakeSink{}
	reports := &fakeReports{}
	recs := &fakeRecs{}
	o := NewOrchestrator(intel, sink, NewRiskEvaluator(), reports, recs)
	return o, sink, reports, recs
}

func newTestRun(t *testing.T, store StepStore, id string) *Run {
	t.Helper()
	run, err := NewRun(context.Background(), store, "test/event", id)
	require.NoError(t, err)
	return run
}

func TestProcessMessageHappyPath(t *testing.T) {
	intel := &fakeIntel{
		analysis: `{"emotionalState":"anxious","themes":["work"],"riskLevel":2,"recommendedApproach":"grounding"}`,
		response: "That sounds stressful. Let's slow down together.",
	}
	o, sink, _, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	res := o.ProcessMessage(context.Background(), run, ProcessMessageInput{
		SessionID: "sess-1",
		Message:   "Work is crushing me lately.",
		Memory:    domain.NewMemory(),
	})

	assert.Equal(t, "That sounds stressful. Let's slow down together.", res.Response)
	assert.Equal(t, "anxious", res.Analysis.EmotionalState)
	assert.Equal(t, []string{"anxious"}, res.UpdatedMemory.UserProfile.EmotionalState)
	assert.Equal(t, []string{"work"}, res.UpdatedMemory.SessionContext.ConversationThemes)
	require.NotNil(t, res.UpdatedMemory.SessionContext.CurrentTechnique)
	assert.Equal(t, "grounding", *res.UpdatedMemory.SessionContext.CurrentTechnique)
	assert.Empty(t, sink.alerts, "risk 2 must not alert")
}

func TestProcessMessageMalformedAnalysisFallsBackToNeutral(t *testing.T) {
	intel := &fakeIntel{
		analysis: "The user seems upset, I would say quite a lot.",
		response: "I hear you.",
	}
	o, sink, _, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	res := o.ProcessMessage(context.Background(), run, ProcessMessageInput{
		SessionID: "sess-1",
		Message:   "hey",
		Memory:    domain.NewMemory(),
	})

	assert.Equal(t, domain.NeutralInsight(), res.Analysis)
	assert.Equal(t, "I hear you.", res.Response, "a malformed analysis must still produce a reply")
	assert.Equal(t, []string{"neutral"}, res.UpdatedMemory.UserProfile.EmotionalState)
	assert.Empty(t, sink.alerts)
}

func TestProcessMessageHighRiskAlertsExactlyOnce(t *testing.T) {
	intel := &fakeIntel{
		analysis: `{"emotionalState":"despairing","riskLevel":6}`,
		response: "I'm really glad you told me.",
	}
	o, sink, _, _ := newTestOrchestrator(intel)
	store := NewMemoryStepStore()

	in := ProcessMessageInput{
		SessionID: "sess-1",
		Message:   "I can't see a way forward.",
		Memory:    domain.NewMemory(),
	}

	run := newTestRun(t, store, "run-1")
	res := o.ProcessMessage(context.Background(), run, in)

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, AlertRisk, sink.alerts[0].Kind)
	assert.Equal(t, "sess-1", sink.alerts[0].SessionID)
	assert.Equal(t, 6, sink.alerts[0].RiskLevel)
	assert.Equal(t, 6, res.UpdatedMemory.UserProfile.RiskLevel)

	// Redelivery of the same event: the memoized run fires no second
	// alert and makes no further model calls.
	resumed := newTestRun(t, store, "run-1")
	res2 := o.ProcessMessage(context.Background(), resumed, in)

	assert.Len(t, sink.alerts, 1)
	assert.Equal(t, 1, intel.analyzeCalls)
	assert.Equal(t, 1, intel.respondCalls)
	assert.Equal(t, res.Response, res2.Response)
}

func TestProcessMessageRiskAtThresholdDoesNotAlert(t *testing.T) {
	intel := &fakeIntel{
		analysis: `{"emotionalState":"low","riskLevel":4}`,
		response: "Thank you for sharing that.",
	}
	o, sink, _, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	o.ProcessMessage(context.Background(), run, ProcessMessageInput{
		SessionID: "sess-1",
		Message:   "rough day",
		Memory:    domain.NewMemory(),
	})

	assert.Empty(t, sink.alerts)
	assert.False(t, run.Completed("trigger-risk-alert"), "a skipped branch must not be memoized")
}

func TestProcessMessageRespondFailureUsesFallback(t *testing.T) {
	intel := &fakeIntel{
		analysis:    `{"emotionalState":"calm","riskLevel":1}`,
		responseErr: errors.New("rate limited"),
	}
	o, _, _, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	res := o.ProcessMessage(context.Background(), run, ProcessMessageInput{
		SessionID: "sess-1",
		Message:   "hello",
		Memory:    domain.NewMemory(),
	})

	assert.Equal(t, FallbackResponse, res.Response)
	// The analysis still lands in memory even when the reply degraded.
	assert.Equal(t, []string{"calm"}, res.UpdatedMemory.UserProfile.EmotionalState)
}

func TestProcessMessageEmptyResponseUsesFallback(t *testing.T) {
	intel := &fakeIntel{
		analysis: `{"emotionalState":"calm","riskLevel":0}`,
		response: "   ",
	}
	o, _, _, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	res := o.ProcessMessage(context.Background(), run, ProcessMessageInput{
		SessionID: "sess-1",
		Message:   "hi",
		Memory:    domain.NewMemory(),
	})

	assert.Equal(t, FallbackResponse, res.Response)
}

func TestAnalyzeSessionHappyPath(t *testing.T) {
	intel := &fakeIntel{
		response: "```json\n" + `{
			"keyThemes": ["grief"],
			"emotionalSummary": "processing a recent loss",
			"areasOfConcern": ["social withdrawal"],
			"recommendations": ["reconnect with one friend"],
			"progressIndicators": ["named the loss directly"]
		}` + "\n```",
	}
	o, sink, reports, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	rep, err := o.AnalyzeSession(context.Background(), run, SessionAnalysisInput{
		SessionID:  "sess-1",
		Transcript: "user: I lost my father last month.\nassistant: I'm so sorry.\n",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"grief"}, rep.KeyThemes)
	require.Contains(t, reports.saved, "sess-1")
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, AlertConcern, sink.alerts[0].Kind)
	assert.Equal(t, []string{"social withdrawal"}, sink.alerts[0].Concerns)
}

func TestAnalyzeSessionNoConcernsNoAlert(t *testing.T) {
	intel := &fakeIntel{
		response: `{"keyThemes":["sleep"],"emotionalSummary":"stable","areasOfConcern":[],"recommendations":[],"progressIndicators":[]}`,
	}
	o, sink, _, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	_, err := o.AnalyzeSession(context.Background(), run, SessionAnalysisInput{
		SessionID:  "sess-1",
		Transcript: "user: slept badly again\n",
	})
	require.NoError(t, err)
	assert.Empty(t, sink.alerts)
}

func TestAnalyzeSessionEmptyTranscriptFails(t *testing.T) {
	o, _, reports, _ := newTestOrchestrator(&fakeIntel{})
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	_, err := o.AnalyzeSession(context.Background(), run, SessionAnalysisInput{SessionID: "sess-1"})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "get-session-content", stepErr.Step)
	assert.Empty(t, reports.saved)
}

func TestAnalyzeSessionMalformedReportIsFatal(t *testing.T) {
	intel := &fakeIntel{response: "the session went fine overall"}
	o, _, reports, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	_, err := o.AnalyzeSession(context.Background(), run, SessionAnalysisInput{
		SessionID:  "sess-1",
		Transcript: "user: hello\n",
	})

	require.Error(t, err)
	assert.Empty(t, reports.saved, "an unparseable report must not be stored")
}

func TestAnalyzeSessionPrefersNotesOverTranscript(t *testing.T) {
	intel := &fakeIntel{
		response: `{"keyThemes":[],"emotionalSummary":"","areasOfConcern":[],"recommendations":[],"progressIndicators":[]}`,
	}
	o, _, _, _ := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	_, err := o.AnalyzeSession(context.Background(), run, SessionAnalysisInput{
		SessionID:  "sess-1",
		Notes:      "clinician notes",
		Transcript: "user: hi\n",
	})
	require.NoError(t, err)

	require.Len(t, intel.prompts, 1)
	assert.Contains(t, intel.prompts[0], "clinician notes")
	assert.NotContains(t, intel.prompts[0], "user: hi")
}

func TestRecommendActivitiesHappyPath(t *testing.T) {
	intel := &fakeIntel{
		response: `[{"activity":"short walk","reasoning":"low energy","benefit":"light movement","difficulty":"easy","duration":"15 min"}]`,
	}
	o, _, _, recsStore := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	recs, err := o.RecommendActivities(context.Background(), run, RecommendationInput{UserID: 7})
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "short walk", recs[0].Activity)
	assert.Equal(t, recs, recsStore.saved[7])
}

func TestRecommendActivitiesMalformedOutputDegradesToEmptySet(t *testing.T) {
	intel := &fakeIntel{response: "try going for a walk!"}
	o, _, _, recsStore := newTestOrchestrator(intel)
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	recs, err := o.RecommendActivities(context.Background(), run, RecommendationInput{UserID: 7})
	require.NoError(t, err)

	assert.Empty(t, recs)
	// The empty set is still persisted so /activities has a definitive
	// latest answer.
	saved, ok := recsStore.saved[7]
	require.True(t, ok)
	assert.Empty(t, saved)
}

func TestRecommendActivitiesStoreFailureIsFatal(t *testing.T) {
	intel := &fakeIntel{response: `[{"activity":"stretch"}]`}
	o, _, _, _ := newTestOrchestrator(intel)
	o.recs = &fakeRecs{err: errors.New("db down")}
	run := newTestRun(t, NewMemoryStepStore(), "run-1")

	_, err := o.RecommendActivities(context.Background(), run, RecommendationInput{UserID: 7})
	require.Error(t, err)
}
