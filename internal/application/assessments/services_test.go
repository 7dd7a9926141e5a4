package assessments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
	"github.com/bryanwahyu/lifeline-triage/internal/domain/assessmenterrors"
	"github.com/bryanwahyu/lifeline-triage/internal/infra/resultstore"
)

const cannedResult = `{"overall_risk_score": 20, "risk_category": "Low",` +
	` "language_patterns": {"description": "", "intensity_score": 0},` +
	` "risk_factors": {"list": [], "prevalence_score": 0},` +
	` "protective_factors": {"list": [], "strength_score": 0},` +
	` "emotional_state": {"description": "", "intensity_score": 0},` +
	` "key_excerpts": [], "ai_insights": "Low acuity. Confidence Level: 70%.",` +
	` "recommended_actions": []}`

type stubRepo struct {
	mu    sync.Mutex
	saved []domain.Assessment
}

func (r *stubRepo) Save(_ context.Context, a *domain.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, *a)
	return nil
}

func (r *stubRepo) Get(context.Context, domain.AssessmentID) (*domain.Assessment, error) {
	return nil, domain.ErrNoData
}

func (r *stubRepo) Latest(context.Context, int) ([]*domain.Assessment, error) {
	return nil, nil
}

func (r *stubRepo) Paginate(context.Context, int, int) (domain.PaginatedResult, error) {
	return domain.PaginatedResult{}, nil
}

func (r *stubRepo) Summary(context.Context, int) (map[string]int, error) {
	return nil, nil
}

func (r *stubRepo) last(t *testing.T) domain.Assessment {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		t.Fatal("nothing saved")
	}
	return r.saved[len(r.saved)-1]
}

// blockingAnalyzer parks until released, so a second submission can race it.
type blockingAnalyzer struct {
	started   chan struct{}
	startOnce sync.Once
	release   chan struct{}
	output    string
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, _ string) (string, error) {
	b.startOnce.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return b.output, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type stubAnalyzer struct {
	output string
	err    error
}

func (s stubAnalyzer) Analyze(context.Context, string) (string, error) {
	return s.output, s.err
}

type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(250 * time.Millisecond)
	return c.t
}

func newTickClock() *tickClock {
	return &tickClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func textCommand() SubmitCommand {
	return SubmitCommand{
		Kind:        domain.SourceText,
		Filename:    "call.txt",
		ContentType: "text/plain",
		Data:        []byte("Caller: checking in."),
	}
}

func TestSubmitUploadPersistsAndPublishes(t *testing.T) {
	repo := &stubRepo{}
	results := resultstore.NewMemory()
	svc := NewService(repo, nil, results, nil, stubAnalyzer{output: cannedResult}, nil, nil, newTickClock())

	out, err := svc.SubmitUpload(context.Background(), textCommand())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(out.RawJSON) != cannedResult {
		t.Error("RawJSON must carry the analyzer output verbatim")
	}
	if out.Assessment.Status != domain.StatusDone {
		t.Errorf("status = %q", out.Assessment.Status)
	}
	if out.Assessment.DurationMS <= 0 {
		t.Errorf("duration must be recorded, got %d", out.Assessment.DurationMS)
	}
	if !strings.HasSuffix(string(out.Assessment.ID), "-text") {
		t.Errorf("id should carry the source suffix, got %q", out.Assessment.ID)
	}

	final := repo.last(t)
	if final.Status != domain.StatusDone || final.ResultJSON != cannedResult {
		t.Errorf("final row wrong: %+v", final)
	}
	stored, err := results.Get(context.Background())
	if err != nil || string(stored) != cannedResult {
		t.Errorf("published result wrong: %s (%v)", stored, err)
	}
}

func TestSubmitUploadInFlightGuard(t *testing.T) {
	repo := &stubRepo{}
	analyzer := &blockingAnalyzer{
		started: make(chan struct{}),
		release: make(chan struct{}),
		output:  cannedResult,
	}
	svc := NewService(repo, nil, resultstore.NewMemory(), nil, analyzer, nil, nil, newTickClock())

	done := make(chan error, 1)
	go func() {
		_, err := svc.SubmitUpload(context.Background(), textCommand())
		done <- err
	}()

	<-analyzer.started // first submission is inside the analyzer now

	_, err := svc.SubmitUpload(context.Background(), textCommand())
	if !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("expected ErrUploadInFlight, got %v", err)
	}

	close(analyzer.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	// slot must be free again
	if _, err := svc.SubmitUpload(context.Background(), textCommand()); err != nil {
		t.Fatalf("slot not released: %v", err)
	}
}

func TestSubmitUploadAnalyzerError(t *testing.T) {
	repo := &stubRepo{}
	results := resultstore.NewMemory()
	wantErr := errors.New("model offline")
	svc := NewService(repo, nil, results, nil, stubAnalyzer{err: wantErr}, nil, nil, newTickClock())

	_, err := svc.SubmitUpload(context.Background(), textCommand())
	if !errors.Is(err, wantErr) {
		t.Fatalf("cause must pass through, got %v", err)
	}
	if final := repo.last(t); final.Status != domain.StatusFailed {
		t.Errorf("assessment must be marked failed, got %q", final.Status)
	}
	if _, err := results.Get(context.Background()); !errors.Is(err, domain.ErrNoData) {
		t.Error("nothing may be published on failure")
	}
}

type stubErrRepo struct {
	mu      sync.Mutex
	entries []*assessmenterrors.AssessmentError
}

func (r *stubErrRepo) Save(_ context.Context, e *assessmenterrors.AssessmentError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *stubErrRepo) ListByAssessment(_ context.Context, assessmentID string, limit int) ([]*assessmenterrors.AssessmentError, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*assessmenterrors.AssessmentError
	for _, e := range r.entries {
		if e.AssessmentID == assessmentID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestFailureRecordedWithCause(t *testing.T) {
	repo := &stubRepo{}
	errRepo := &stubErrRepo{}
	svc := NewService(repo, errRepo, resultstore.NewMemory(), nil,
		stubAnalyzer{err: errors.New("model offline")}, nil, nil, newTickClock())

	_, err := svc.SubmitUpload(context.Background(), textCommand())
	if err == nil {
		t.Fatal("expected analyzer failure")
	}

	if len(errRepo.entries) != 1 {
		t.Fatalf("expected one failure entry, got %d", len(errRepo.entries))
	}
	e := errRepo.entries[0]
	if e.Phase != "analyze" {
		t.Errorf("phase = %q, want analyze", e.Phase)
	}
	if !strings.Contains(e.Message, "model offline") {
		t.Errorf("message must carry the cause, got %q", e.Message)
	}
	if e.AssessmentID != string(repo.last(t).ID) {
		t.Errorf("entry must reference the failed assessment")
	}
	if e.CreatedAt.IsZero() {
		t.Error("created_at must be set")
	}

	got, err := svc.FailuresFor(context.Background(), domain.AssessmentID(e.AssessmentID), 10)
	if err != nil || len(got) != 1 {
		t.Errorf("FailuresFor: %v (%d entries)", err, len(got))
	}
}

func TestFailureRecordedForMissingTranscriber(t *testing.T) {
	repo := &stubRepo{}
	errRepo := &stubErrRepo{}
	svc := NewService(repo, errRepo, resultstore.NewMemory(), nil,
		stubAnalyzer{output: cannedResult}, nil, nil, newTickClock())

	cmd := textCommand()
	cmd.Kind = domain.SourceAudio
	if _, err := svc.SubmitUpload(context.Background(), cmd); err == nil {
		t.Fatal("expected failure")
	}
	if len(errRepo.entries) != 1 || errRepo.entries[0].Phase != "transcribe" {
		t.Fatalf("expected one transcribe-phase entry, got %+v", errRepo.entries)
	}
}

func TestSubmitUploadMalformedOutput(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, resultstore.NewMemory(), nil,
		stubAnalyzer{output: `{"risk_category": "High"}`}, nil, nil, newTickClock())

	_, err := svc.SubmitUpload(context.Background(), textCommand())
	if !errors.Is(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if final := repo.last(t); final.Status != domain.StatusFailed {
		t.Errorf("assessment must be marked failed, got %q", final.Status)
	}
}

func TestSubmitUploadAudioWithoutTranscriber(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, resultstore.NewMemory(), nil, stubAnalyzer{output: cannedResult},
		nil, nil, newTickClock())

	cmd := textCommand()
	cmd.Kind = domain.SourceAudio
	cmd.Filename = "call.mp3"
	cmd.ContentType = "audio/mpeg"

	_, err := svc.SubmitUpload(context.Background(), cmd)
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected a configuration error, got %v", err)
	}
	if final := repo.last(t); final.Status != domain.StatusFailed {
		t.Errorf("assessment must be marked failed, got %q", final.Status)
	}
}

type transcriberFunc func(ctx context.Context, filename string, audio []byte) (string, error)

func (f transcriberFunc) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	return f(ctx, filename, audio)
}

func TestSubmitUploadAudioTranscribes(t *testing.T) {
	repo := &stubRepo{}
	var gotAudio []byte
	tr := transcriberFunc(func(_ context.Context, _ string, audio []byte) (string, error) {
		gotAudio = audio
		return "Caller: transcribed speech.", nil
	})
	// record what the analyzer receives
	var gotTranscript string
	analyzer := analyzerFunc(func(_ context.Context, transcript string) (string, error) {
		gotTranscript = transcript
		return cannedResult, nil
	})
	svc := NewService(repo, nil, resultstore.NewMemory(), nil, analyzer, nil, tr, newTickClock())

	cmd := SubmitCommand{
		Kind:        domain.SourceAudio,
		Filename:    "call.mp3",
		ContentType: "audio/mpeg",
		Data:        []byte{0x49, 0x44, 0x33},
	}
	if _, err := svc.SubmitUpload(context.Background(), cmd); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(gotAudio) != "ID3" {
		t.Errorf("transcriber got %v", gotAudio)
	}
	if gotTranscript != "Caller: transcribed speech." {
		t.Errorf("analyzer must receive the transcription, got %q", gotTranscript)
	}
}

type analyzerFunc func(ctx context.Context, transcript string) (string, error)

func (f analyzerFunc) Analyze(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}

func TestAnalyzeTextPrefersGemini(t *testing.T) {
	repo := &stubRepo{}
	var geminiCalled bool
	gemini := analyzerFunc(func(context.Context, string) (string, error) {
		geminiCalled = true
		return cannedResult, nil
	})
	primary := stubAnalyzer{err: errors.New("must not be called")}
	svc := NewService(repo, nil, resultstore.NewMemory(), nil, primary, gemini, nil, newTickClock())

	out, err := svc.AnalyzeText(context.Background(), "some text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !geminiCalled {
		t.Error("gateway analyzer must be preferred when configured")
	}
	if out.Assessment.Source != domain.SourceGemini {
		t.Errorf("source = %q", out.Assessment.Source)
	}
}

func TestAnalyzeTextFallsBackWithoutGemini(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, resultstore.NewMemory(), nil,
		stubAnalyzer{output: cannedResult}, nil, nil, newTickClock())

	out, err := svc.AnalyzeText(context.Background(), "some text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if out.Assessment.Status != domain.StatusDone {
		t.Errorf("status = %q", out.Assessment.Status)
	}
}
