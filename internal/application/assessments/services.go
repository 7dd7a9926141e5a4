package assessments

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	domai "github.com/bryanwahyu/lifeline-triage/internal/domain/ai"
	domain "github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
	"github.com/bryanwahyu/lifeline-triage/internal/domain/assessmenterrors"
)

// ErrUploadInFlight is returned while another submission is still being
// processed. One upload at a time, matching the uploader contract.
var ErrUploadInFlight = errors.New("an upload is already being processed")

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service implements the upload-and-analyze use-cases.
type Service struct {
	Repo        domain.Repository
	Errors      assessmenterrors.Repository
	Results     domain.ResultStore
	Artifacts   domain.ArtifactStore
	Analyzer    domai.Analyzer
	Gemini      domai.Analyzer
	Transcriber domai.Transcriber
	Clock       Clock

	inFlight chan struct{}
}

// NewService wires the ports. The in-flight guard is a 1-slot channel used
// as a TryLock; the old UI used a boolean flag for the same contract.
func NewService(repo domain.Repository, errs assessmenterrors.Repository,
	results domain.ResultStore, artifacts domain.ArtifactStore,
	analyzer, gemini domai.Analyzer, transcriber domai.Transcriber, clock Clock) *Service {
	return &Service{
		Repo:        repo,
		Errors:      errs,
		Results:     results,
		Artifacts:   artifacts,
		Analyzer:    analyzer,
		Gemini:      gemini,
		Transcriber: transcriber,
		Clock:       clock,
		inFlight:    make(chan struct{}, 1),
	}
}

//
// ==== USE CASES ====
//

// Command untuk submit upload
type SubmitCommand struct {
	Kind        domain.SourceKind
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitResult pairs the persisted aggregate with the verbatim result JSON.
type SubmitResult struct {
	Assessment *domain.Assessment
	RawJSON    []byte
	Result     *domain.AnalysisResult
}

func (s *Service) acquire() error {
	select {
	case s.inFlight <- struct{}{}:
		return nil
	default:
		return ErrUploadInFlight
	}
}

func (s *Service) release() { <-s.inFlight }

// SubmitUpload runs the full pipeline for an uploaded file:
// retain raw upload -> transcribe when audio -> analyze -> shape check ->
// persist -> publish to the result store.
func (s *Service) SubmitUpload(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	now := s.Clock.Now()
	id := domain.AssessmentID(fmt.Sprintf("%s-%s", uuid.New().String(), cmd.Kind))

	a := &domain.Assessment{
		ID:          id,
		Source:      cmd.Kind,
		Filename:    cmd.Filename,
		SubmittedAt: now,
		Status:      domain.StatusProcessing,
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save initial assessment: %w", err)
	}

	// retain the raw upload; analysis still proceeds if retention fails
	if s.Artifacts != nil && len(cmd.Data) > 0 {
		key := fmt.Sprintf("%s/%s%s", cmd.Kind, id, strings.ToLower(filepath.Ext(cmd.Filename)))
		if url, err := s.Artifacts.UploadStream(ctx, strings.NewReader(string(cmd.Data)),
			int64(len(cmd.Data)), key, cmd.ContentType); err == nil {
			a.ArtifactURL = url
		}
	}

	transcript := string(cmd.Data)
	if cmd.Kind == domain.SourceAudio {
		if s.Transcriber == nil {
			return nil, s.fail(ctx, a, now, "transcribe", errors.New("audio transcription is not configured"))
		}
		text, err := s.Transcriber.Transcribe(ctx, cmd.Filename, cmd.Data)
		if err != nil {
			return nil, s.fail(ctx, a, now, "transcribe", fmt.Errorf("transcription failed: %w", err))
		}
		transcript = text
	}

	return s.analyze(ctx, a, now, s.Analyzer, transcript)
}

// AnalyzeText runs the gateway variant: previously cached raw text is posted
// to the Gemini gateway and its envelope goes through the same shape check.
func (s *Service) AnalyzeText(ctx context.Context, text string) (*SubmitResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	now := s.Clock.Now()
	a := &domain.Assessment{
		ID:          domain.AssessmentID(fmt.Sprintf("%s-%s", uuid.New().String(), domain.SourceGemini)),
		Source:      domain.SourceGemini,
		SubmittedAt: now,
		Status:      domain.StatusProcessing,
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save initial assessment: %w", err)
	}

	analyzer := s.Gemini
	if analyzer == nil {
		analyzer = s.Analyzer
	}
	return s.analyze(ctx, a, now, analyzer, text)
}

func (s *Service) analyze(ctx context.Context, a *domain.Assessment, started time.Time,
	analyzer domai.Analyzer, transcript string) (*SubmitResult, error) {

	raw, err := analyzer.Analyze(ctx, transcript)
	if err != nil {
		return nil, s.fail(ctx, a, started, "analyze", err)
	}

	res, err := domain.Decode([]byte(raw))
	if err != nil {
		return nil, s.fail(ctx, a, started, "analyze", err)
	}

	a.Status = domain.StatusDone
	a.RiskScore = res.OverallRiskScore
	a.Category = res.RiskCategory
	a.ResultJSON = raw
	a.DurationMS = s.Clock.Now().Sub(started).Milliseconds()
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment result: %w", err)
	}

	// publish verbatim for the result viewer; persisted copy is authoritative
	if err := s.Results.Put(ctx, []byte(raw)); err != nil {
		return nil, fmt.Errorf("publish result: %w", err)
	}

	return &SubmitResult{Assessment: a, RawJSON: []byte(raw), Result: res}, nil
}

// fail marks the assessment failed, records the cause for operators, and
// passes it through to the caller.
func (s *Service) fail(ctx context.Context, a *domain.Assessment, started time.Time, phase string, cause error) error {
	a.Status = domain.StatusFailed
	a.DurationMS = s.Clock.Now().Sub(started).Milliseconds()

	ctx = context.WithoutCancel(ctx)
	_ = s.Repo.Save(ctx, a)
	if s.Errors != nil {
		_ = s.Errors.Save(ctx, &assessmenterrors.AssessmentError{
			AssessmentID: string(a.ID),
			Source:       string(a.Source),
			Phase:        phase,
			Message:      cause.Error(),
			CreatedAt:    s.Clock.Now(),
		})
	}
	return cause
}

// FailuresFor lists recorded failure entries for one assessment.
func (s *Service) FailuresFor(ctx context.Context, id domain.AssessmentID, limit int) ([]*assessmenterrors.AssessmentError, error) {
	if s.Errors == nil {
		return nil, nil
	}
	return s.Errors.ListByAssessment(ctx, string(id), limit)
}

// CurrentResult returns the published result JSON verbatim.
func (s *Service) CurrentResult(ctx context.Context) ([]byte, error) {
	return s.Results.Get(ctx)
}

// Latest ambil N assessment terakhir
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Assessment, error) {
	return s.Repo.Latest(ctx, limit)
}

// Get ambil 1 assessment by id
func (s *Service) Get(ctx context.Context, id domain.AssessmentID) (*domain.Assessment, error) {
	return s.Repo.Get(ctx, id)
}

// Paginate halaman assessment
func (s *Service) Paginate(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, page, pageSize)
}

// Summary rekap kategori N hari terakhir
func (s *Service) Summary(ctx context.Context, sinceDays int) (map[string]int, error) {
	return s.Repo.Summary(ctx, sinceDays)
}
