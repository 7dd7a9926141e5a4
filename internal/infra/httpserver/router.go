package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appassess "github.com/bryanwahyu/lifeline-triage/internal/application/assessments"
	domai "github.com/bryanwahyu/lifeline-triage/internal/domain/ai"
	domain "github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
	"github.com/bryanwahyu/lifeline-triage/internal/domain/assessmenterrors"
	"github.com/bryanwahyu/lifeline-triage/internal/domain/report"
	"github.com/bryanwahyu/lifeline-triage/internal/infra/export"
	"github.com/bryanwahyu/lifeline-triage/internal/middleware"
)

type Router struct {
	svc      *appassess.Service
	maxBytes int64
}

func NewRouter(svc *appassess.Service, maxUploadBytes int64) http.Handler {
	r := &Router{svc: svc, maxBytes: maxUploadBytes}
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/convert-audio-to-text", r.wrap(r.handleUploadAudio))
	mux.Post("/analyze-text-file", r.wrap(r.handleUploadText))
	mux.Post("/gemini-analyze-text", r.wrap(r.handleGeminiAnalyze))

	mux.Get("/result", r.wrap(r.handleResult))
	mux.Get("/report", r.wrap(r.handleReport))

	mux.Route("/assessments", func(rt chi.Router) {
		rt.Get("/", r.wrap(r.handlePaginate))
		rt.Get("/latest", r.wrap(r.handleLatest))
		rt.Get("/export", r.wrap(r.handleExport))
		rt.Get("/{id}", r.wrap(r.handleGet))
		rt.Get("/{id}/errors", r.wrap(r.handleFailures))
	})
	mux.Get("/summary", r.wrap(r.handleSummary))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest marks malformed client input that is not a media-type
// problem (missing field, empty transcript, oversized body).
var errBadRequest = errors.New("bad request")

// wrap maps domain errors onto HTTP statuses; every error body is a JSON
// object with a detail field, matching what the upload client expects.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var unsupported *middleware.ErrUnsupportedFormat
		switch {
		case errors.As(err, &unsupported):
			middleware.IncrementUploadsRejected()
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, errBadRequest):
			middleware.IncrementUploadsRejected()
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, appassess.ErrUploadInFlight):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidFormat):
			middleware.IncrementAnalysesFailed()
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrNoData):
			writeError(w, http.StatusNotFound, "no analysis data; upload a transcript first")
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		case errors.Is(err, domai.ErrBackendUnavailable):
			middleware.IncrementAnalysesFailed()
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// readUpload pulls one file out of the multipart body and validates it
// against the kind this endpoint accepts. All rejections happen before any
// analyzer or transcriber call.
func (r *Router) readUpload(w http.ResponseWriter, req *http.Request, field string,
	want middleware.UploadKind) (appassess.SubmitCommand, error) {

	req.Body = http.MaxBytesReader(w, req.Body, r.maxBytes)
	file, hdr, err := req.FormFile(field)
	if err != nil {
		return appassess.SubmitCommand{}, fmt.Errorf("%w: missing multipart field %q", errBadRequest, field)
	}
	defer file.Close()

	contentType := hdr.Header.Get("Content-Type")
	kind, err := middleware.ValidateUpload(hdr.Filename, contentType)
	if err != nil {
		return appassess.SubmitCommand{}, err
	}
	if kind != want {
		return appassess.SubmitCommand{}, &middleware.ErrUnsupportedFormat{
			Filename:    hdr.Filename,
			ContentType: contentType,
		}
	}
	if err := middleware.ValidateSize(hdr.Size, r.maxBytes); err != nil {
		return appassess.SubmitCommand{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return appassess.SubmitCommand{}, fmt.Errorf("read upload: %w", err)
	}
	if kind == middleware.UploadText {
		if err := middleware.ValidateTextPayload(data); err != nil {
			return appassess.SubmitCommand{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}

	src := domain.SourceText
	if kind == middleware.UploadAudio {
		src = domain.SourceAudio
	}
	return appassess.SubmitCommand{
		Kind:        src,
		Filename:    hdr.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// POST /convert-audio-to-text
// multipart field: audio_file (.mp3 / audio/mpeg)
func (r *Router) handleUploadAudio(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.readUpload(w, req, "audio_file", middleware.UploadAudio)
	if err != nil {
		return err
	}
	return r.submit(w, req, cmd)
}

// POST /analyze-text-file
// multipart field: file (.txt / text/plain)
func (r *Router) handleUploadText(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.readUpload(w, req, "file", middleware.UploadText)
	if err != nil {
		return err
	}
	return r.submit(w, req, cmd)
}

func (r *Router) submit(w http.ResponseWriter, req *http.Request, cmd appassess.SubmitCommand) error {
	middleware.IncrementUploads()
	res, err := r.svc.SubmitUpload(req.Context(), cmd)
	if err != nil {
		return err
	}
	// raw bytes, not a re-marshal: the viewer must read back exactly what
	// the analyzer produced
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(res.RawJSON)
	return err
}

// POST /gemini-analyze-text
// Body: {"text": "<transcript>"}
func (r *Router) handleGeminiAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode request body: %v", errBadRequest, err)
	}
	if body.Text == "" {
		return fmt.Errorf("%w: text is required", errBadRequest)
	}

	res, err := r.svc.AnalyzeText(req.Context(), body.Text)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(res.RawJSON)
	return err
}

// GET /result
// Returns the published result verbatim.
func (r *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	raw, err := r.svc.CurrentResult(req.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(raw)
	return err
}

// GET /report
// Returns the rendered view model of the published result.
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	raw, err := r.svc.CurrentResult(req.Context())
	if err != nil {
		return err
	}
	res, err := domain.Decode(raw)
	if err != nil {
		return fmt.Errorf("invalid analysis data: %w", err)
	}
	return writeJSON(w, report.Render(res))
}

// GET /assessments/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.svc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /assessments?page=&page_size=
func (r *Router) handlePaginate(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	result, err := r.svc.Paginate(req.Context(), page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, result)
}

// GET /assessments/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	a, err := r.svc.Get(req.Context(), domain.AssessmentID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// GET /assessments/{id}/errors?limit=20
// Lists recorded failure entries so an operator can see why a run failed.
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.svc.FailuresFor(req.Context(), domain.AssessmentID(id), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*assessmenterrors.AssessmentError{}
	}
	return writeJSON(w, list)
}

// GET /assessments/export
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	list, err := r.svc.Latest(req.Context(), 1000)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="assessments.xlsx"`)
	return export.WriteXLSX(w, list)
}

// GET /summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	summary, err := r.svc.Summary(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, summary)
}
