package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/secmon-lab/gapcheck/pkg/utils/errutil"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

type analyzeRequest struct {
	Text         string   `json:"text"`
	Requirements []string `json:"requirements"`
	TopK         int      `json:"top_k"`
	Baseline     string   `json:"baseline"`
	SaveBaseline string   `json:"save_baseline"`
}

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type queryHit struct {
	Source     model.SourceKind `json:"source"`
	SourceID   string           `json:"source_id"`
	Title      string           `json:"title,omitempty"`
	URL        string           `json:"url,omitempty"`
	Scope      string           `json:"scope,omitempty"`
	UpdatedAt  *time.Time       `json:"updated_at,omitempty"`
	ChunkIndex int              `json:"chunk_index"`
	ChunkText  string           `json:"chunk_text"`
	Similarity float64          `json:"similarity"`
	Lexical    *float64         `json:"lexical,omitempty"`
	Score      float64          `json:"score"`
}

type queryResponse struct {
	Question string     `json:"question"`
	TopK     int        `json:"top_k"`
	Results  []queryHit `json:"results"`
}

type saveBaselineRequest struct {
	Name    string             `json:"name"`
	Results []*model.GapResult `json:"results"`
}

type baselineListResponse struct {
	Baselines []*model.BaselineSummary `json:"baselines"`
}

// statusOf maps domain errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrEmptyRequirements),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidBaselineName):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrBaselineNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

// writeJSON encodes v before committing the status so encode failures still become a 500
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		handleError(w, r, goerr.Wrap(err, "failed to encode response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.From(r.Context()).Warn("failed to write response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(model.ErrInvalidInput, "malformed JSON body", goerr.V("reason", err.Error()))
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	report, err := s.uc.Analyze(r.Context(), usecase.AnalyzeInput{
		Text:         req.Text,
		Requirements: req.Requirements,
		TopK:         req.TopK,
		BaselineName: req.Baseline,
		SaveBaseline: req.SaveBaseline,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	hits, err := s.uc.Query(r.Context(), req.Question, req.TopK)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := queryResponse{
		Question: req.Question,
		TopK:     req.TopK,
		Results:  make([]queryHit, 0, len(hits)),
	}
	for _, h := range hits {
		hit := queryHit{
			Source:     h.Chunk.Source,
			SourceID:   h.Chunk.SourceID,
			Title:      h.Chunk.Title,
			URL:        h.Chunk.URL,
			Scope:      h.Chunk.Scope,
			ChunkIndex: h.Chunk.Index,
			ChunkText:  h.Chunk.Text,
			Similarity: model.Round3(h.Similarity()),
			Score:      model.Round3(h.Score),
		}
		if !h.Chunk.UpdatedAt.IsZero() {
			updated := h.Chunk.UpdatedAt
			hit.UpdatedAt = &updated
		}
		if h.Lexical > 0 {
			lexical := model.Round3(h.Lexical)
			hit.Lexical = &lexical
		}
		resp.Results = append(resp.Results, hit)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) saveBaselineHandler(w http.ResponseWriter, r *http.Request) {
	var req saveBaselineRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	baseline, err := s.uc.SaveBaseline(r.Context(), req.Name, req.Results)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, baseline)
}

func (s *Server) listBaselinesHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.uc.ListBaselines(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, baselineListResponse{Baselines: summaries})
}

func (s *Server) getBaselineHandler(w http.ResponseWriter, r *http.Request) {
	baseline, err := s.uc.GetBaseline(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, baseline)
}

func (s *Server) deleteBaselineHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.DeleteBaseline(r.Context(), chi.URLParam(r, "name")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
