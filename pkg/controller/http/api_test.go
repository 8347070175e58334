package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/gapcheck/pkg/controller/http"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/repository/memory"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/secmon-lab/gapcheck/pkg/utils/testutil"
)

var testFingerprint = model.EmbeddingFingerprint{Provider: "test", Model: "hash", Dimension: 64}

func setupServer(t *testing.T, docs ...string) (*httpctrl.Server, *testutil.HashEmbedder) {
	t.Helper()
	repo := memory.New(testFingerprint)
	embedder := testutil.NewHashEmbedder(testFingerprint)
	uc := usecase.New(repo, embedder)

	for i, text := range docs {
		_, err := uc.IngestDocument(context.Background(), &model.Document{
			Source:   model.SourceKindGitHub,
			SourceID: "acme/docs/" + string(rune('a'+i)) + ".md",
			Title:    string(rune('a' + i)),
			URL:      "https://github.com/acme/docs/blob/HEAD/" + string(rune('a'+i)) + ".md",
			Text:     text,
		})
		gt.NoError(t, err).Required()
	}

	return httpctrl.New(uc), embedder
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			gt.NoError(t, json.NewEncoder(&buf).Encode(v)).Required()
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)
	w := do(t, srv, http.MethodGet, "/health", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"status":"ok"`)
}

func TestAnalyzeAPI(t *testing.T) {
	t.Run("classifies requirements", func(t *testing.T) {
		srv, _ := setupServer(t, "apple pay is available at checkout", "store locator shows opening hours")

		w := do(t, srv, http.MethodPost, "/api/analyze", map[string]any{
			"text": "- Apple Pay is available at checkout\n- Store locator shows opening hours",
		})
		gt.Number(t, w.Code).Equal(http.StatusOK)

		var report model.AnalysisReport
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &report)).Required()
		gt.A(t, report.Results).Length(2)
		gt.Value(t, report.Results[0].Classification).Equal(types.ClassificationOOTBMatch)
		gt.Value(t, report.Results[0].Citations[0].SourceID).Equal("acme/docs/a.md")
		gt.String(t, w.Body.String()).NotContains("apple pay is available at checkout")
	})

	t.Run("empty requirements", func(t *testing.T) {
		srv, embedder := setupServer(t)
		w := do(t, srv, http.MethodPost, "/api/analyze", map[string]any{"text": "  \n"})
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)
		gt.Number(t, embedder.Calls()).Equal(0)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := setupServer(t)
		w := do(t, srv, http.MethodPost, "/api/analyze", "{not json")
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)
		gt.String(t, w.Body.String()).Contains(`"error"`)
	})

	t.Run("unknown baseline", func(t *testing.T) {
		srv, _ := setupServer(t)
		w := do(t, srv, http.MethodPost, "/api/analyze", map[string]any{
			"requirements": []string{"gift cards"},
			"baseline":     "missing",
		})
		gt.Number(t, w.Code).Equal(http.StatusNotFound)
	})

	t.Run("embedding mismatch is a server error with detail", func(t *testing.T) {
		srv, embedder := setupServer(t)
		embedder.Err = model.ErrEmbeddingMismatch
		w := do(t, srv, http.MethodPost, "/api/analyze", map[string]any{"requirements": []string{"gift cards"}})
		gt.Number(t, w.Code).Equal(http.StatusInternalServerError)
		gt.String(t, w.Body.String()).Contains("embedding does not match collection")
	})

	t.Run("save then compare", func(t *testing.T) {
		srv, _ := setupServer(t, "gift cards can be redeemed at checkout")

		w := do(t, srv, http.MethodPost, "/api/analyze", map[string]any{
			"requirements":  []string{"Gift cards can be redeemed at checkout"},
			"save_baseline": "sprint-1",
		})
		gt.Number(t, w.Code).Equal(http.StatusOK)

		w = do(t, srv, http.MethodPost, "/api/analyze", map[string]any{
			"requirements": []string{"Gift cards can be redeemed at checkout", "Loyalty points on every order"},
			"baseline":     "sprint-1",
		})
		gt.Number(t, w.Code).Equal(http.StatusOK)

		var report model.AnalysisReport
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &report)).Required()
		gt.Value(t, report.Comparison).NotNil()
		gt.Number(t, report.Comparison.Summary.Unchanged).Equal(1)
		gt.Number(t, report.Comparison.Summary.Added).Equal(1)
		gt.Value(t, report.Results[1].BaselineStatus).Equal(types.BaselineStatusNew)
		gt.Number(t, strings.Count(w.Body.String(), "Loyalty points on every order")).Equal(1)
	})
}

func TestQueryAPI(t *testing.T) {
	srv, _ := setupServer(t, "gift cards can be redeemed at checkout", "store locator shows opening hours")

	w := do(t, srv, http.MethodPost, "/api/query", map[string]any{"question": "store locator shows opening hours", "top_k": 1})
	gt.Number(t, w.Code).Equal(http.StatusOK)

	var resp struct {
		Question string `json:"question"`
		Results  []struct {
			SourceID   string  `json:"source_id"`
			ChunkText  string  `json:"chunk_text"`
			Similarity float64 `json:"similarity"`
		} `json:"results"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
	gt.A(t, resp.Results).Length(1)
	gt.Value(t, resp.Results[0].SourceID).Equal("acme/docs/b.md")
	gt.Value(t, resp.Results[0].ChunkText).Equal("store locator shows opening hours")
	gt.Number(t, resp.Results[0].Similarity).Equal(1.0)

	w = do(t, srv, http.MethodPost, "/api/query", map[string]any{"question": " "})
	gt.Number(t, w.Code).Equal(http.StatusBadRequest)
}

func TestBaselineAPI(t *testing.T) {
	srv, _ := setupServer(t)

	w := do(t, srv, http.MethodPost, "/api/baselines", map[string]any{
		"name": "q2 launch",
		"results": []map[string]any{
			{"requirement": "Gift cards", "classification": "OOTB Match", "confidence": 0.91},
		},
	})
	gt.Number(t, w.Code).Equal(http.StatusCreated)
	gt.String(t, w.Body.String()).Contains(`"name":"q2_launch"`)

	w = do(t, srv, http.MethodGet, "/api/baselines", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"q2_launch"`)

	w = do(t, srv, http.MethodGet, "/api/baselines/q2_launch", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
	var b model.Baseline
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &b)).Required()
	gt.A(t, b.Items).Length(1)
	gt.Value(t, b.Items[0].RequirementNorm).Equal("gift cards")

	w = do(t, srv, http.MethodPost, "/api/baselines", map[string]any{"name": "!!!", "results": []map[string]any{{"requirement": "x"}}})
	gt.Number(t, w.Code).Equal(http.StatusBadRequest)

	w = do(t, srv, http.MethodDelete, "/api/baselines/q2_launch", nil)
	gt.Number(t, w.Code).Equal(http.StatusNoContent)

	w = do(t, srv, http.MethodGet, "/api/baselines/q2_launch", nil)
	gt.Number(t, w.Code).Equal(http.StatusNotFound)
	w = do(t, srv, http.MethodDelete, "/api/baselines/q2_launch", nil)
	gt.Number(t, w.Code).Equal(http.StatusNotFound)
}

func TestWriteJSON(t *testing.T) {
	t.Run("encodable value keeps status", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		httpctrl.WriteJSON(w, r, http.StatusCreated, map[string]float64{"confidence": 0.5})
		gt.Number(t, w.Code).Equal(http.StatusCreated)
		gt.String(t, w.Body.String()).Contains(`"confidence":0.5`)
	})

	t.Run("unencodable value becomes server error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		httpctrl.WriteJSON(w, r, http.StatusOK, map[string]float64{"confidence": math.NaN()})
		gt.Number(t, w.Code).Equal(http.StatusInternalServerError)
	})
}
