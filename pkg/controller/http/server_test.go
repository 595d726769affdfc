package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	httpctrl "github.com/secmon-lab/aegisrisk/pkg/controller/http"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/repository/memory"
	"github.com/secmon-lab/aegisrisk/pkg/usecase"
)

// stubOracle returns fixed judgments so the full API flow runs without an
// LLM.
type stubOracle struct{}

func (stubOracle) GenerateQuestionnaire(ctx context.Context, asset model.Asset, kind types.QuestionnaireKind) ([]model.Question, error) {
	return []model.Question{
		{ID: "q1", Text: "Does the asset store personal data?", Required: true},
	}, nil
}

func (stubOracle) AssessImpact(ctx context.Context, risk *model.Risk, scaleNotes string) (*model.ImpactJudgment, error) {
	return &model.ImpactJudgment{Confidentiality: 4, Integrity: 3, Availability: 2, ProbabilityLevel: 5}, nil
}

func (stubOracle) EvaluateControls(ctx context.Context, risk *model.Risk, framework []model.Passage) (*model.ControlJudgment, error) {
	return &model.ControlJudgment{
		Controls: []model.Control{
			{Name: "Disk encryption", Category: types.ControlPreventive, Effectiveness: 0.5},
		},
	}, nil
}

func (stubOracle) RecommendDecision(ctx context.Context, risk *model.Risk) (*model.DecisionJudgment, error) {
	return &model.DecisionJudgment{Decision: types.DecisionTreat}, nil
}

func (stubOracle) ExtractMethodology(ctx context.Context, topic string) (string, error) {
	return "impact and probability are rated 1 to 5", nil
}

func newTestServer(t *testing.T) *httpctrl.Server {
	t.Helper()
	uc := usecase.New(memory.New(), usecase.WithOracle(stubOracle{}))
	return httpctrl.New(uc)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
}

func TestRiskLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// Create
	rec := doJSON(t, srv, http.MethodPost, "/api/risks", map[string]any{
		"title":       "Unencrypted backups",
		"threat_name": "data theft",
		"asset":       map[string]any{"name": "Customer Database", "type": "database"},
		"owner":       "dba-team",
	})
	gt.Value(t, rec.Code).Equal(http.StatusCreated)

	var created struct {
		ID     string `json:"id"`
		Number int64  `json:"number"`
		Status string `json:"status"`
	}
	decodeBody(t, rec, &created)
	gt.Value(t, created.Number).Equal(int64(1))
	gt.Value(t, created.Status).Equal("OPEN")

	// Collect answers through a questionnaire token
	rec = doJSON(t, srv, http.MethodPost, "/api/risks/"+created.ID+"/questionnaires", map[string]any{
		"kind":      "ASSET",
		"recipient": "owner@example.com",
	})
	gt.Value(t, rec.Code).Equal(http.StatusCreated)

	var issued struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &issued)

	rec = doJSON(t, srv, http.MethodGet, "/api/questionnaires/"+issued.Token, nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	rec = doJSON(t, srv, http.MethodPost, "/api/questionnaires/"+issued.Token, map[string]any{
		"answers": map[string]string{"q1": "yes"},
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	// Assess
	rec = doJSON(t, srv, http.MethodPost, "/api/risks/"+created.ID+"/assess", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var assessed struct {
		Quantification struct {
			RiskValue int `json:"risk_value"`
		} `json:"quantification"`
		Recommended   string  `json:"recommended_decision"`
		ResidualValue float64 `json:"residual_risk_value"`
	}
	decodeBody(t, rec, &assessed)
	gt.Value(t, assessed.Quantification.RiskValue).Equal(20)
	gt.Value(t, assessed.Recommended).Equal("TREAT")
	gt.Value(t, assessed.ResidualValue).Equal(10.0)

	// Decide
	rec = doJSON(t, srv, http.MethodPost, "/api/risks/"+created.ID+"/decision", map[string]any{
		"decision": "TREAT",
		"treat": map[string]any{
			"mitigation": "Encrypt backups",
			"priority":   "HIGH",
			"actions": []map[string]any{
				{"order": 1, "description": "Enable backup encryption"},
			},
		},
		"decided_by": "ciso",
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var decided struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &decided)
	gt.Value(t, decided.Status).Equal("IN_PROGRESS")

	// Verify the action; the risk closes.
	rec = doJSON(t, srv, http.MethodPost, "/api/risks/"+created.ID+"/actions/1", map[string]any{
		"status": "VERIFIED",
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var closed struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &closed)
	gt.Value(t, closed.Status).Equal("CLOSED")

	// Status filter
	rec = doJSON(t, srv, http.MethodGet, "/api/risks?status=CLOSED", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var listed struct {
		Risks []json.RawMessage `json:"risks"`
	}
	decodeBody(t, rec, &listed)
	gt.Array(t, listed.Risks).Length(1)
}

func TestErrorTaxonomyOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unknown risk is 404", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/risks/"+string(types.NewRiskID()), nil)
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("invalid body is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/risks", bytes.NewBufferString("{garbage"))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("missing title is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/risks", map[string]any{
			"asset": map[string]any{"name": "x", "type": "database"},
		})
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("invalid status filter is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/risks?status=BOGUS", nil)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("deciding on an unassessed risk is 422", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/risks", map[string]any{
			"title": "Undecidable",
			"asset": map[string]any{"name": "x", "type": "database"},
		})
		gt.Value(t, rec.Code).Equal(http.StatusCreated)

		var created struct {
			ID string `json:"id"`
		}
		decodeBody(t, rec, &created)

		rec = doJSON(t, srv, http.MethodPost, "/api/risks/"+created.ID+"/decision", map[string]any{
			"decision":   "ACCEPT",
			"acceptance": map[string]any{"reason": "x", "answers": map[string]string{"q1": "yes"}},
		})
		gt.Value(t, rec.Code).Equal(http.StatusUnprocessableEntity)
	})
}

func TestCacheStatsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/cache/stats", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Stats []struct {
			Namespace string `json:"namespace"`
		} `json:"stats"`
	}
	decodeBody(t, rec, &resp)
	gt.Array(t, resp.Stats).Length(3)
}
