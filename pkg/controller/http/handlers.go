package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/usecase"
	"github.com/secmon-lab/aegisrisk/pkg/utils/errutil"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // header already committed
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body", goerr.T(types.TagValidation))
	}
	return nil
}

func riskIDFromURL(r *http.Request) (types.RiskID, error) {
	id := types.RiskID(chi.URLParam(r, "riskID"))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

type riskResponse struct {
	ID              types.RiskID                 `json:"id"`
	Number          int64                        `json:"number"`
	Title           string                       `json:"title"`
	Description     string                       `json:"description,omitempty"`
	ThreatName      string                       `json:"threat_name,omitempty"`
	Vulnerabilities []string                     `json:"vulnerabilities,omitempty"`
	Asset           model.Asset                  `json:"asset"`
	Status          types.RiskStatus             `json:"status"`
	Questions       []model.Question             `json:"questions,omitempty"`
	Answers         model.Answers                `json:"answers,omitempty"`
	Impact          *model.ImpactAssessment      `json:"impact,omitempty"`
	Probability     *model.ProbabilityAssessment `json:"probability,omitempty"`
	Quantification  *model.Quantification        `json:"quantification,omitempty"`
	Controls        *model.ControlEvaluation     `json:"controls,omitempty"`
	Recommended     types.Decision               `json:"recommended_decision,omitempty"`
	Outcome         *model.TreatmentOutcome      `json:"outcome,omitempty"`
	Owner           string                       `json:"owner,omitempty"`
	FollowUpStatus  types.FollowUpStatus         `json:"followup_status"`
	NextFollowUpAt  *time.Time                   `json:"next_followup_at,omitempty"`
	FollowUps       []model.FollowUpRecord       `json:"followups,omitempty"`
	Trend           string                       `json:"trend"`
	ResidualValue   float64                      `json:"residual_risk_value"`
	IdentifiedAt    time.Time                    `json:"identified_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
	ClosedAt        *time.Time                   `json:"closed_at,omitempty"`
}

func toRiskResponse(risk *model.Risk) riskResponse {
	resp := riskResponse{
		ID:              risk.ID,
		Number:          risk.Number,
		Title:           risk.Title,
		Description:     risk.Description,
		ThreatName:      risk.ThreatName,
		Vulnerabilities: risk.Vulnerabilities,
		Asset:           risk.Asset,
		Status:          risk.Status,
		Questions:       risk.Questions,
		Answers:         risk.Answers,
		Impact:          risk.Impact,
		Probability:     risk.Probability,
		Quantification:  risk.Quantification,
		Controls:        risk.Controls,
		Recommended:     risk.Recommended,
		Outcome:         risk.Outcome,
		Owner:           risk.Owner,
		FollowUpStatus:  risk.FollowUpStatus,
		FollowUps:       risk.FollowUps,
		Trend:           risk.Trend(),
		ResidualValue:   risk.ResidualRiskValue(),
		IdentifiedAt:    risk.IdentifiedAt,
		UpdatedAt:       risk.UpdatedAt,
	}
	if !risk.NextFollowUpAt.IsZero() {
		t := risk.NextFollowUpAt
		resp.NextFollowUpAt = &t
	}
	if !risk.ClosedAt.IsZero() {
		t := risk.ClosedAt
		resp.ClosedAt = &t
	}
	return resp
}

func (s *Server) createRisk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title           string      `json:"title"`
		Description     string      `json:"description"`
		ThreatName      string      `json:"threat_name"`
		Vulnerabilities []string    `json:"vulnerabilities"`
		Asset           model.Asset `json:"asset"`
		Owner           string      `json:"owner"`
		OwnerContact    string      `json:"owner_contact"`
		CreatedBy       string      `json:"created_by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	risk, err := s.uc.Risk.Create(r.Context(), usecase.CreateRiskInput{
		Title:           req.Title,
		Description:     req.Description,
		ThreatName:      req.ThreatName,
		Vulnerabilities: req.Vulnerabilities,
		Asset:           req.Asset,
		Owner:           req.Owner,
		OwnerContact:    req.OwnerContact,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRiskResponse(risk))
}

func (s *Server) listRisks(w http.ResponseWriter, r *http.Request) {
	var statuses []types.RiskStatus
	if q := r.URL.Query().Get("status"); q != "" {
		for _, raw := range strings.Split(q, ",") {
			status, err := types.ParseRiskStatus(strings.TrimSpace(raw))
			if err != nil {
				errutil.HandleHTTP(r.Context(), w,
					goerr.Wrap(err, "invalid status filter", goerr.T(types.TagValidation)))
				return
			}
			statuses = append(statuses, status)
		}
	}

	risks, err := s.uc.Risk.List(r.Context(), statuses...)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	resp := make([]riskResponse, len(risks))
	for i, risk := range risks {
		resp[i] = toRiskResponse(risk)
	}
	respondJSON(w, http.StatusOK, map[string]any{"risks": resp})
}

func (s *Server) getRisk(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	risk, err := s.uc.Risk.Get(r.Context(), id)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) deleteRisk(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	if err := s.uc.Risk.Delete(r.Context(), id); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) assessRisk(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	risk, err := s.uc.Assessment.Run(r.Context(), id)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) decideRisk(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	var outcome model.TreatmentOutcome
	if err := decodeJSON(r, &outcome); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	risk, err := s.uc.Treatment.Decide(r.Context(), id, &outcome)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) resetDecision(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	risk, err := s.uc.Treatment.Reset(r.Context(), id)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) updateAction(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	order, err := strconv.Atoi(chi.URLParam(r, "order"))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w,
			goerr.Wrap(err, "invalid action order", goerr.T(types.TagValidation)))
		return
	}

	var req struct {
		Status types.ActionStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	risk, err := s.uc.Treatment.UpdateAction(r.Context(), id, order, req.Status)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) runFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	var req struct {
		Answers     model.Answers `json:"answers"`
		ActionOwner string        `json:"action_owner"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	risk, err := s.uc.FollowUp.Run(r.Context(), id, req.Answers, req.ActionOwner)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) issueQuestionnaire(w http.ResponseWriter, r *http.Request) {
	id, err := riskIDFromURL(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	var req struct {
		Kind      types.QuestionnaireKind `json:"kind"`
		Recipient string                  `json:"recipient"`
		TTLHours  int                     `json:"ttl_hours"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	pq, err := s.uc.Questionnaire.Issue(r.Context(), id, req.Kind, req.Recipient,
		time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"token":      pq.Token,
		"risk_id":    pq.RiskID,
		"kind":       pq.Kind,
		"questions":  pq.Questions,
		"expires_at": pq.ExpiresAt,
	})
}

func (s *Server) getQuestionnaire(w http.ResponseWriter, r *http.Request) {
	token := types.QuestionnaireToken(chi.URLParam(r, "token"))
	if err := token.Validate(); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	pq, err := s.uc.Questionnaire.Get(r.Context(), token)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"asset_name": pq.AssetName,
		"kind":       pq.Kind,
		"questions":  pq.Questions,
		"status":     pq.Status,
		"expires_at": pq.ExpiresAt,
	})
}

func (s *Server) completeQuestionnaire(w http.ResponseWriter, r *http.Request) {
	token := types.QuestionnaireToken(chi.URLParam(r, "token"))
	if err := token.Validate(); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	var req struct {
		Answers model.Answers `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	risk, err := s.uc.Questionnaire.Complete(r.Context(), token, req.Answers)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.uc.CacheStats(r.Context())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"stats": stats})
}
