package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model/config"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/service/cache"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
)

// AssessmentUseCase runs the ordered assessment pipeline. Each stage is
// idempotent: a stage whose output fields are already populated is
// skipped, so re-running a partially assessed risk resumes where the
// previous run stopped. Stage outputs are accumulated on a working copy
// and persisted in a single write, so a failed stage leaves the stored
// record untouched.
type AssessmentUseCase struct {
	*UseCases
}

// Run executes every pipeline stage that has not produced its outputs
// yet and persists the result.
func (uc *AssessmentUseCase) Run(ctx context.Context, id types.RiskID) (*model.Risk, error) {
	if uc.oracle == nil {
		return nil, goerr.New("scoring oracle is not configured", goerr.T(types.TagCollaborator))
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}
	if risk.Status.IsTerminal() {
		return nil, goerr.New("cannot assess a terminal risk",
			goerr.T(types.TagState), goerr.V("id", id), goerr.V("status", risk.Status))
	}

	if risk.SourceAssessmentID == "" {
		risk.SourceAssessmentID = types.NewAssessmentID()
	}

	stages := []struct {
		name string
		run  func(context.Context, *model.Risk) error
	}{
		{"questionnaire", uc.stageQuestionnaire},
		{"impact", uc.stageImpact},
		{"quantification", uc.stageQuantification},
		{"controls", uc.stageControls},
		{"decision", uc.stageDecision},
	}

	for _, stage := range stages {
		if err := stage.run(ctx, risk); err != nil {
			return nil, goerr.Wrap(err, "assessment stage failed",
				goerr.V("id", id), goerr.V("stage", stage.name))
		}
	}

	updated, err := uc.repo.Risk().Update(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist assessment", goerr.V("id", id))
	}

	logging.From(ctx).Info("assessment completed",
		"risk_id", id,
		"assessment_id", updated.SourceAssessmentID,
		"residual", updated.ResidualRiskValue())

	return updated, nil
}

// stageQuestionnaire attaches a question set, reusing the cached template
// for the asset type and methodology version when one exists.
func (uc *AssessmentUseCase) stageQuestionnaire(ctx context.Context, risk *model.Risk) error {
	if len(risk.Questions) > 0 {
		return nil
	}

	questions, err := uc.questionSet(ctx, risk.Asset, types.QuestionnaireKindAsset)
	if err != nil {
		return err
	}

	risk.Questions = questions
	return nil
}

// questionSet resolves a questionnaire template cache-first. On a miss
// the oracle generates the set and the template is cached; a concurrent
// writer winning the race is converged on by re-reading its entry.
func (uc *UseCases) questionSet(ctx context.Context, asset model.Asset, kind types.QuestionnaireKind) ([]model.Question, error) {
	key := cache.TemplateKey(asset.Type, uc.methodology.Version, kind)

	questions, ok, err := uc.cache.GetTemplate(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return questions, nil
	}

	if uc.oracle == nil {
		return nil, goerr.New("scoring oracle is not configured", goerr.T(types.TagCollaborator))
	}
	questions, err = uc.oracle.GenerateQuestionnaire(ctx, asset, kind)
	if err != nil {
		return nil, err
	}

	if err := uc.cache.PutTemplate(ctx, key, questions); err != nil {
		if !goerr.HasTag(err, types.TagConflict) {
			return nil, err
		}
		cached, ok, getErr := uc.cache.GetTemplate(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		if ok {
			return cached, nil
		}
		return nil, err
	}

	return questions, nil
}

// stageImpact rates CIA impact and probability from the answers. Scale
// definitions come from the methodology cache, derived once per
// methodology version.
func (uc *AssessmentUseCase) stageImpact(ctx context.Context, risk *model.Risk) error {
	if risk.Impact != nil && risk.Probability != nil {
		return nil
	}
	if len(risk.Answers) == 0 {
		return goerr.New("impact stage requires questionnaire answers",
			goerr.T(types.TagValidation))
	}

	scaleNotes, err := uc.methodologyFragment(ctx, "impact and probability scale definitions "+uc.methodology.Version)
	if err != nil {
		return err
	}

	judgment, err := uc.oracle.AssessImpact(ctx, risk, scaleNotes)
	if err != nil {
		return err
	}

	overall := judgment.Confidentiality
	if judgment.Integrity > overall {
		overall = judgment.Integrity
	}
	if judgment.Availability > overall {
		overall = judgment.Availability
	}

	risk.Impact = &model.ImpactAssessment{
		Confidentiality: judgment.Confidentiality,
		Integrity:       judgment.Integrity,
		Availability:    judgment.Availability,
		Overall:         overall,
		Level:           overall,
		Category:        config.ScaleName(uc.methodology.ImpactScale, overall),
		Rationale:       judgment.Rationale,
	}
	risk.Probability = &model.ProbabilityAssessment{
		Level:    judgment.ProbabilityLevel,
		Category: config.ScaleName(uc.methodology.ProbabilityScale, judgment.ProbabilityLevel),
	}
	return nil
}

// methodologyFragment resolves a methodology topic cache-first.
func (uc *UseCases) methodologyFragment(ctx context.Context, topic string) (string, error) {
	fragment, ok, err := uc.cache.GetMethodology(ctx, topic)
	if err != nil {
		return "", err
	}
	if ok {
		return fragment, nil
	}

	fragment, err = uc.oracle.ExtractMethodology(ctx, topic)
	if err != nil {
		return "", err
	}

	if err := uc.cache.PutMethodology(ctx, topic, fragment); err != nil {
		if !goerr.HasTag(err, types.TagConflict) {
			return "", err
		}
		cached, ok, getErr := uc.cache.GetMethodology(ctx, topic)
		if getErr != nil {
			return "", getErr
		}
		if ok {
			return cached, nil
		}
		return "", err
	}

	return fragment, nil
}

// stageQuantification combines impact and probability into the risk
// value. Pure arithmetic: no collaborator, no cache, reproducible from
// the rating tables alone.
func (uc *AssessmentUseCase) stageQuantification(ctx context.Context, risk *model.Risk) error {
	if risk.Quantification != nil {
		return nil
	}
	if risk.Impact == nil || risk.Probability == nil {
		return goerr.New("quantification requires impact and probability ratings",
			goerr.T(types.TagValidation))
	}

	value := risk.Impact.Level * risk.Probability.Level
	risk.Quantification = &model.Quantification{
		RiskValue:       value,
		RiskRating:      fmt.Sprintf("%dx%d", risk.Impact.Level, risk.Probability.Level),
		EvaluationLevel: risk.Impact.Category,
		Classification:  uc.methodology.Classify(float64(value)),
	}
	return nil
}

// stageControls evaluates declared controls and derives the residual
// risk value. Framework passages come from the retrieval cache when the
// query has been seen before.
func (uc *AssessmentUseCase) stageControls(ctx context.Context, risk *model.Risk) error {
	if risk.Controls != nil {
		return nil
	}
	if risk.Quantification == nil {
		return goerr.New("control evaluation requires the quantified risk value",
			goerr.T(types.TagValidation))
	}

	framework, err := uc.frameworkPassages(ctx, risk)
	if err != nil {
		return err
	}

	judgment, err := uc.oracle.EvaluateControls(ctx, risk, framework)
	if err != nil {
		return err
	}

	risk.Controls = uc.evaluateControls(risk.Quantification.RiskValue, judgment)
	return nil
}

// evaluateControls derives the composite rating and residual value from a
// control judgment. Residual never exceeds the pre-control value.
func (uc *UseCases) evaluateControls(riskValue int, judgment *model.ControlJudgment) *model.ControlEvaluation {
	avgs := model.CategoryEffectiveness(judgment.Controls)
	rating := model.CompositeControlRating(avgs)

	residual := float64(riskValue) * (1 - rating)
	residual = math.Max(0, math.Min(residual, float64(riskValue)))

	return &model.ControlEvaluation{
		Controls:               judgment.Controls,
		ControlCount:           len(judgment.Controls),
		CategoryEffectiveness:  avgs,
		ControlRating:          rating,
		ResidualRiskValue:      residual,
		ResidualClassification: uc.methodology.Classify(residual),
		Gaps:                   judgment.Gaps,
		RecommendedControls:    judgment.RecommendedControls,
	}
}

// frameworkPassages resolves control-framework guidance cache-first.
// Without a retrieval collaborator the control stage runs on answers
// alone.
func (uc *UseCases) frameworkPassages(ctx context.Context, risk *model.Risk) ([]model.Passage, error) {
	query := fmt.Sprintf("security controls for %s threat %s", risk.Asset.Type, risk.ThreatName)

	passages, ok, err := uc.cache.GetRetrieval(ctx, query)
	if err != nil {
		return nil, err
	}
	if ok {
		return passages, nil
	}

	if uc.retrieval == nil {
		return nil, nil
	}
	passages, err = uc.retrieval.Search(ctx, query, 5)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return nil, nil
	}

	if err := uc.cache.PutRetrieval(ctx, query, passages); err != nil && !goerr.HasTag(err, types.TagConflict) {
		return nil, err
	}
	return passages, nil
}

// stageDecision asks the oracle for a recommended treatment decision.
// The workflow engine formalizes it; nothing is decided here.
func (uc *AssessmentUseCase) stageDecision(ctx context.Context, risk *model.Risk) error {
	if risk.Recommended != "" {
		return nil
	}
	if !risk.Assessed() {
		return goerr.New("decision stage requires a fully assessed risk",
			goerr.T(types.TagValidation))
	}

	judgment, err := uc.oracle.RecommendDecision(ctx, risk)
	if err != nil {
		return err
	}

	risk.Recommended = judgment.Decision
	return nil
}
