// Package engine 编排归一化、疲劳评分、风险评估与排班优化
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/fatigue"
	"github.com/shiftsync/shiftsync/pkg/logger"
	"github.com/shiftsync/shiftsync/pkg/model"
	"github.com/shiftsync/shiftsync/pkg/normalizer"
	"github.com/shiftsync/shiftsync/pkg/optimizer"
	"github.com/shiftsync/shiftsync/pkg/risk"
)

// DefaultWorkers 默认工作协程数
const DefaultWorkers = 4

// Options 引擎配置
type Options struct {
	Scorer     *fatigue.Scorer
	Classifier *risk.Classifier
	Optimizer  *optimizer.Optimizer
	Workers    int
	Observer   Observer
}

// Engine 风险与排班优化引擎
// 除共享的只读模型制品外无状态，可并发使用
type Engine struct {
	scorer     *fatigue.Scorer
	classifier *risk.Classifier
	optimizer  *optimizer.Optimizer
	workers    int
	observer   Observer
	log        *logger.EngineLogger
}

// New 创建引擎，未提供的组件使用默认实现
func New(opts Options) *Engine {
	e := &Engine{
		scorer:     opts.Scorer,
		classifier: opts.Classifier,
		optimizer:  opts.Optimizer,
		workers:    opts.Workers,
		observer:   opts.Observer,
		log:        logger.NewEngineLogger(),
	}
	if e.scorer == nil {
		e.scorer = fatigue.NewDefaultScorer()
	}
	if e.classifier == nil {
		e.classifier = risk.NewUnavailableClassifier(nil)
	}
	if e.optimizer == nil {
		e.optimizer = optimizer.NewDefault()
	}
	if e.workers <= 0 {
		e.workers = DefaultWorkers
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	return e
}

// RunResult 一次完整优化的结果
type RunResult struct {
	RunID           string                 `json:"run_id"`
	ModelVersion    string                 `json:"model_version"`
	Policy          optimizer.PolicyKind   `json:"policy"`
	CreatedAt       time.Time              `json:"created_at"`
	Recommendations []model.Recommendation `json:"recommendations"`
	Assessments     []model.RiskAssessment `json:"assessments"`
	Records         []model.EmployeeRecord `json:"-"`
}

// Changed 有实际调整的建议数量
func (r *RunResult) Changed() int {
	n := 0
	for _, rec := range r.Recommendations {
		if rec.Changed() {
			n++
		}
	}
	return n
}

// AssessResult 风险评估结果
type AssessResult struct {
	ModelVersion string                 `json:"model_version"`
	Records      []model.EmployeeRecord `json:"records"`
	Assessments  []model.RiskAssessment `json:"assessments"`
}

// FatigueResult 单个员工的疲劳评分
type FatigueResult struct {
	EmployeeID string             `json:"Employee_ID"`
	Score      float64            `json:"Fatigue_Score"`
	Components fatigue.Components `json:"components"`
}

// Run 完整流程：归一化 -> 疲劳评分 -> 风险评估 -> 关联 -> 逐条优化
// 输出顺序与输入一致；任一阶段失败则整批失败
func (e *Engine) Run(ctx context.Context, raw []model.RawRecord) (*RunResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	e.log.RunStart(runID, StageRun, len(raw))

	result, err := e.run(ctx, runID, raw)
	changed := 0
	if err == nil {
		changed = result.Changed()
		e.observer.ObserveAssessments(result.Assessments)
		e.observer.ObserveRecommendations(result.Recommendations)
	}
	e.finish(runID, StageRun, start, len(raw), changed, err)
	return result, err
}

func (e *Engine) run(ctx context.Context, runID string, raw []model.RawRecord) (*RunResult, error) {
	records, bundle, assessments, err := e.assess(ctx, raw)
	if err != nil {
		return nil, err
	}

	recs, err := e.optimizeJoined(ctx, records, assessments)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		RunID:           runID,
		ModelVersion:    bundle.Version(),
		Policy:          e.optimizer.Policy().Kind,
		CreatedAt:       time.Now().UTC(),
		Recommendations: recs,
		Assessments:     assessments,
		Records:         records,
	}, nil
}

// OptimizeWith 使用已有的风险评估生成建议（例如已存储的预测结果）
// 每条记录必须恰好关联一条评估，否则返回 JOIN_MISMATCH
func (e *Engine) OptimizeWith(ctx context.Context, records []model.EmployeeRecord, assessments []model.RiskAssessment) ([]model.Recommendation, error) {
	runID := uuid.NewString()
	start := time.Now()
	e.log.RunStart(runID, StageOptimize, len(records))

	recs, err := e.optimizeWith(ctx, records, assessments)
	changed := 0
	if err == nil {
		changed = len(model.FilterChanged(recs))
		e.observer.ObserveRecommendations(recs)
	}
	e.finish(runID, StageOptimize, start, len(records), changed, err)
	return recs, err
}

func (e *Engine) optimizeWith(ctx context.Context, records []model.EmployeeRecord, assessments []model.RiskAssessment) ([]model.Recommendation, error) {
	if err := e.checkUnique(records); err != nil {
		return nil, err
	}
	scored, err := e.ensureFatigue(ctx, records)
	if err != nil {
		return nil, err
	}
	return e.optimizeJoined(ctx, scored, assessments)
}

// Assess 归一化、补全疲劳评分并评估离职风险
func (e *Engine) Assess(ctx context.Context, raw []model.RawRecord) (*AssessResult, error) {
	return e.assessStage(len(raw), func() ([]model.EmployeeRecord, *risk.Bundle, []model.RiskAssessment, error) {
		return e.assess(ctx, raw)
	})
}

// AssessRecords 评估已归一化的记录（例如已存储的员工）
func (e *Engine) AssessRecords(ctx context.Context, records []model.EmployeeRecord) (*AssessResult, error) {
	return e.assessStage(len(records), func() ([]model.EmployeeRecord, *risk.Bundle, []model.RiskAssessment, error) {
		return e.assessRecords(ctx, records)
	})
}

func (e *Engine) assessStage(n int, fn func() ([]model.EmployeeRecord, *risk.Bundle, []model.RiskAssessment, error)) (*AssessResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	e.log.RunStart(runID, StageAssess, n)

	records, bundle, assessments, err := fn()
	var result *AssessResult
	if err == nil {
		result = &AssessResult{
			ModelVersion: bundle.Version(),
			Records:      records,
			Assessments:  assessments,
		}
		e.observer.ObserveAssessments(assessments)
	}
	e.finish(runID, StageAssess, start, n, 0, err)
	return result, err
}

// ScoreFatigue 归一化并计算疲劳评分（忽略输入中已有的评分）
func (e *Engine) ScoreFatigue(ctx context.Context, raw []model.RawRecord) ([]FatigueResult, error) {
	start := time.Now()
	records := normalizer.Normalize(raw)

	results, err := mapOrdered(ctx, e.workers, records, func(r model.EmployeeRecord) (FatigueResult, error) {
		return FatigueResult{
			EmployeeID: r.ID,
			Score:      e.scorer.Score(r),
			Components: e.scorer.Components(r),
		}, nil
	})
	e.observer.ObserveStage(StageFatigue, time.Since(start), len(raw), err)
	return results, err
}

// Prepare 归一化并补全缺失的疲劳评分，不依赖风险模型
func (e *Engine) Prepare(ctx context.Context, raw []model.RawRecord) ([]model.EmployeeRecord, error) {
	return e.ensureFatigue(ctx, normalizer.Normalize(raw))
}

// Importance 返回当前模型的特征重要度（降序）
func (e *Engine) Importance() ([]risk.FeatureImportance, error) {
	return e.classifier.Importance()
}

// ModelVersion 返回当前模型版本，未加载时为空
func (e *Engine) ModelVersion() string {
	b, err := e.classifier.Bundle()
	if err != nil {
		return ""
	}
	return b.Version()
}

// Policy 返回优化策略
func (e *Engine) Policy() optimizer.Policy {
	return e.optimizer.Policy()
}

// RuleCatalog 返回当前策略的规则库
func (e *Engine) RuleCatalog() optimizer.Catalog {
	return e.optimizer.Catalog()
}

// Reload 原子替换模型制品
func (e *Engine) Reload(b *risk.Bundle) error {
	start := time.Now()
	err := e.classifier.Reload(b)
	version := ""
	if err == nil {
		version = b.Version()
		e.log.ModelLoaded(version, len(b.Features()))
	}
	e.observer.ObserveReload(version, err)
	e.observer.ObserveStage(StageModelReload, time.Since(start), 0, err)
	return err
}

// ReloadFromFile 从文件加载制品并替换；加载失败时保留原制品
func (e *Engine) ReloadFromFile(path string) error {
	b, err := risk.LoadBundle(path)
	if err != nil {
		e.log.ModelUnavailable(err)
		e.observer.ObserveReload("", err)
		return err
	}
	return e.Reload(b)
}

// assess 归一化后评估整批
func (e *Engine) assess(ctx context.Context, raw []model.RawRecord) ([]model.EmployeeRecord, *risk.Bundle, []model.RiskAssessment, error) {
	return e.assessRecords(ctx, normalizer.Normalize(raw))
}

// assessRecords 补全疲劳评分并用同一个制品快照评估整批
func (e *Engine) assessRecords(ctx context.Context, records []model.EmployeeRecord) ([]model.EmployeeRecord, *risk.Bundle, []model.RiskAssessment, error) {
	bundle, err := e.classifier.Bundle()
	if err != nil {
		return nil, nil, nil, err
	}

	if err := e.checkUnique(records); err != nil {
		return nil, nil, nil, err
	}
	records, err = e.ensureFatigue(ctx, records)
	if err != nil {
		return nil, nil, nil, err
	}

	assessments, err := bundle.Assess(records)
	if err != nil {
		return nil, nil, nil, err
	}
	return records, bundle, assessments, nil
}

// ensureFatigue 为缺少疲劳评分的记录计算评分，返回副本
func (e *Engine) ensureFatigue(ctx context.Context, records []model.EmployeeRecord) ([]model.EmployeeRecord, error) {
	return mapOrdered(ctx, e.workers, records, func(r model.EmployeeRecord) (model.EmployeeRecord, error) {
		return e.scorer.Fill(r), nil
	})
}

// joined 关联后的记录与评估
type joined struct {
	record     model.EmployeeRecord
	assessment model.RiskAssessment
}

// optimizeJoined 按员工编号关联评估后逐条优化
func (e *Engine) optimizeJoined(ctx context.Context, records []model.EmployeeRecord, assessments []model.RiskAssessment) ([]model.Recommendation, error) {
	index, dup, ok := model.IndexAssessments(assessments)
	if !ok {
		e.log.JoinMismatch(dup, "风险评估中员工编号重复")
		return nil, errors.JoinMismatch(dup, "风险评估中员工编号重复")
	}

	pairs := make([]joined, len(records))
	for i, r := range records {
		a, found := index[r.ID]
		if !found {
			e.log.JoinMismatch(r.ID, "缺少风险评估")
			return nil, errors.JoinMismatch(r.ID, "缺少风险评估")
		}
		pairs[i] = joined{record: r, assessment: a}
	}

	return mapOrdered(ctx, e.workers, pairs, func(p joined) (model.Recommendation, error) {
		return e.optimizer.Optimize(p.record, p.assessment)
	})
}

// checkUnique 批次内员工编号必须唯一，否则无法一一关联
func (e *Engine) checkUnique(records []model.EmployeeRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			e.log.JoinMismatch(r.ID, "批次内员工编号重复")
			return errors.JoinMismatch(r.ID, "批次内员工编号重复")
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

func (e *Engine) finish(runID, stage string, start time.Time, records, changed int, err error) {
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, errors.CodeModelUnavailable) {
			e.log.ModelUnavailable(err)
		}
		e.log.RunFailed(runID, stage, err)
	} else {
		e.log.RunComplete(runID, stage, duration, changed)
	}
	e.observer.ObserveStage(stage, duration, records, err)
}
