package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/shiftsync/shiftsync/pkg/model"
	"github.com/shiftsync/shiftsync/pkg/normalizer"
)

// 假设分析的取值边界
const (
	MinDailyWages    = 450.0
	MaxOvertimeHours = 40.0

	// AtRiskProbability 计入“高危人数”的概率阈值
	AtRiskProbability = 0.5
)

// WhatIfParams 假设分析参数
type WhatIfParams struct {
	WageDelta     float64 `json:"wage_delta"`
	OvertimeDelta float64 `json:"overtime_delta"`
}

// WhatIfSummary 一组评估的汇总
type WhatIfSummary struct {
	MeanProbability float64 `json:"mean_probability"`
	AtRisk          int     `json:"at_risk"`
}

// WhatIfResult 假设分析结果
type WhatIfResult struct {
	ModelVersion string        `json:"model_version"`
	Params       WhatIfParams  `json:"params"`
	Employees    int           `json:"employees"`
	Baseline     WhatIfSummary `json:"baseline"`
	Simulated    WhatIfSummary `json:"simulated"`
	// 模拟后平均概率减去基线平均概率
	ProbabilityDelta float64 `json:"probability_delta"`
}

// WhatIf 模拟调整日薪和加班后的整体离职风险
// 日薪下限 450，加班限定在 [0, 40]；输入自带的疲劳评分保持不变，其余按调整后的属性重新计算
func (e *Engine) WhatIf(ctx context.Context, raw []model.RawRecord, params WhatIfParams) (*WhatIfResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	e.log.RunStart(runID, StageWhatIf, len(raw))

	result, err := e.whatIf(ctx, raw, params)
	e.finish(runID, StageWhatIf, start, len(raw), 0, err)
	return result, err
}

// scenario 假设分析中的单个员工，supplied 表示疲劳评分来自输入
type scenario struct {
	record   model.EmployeeRecord
	supplied bool
}

func (e *Engine) whatIf(ctx context.Context, raw []model.RawRecord, params WhatIfParams) (*WhatIfResult, error) {
	normalized := normalizer.Normalize(raw)
	records, bundle, baseline, err := e.assessRecords(ctx, normalized)
	if err != nil {
		return nil, err
	}

	scenarios := make([]scenario, len(records))
	for i, r := range records {
		_, supplied := normalized[i].Fatigue()
		scenarios[i] = scenario{record: r, supplied: supplied}
	}

	simulated, err := mapOrdered(ctx, e.workers, scenarios, func(sc scenario) (model.EmployeeRecord, error) {
		r := sc.record
		r.DailyWages = math.Max(r.DailyWages+params.WageDelta, MinDailyWages)
		r.OvertimeHours = math.Min(math.Max(r.OvertimeHours+params.OvertimeDelta, 0), MaxOvertimeHours)
		if sc.supplied {
			return r, nil
		}
		return r.WithFatigue(e.scorer.Score(r)), nil
	})
	if err != nil {
		return nil, err
	}

	after, err := bundle.Assess(simulated)
	if err != nil {
		return nil, err
	}

	result := &WhatIfResult{
		ModelVersion: bundle.Version(),
		Params:       params,
		Employees:    len(records),
		Baseline:     summarize(baseline),
		Simulated:    summarize(after),
	}
	result.ProbabilityDelta = result.Simulated.MeanProbability - result.Baseline.MeanProbability
	return result, nil
}

func summarize(assessments []model.RiskAssessment) WhatIfSummary {
	var s WhatIfSummary
	if len(assessments) == 0 {
		return s
	}
	var sum float64
	for _, a := range assessments {
		sum += a.Probability
		if a.Probability > AtRiskProbability {
			s.AtRisk++
		}
	}
	s.MeanProbability = sum / float64(len(assessments))
	return s
}
