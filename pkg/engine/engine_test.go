package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
	"github.com/shiftsync/shiftsync/pkg/optimizer"
	"github.com/shiftsync/shiftsync/pkg/risk"
)

// linearModel 以第一个（已缩放）特征作为概率
type linearModel struct{}

func (linearModel) Kind() string { return "linear" }
func (linearModel) Dim() int     { return 1 }
func (linearModel) PredictProba(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, x := range rows {
		out[i] = x[0]
	}
	return out, nil
}

// singleFeatureBundle 概率 = 特征值 / scale
func singleFeatureBundle(t *testing.T, version, feature string, scale float64) *risk.Bundle {
	t.Helper()
	b, err := risk.NewBundle(risk.BundleConfig{
		Version:    version,
		Features:   []string{feature},
		Scaler:     risk.Scaler{Center: []float64{0}, Scale: []float64{scale}},
		Model:      linearModel{},
		Importance: map[string]float64{feature: 1},
	})
	require.NoError(t, err)
	return b
}

type recordingObserver struct {
	mu              sync.Mutex
	stages          []string
	failed          []string
	assessments     int
	recommendations int
	reloads         []string
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
	if err != nil {
		o.failed = append(o.failed, stage)
	}
}

func (o *recordingObserver) ObserveAssessments(as []model.RiskAssessment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.assessments += len(as)
}

func (o *recordingObserver) ObserveRecommendations(recs []model.Recommendation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recommendations += len(recs)
}

func (o *recordingObserver) ObserveReload(version string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.reloads = append(o.reloads, version)
	}
}

// threeEmployees A 夜班高加班、B 早班零负荷、C 晚班长通勤；列名大小写混杂
func threeEmployees() []model.RawRecord {
	return []model.RawRecord{
		{"employee_id": "A", "overtime_hours": 20, "SHIFT_TYPE": "night", "Distance km": 10, "age": 25, "last_month_leave": 2},
		{"Employee_ID": "B", "Overtime_Hours": 0, "Shift_Type": "Morning", "Distance_km": 0, "Age": 50, "Last_Month_Leave": 0},
		{"Employee_ID": "C", "Overtime_Hours": "8", "Shift_Type": "Evening", "Distance_km": 50, "Age": 60, "Last_Month_Leave": 10},
	}
}

func fatigueEngine(t *testing.T, obs Observer) *Engine {
	return New(Options{
		Classifier: risk.NewClassifier(singleFeatureBundle(t, "fatigue-v1", model.FieldFatigueScore, 80)),
		Workers:    3,
		Observer:   obs,
	})
}

func TestEngine_RunEndToEnd(t *testing.T) {
	obs := &recordingObserver{}
	e := fatigueEngine(t, obs)

	result, err := e.Run(context.Background(), threeEmployees())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "fatigue-v1", result.ModelVersion)
	assert.Equal(t, optimizer.PolicyStandard, result.Policy)
	require.Len(t, result.Recommendations, 3)

	ids := []string{}
	for _, r := range result.Recommendations {
		ids = append(ids, r.EmployeeID)
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids, "输出顺序与输入一致")

	a, b, c := result.Recommendations[0], result.Recommendations[1], result.Recommendations[2]
	assert.Equal(t, 58.75, a.Fatigue)
	assert.Equal(t, 2.5, b.Fatigue)
	assert.Equal(t, 33.0, c.Fatigue)
	assert.Greater(t, a.Fatigue, c.Fatigue)
	assert.Greater(t, c.Fatigue, b.Fatigue)
	assert.Greater(t, a.Fatigue, 50.0)
	assert.Less(t, c.Fatigue, 50.0)

	// A: 58.75/80 > 0.6 为高风险，加班 20 封顶到 10
	assert.Equal(t, model.RiskHigh, a.Risk)
	assert.Equal(t, model.ShiftNight, a.OptimalShift)
	assert.Equal(t, 10.0, a.OptimalOvertime)
	assert.Equal(t, model.ActionRiskCap, a.Action)

	assert.Equal(t, model.RiskLow, b.Risk)
	assert.Equal(t, model.ActionMaintained, b.Action)
	assert.Equal(t, model.RiskMedium, c.Risk)
	assert.Equal(t, model.ActionMaintained, c.Action)

	assert.Equal(t, 1, result.Changed())
	require.Len(t, result.Records, 3)
	score, ok := result.Records[2].Fatigue()
	require.True(t, ok)
	assert.Equal(t, 33.0, score)

	assert.Equal(t, []string{StageRun}, obs.stages)
	assert.Equal(t, 3, obs.assessments)
	assert.Equal(t, 3, obs.recommendations)
}

func TestEngine_RunKeepsProvidedFatigue(t *testing.T) {
	e := fatigueEngine(t, nil)

	result, err := e.Run(context.Background(), []model.RawRecord{
		{"Employee_ID": "X", "Overtime_Hours": 12, "Shift_Type": "Night", "Fatigue_Score": 90},
	})
	require.NoError(t, err)

	rec := result.Recommendations[0]
	assert.Equal(t, 90.0, rec.Fatigue)
	assert.Equal(t, model.ShiftMorning, rec.OptimalShift)
	assert.Equal(t, 8.0, rec.OptimalOvertime)
	assert.Equal(t, "Rotated to Morning | Capped OT 8h", rec.Action)
}

func TestEngine_RunModelUnavailable(t *testing.T) {
	obs := &recordingObserver{}
	e := New(Options{Observer: obs})

	_, err := e.Run(context.Background(), threeEmployees())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeModelUnavailable))
	assert.Equal(t, []string{StageRun}, obs.failed)
	assert.Zero(t, obs.recommendations)
}

func TestEngine_RunDuplicateIDs(t *testing.T) {
	e := fatigueEngine(t, nil)

	raw := threeEmployees()
	raw = append(raw, model.RawRecord{"Employee_ID": "B"})

	_, err := e.Run(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeJoinMismatch))
}

func TestEngine_RunSchemaMismatch(t *testing.T) {
	b, err := risk.NewBundle(risk.BundleConfig{
		Version:  "needs-region",
		Features: []string{"Region"},
		Scaler:   risk.Scaler{Center: []float64{0}, Scale: []float64{1}},
		Model:    linearModel{},
	})
	require.NoError(t, err)
	e := New(Options{Classifier: risk.NewClassifier(b)})

	result, err := e.Run(context.Background(), threeEmployees())
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, errors.CodeSchemaMismatch))
}

func TestEngine_RunEmptyBatch(t *testing.T) {
	e := fatigueEngine(t, nil)

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Recommendations)
}

func TestEngine_RunCancelled(t *testing.T) {
	e := fatigueEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, threeEmployees())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTimeout))
}

func TestEngine_ParallelMatchesSequential(t *testing.T) {
	raw := make([]model.RawRecord, 0, 200)
	shifts := []string{"Morning", "Evening", "Night"}
	for i := 0; i < 200; i++ {
		raw = append(raw, model.RawRecord{
			"Employee_ID":      fmt.Sprintf("EMP_%04d", i),
			"Overtime_Hours":   i % 25,
			"Shift_Type":       shifts[i%3],
			"Distance_km":      i % 45,
			"Age":              19 + i%40,
			"Last_Month_Leave": i % 8,
		})
	}

	bundle := singleFeatureBundle(t, "v", model.FieldFatigueScore, 100)
	sequential := New(Options{Classifier: risk.NewClassifier(bundle), Workers: 1})
	parallel := New(Options{Classifier: risk.NewClassifier(bundle), Workers: 16})

	want, err := sequential.Run(context.Background(), raw)
	require.NoError(t, err)
	got, err := parallel.Run(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, want.Recommendations, got.Recommendations)
	assert.Equal(t, want.Assessments, got.Assessments)
}

func TestEngine_OptimizeWith(t *testing.T) {
	e := fatigueEngine(t, nil)

	records := []model.EmployeeRecord{
		{ID: "A", ShiftType: model.ShiftNight, OvertimeHours: 20, Age: 25, DistanceKm: 10, LastMonthLeave: 2},
		{ID: "B", ShiftType: model.ShiftMorning, OvertimeHours: 12, Age: 40},
	}
	stored := []model.RiskAssessment{
		{EmployeeID: "Z", Probability: 0.9, Band: model.RiskHigh},
		{EmployeeID: "B", Probability: 0.7, Band: model.RiskHigh},
		{EmployeeID: "A", Probability: 0.1, Band: model.RiskLow},
	}

	recs, err := e.OptimizeWith(context.Background(), records, stored)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "A", recs[0].EmployeeID)
	assert.Equal(t, model.ActionMaintained, recs[0].Action)
	assert.Equal(t, "B", recs[1].EmployeeID)
	assert.Equal(t, 10.0, recs[1].OptimalOvertime)
	assert.Nil(t, records[0].FatigueScore, "不修改调用方记录")
}

func TestEngine_OptimizeWithJoinMismatch(t *testing.T) {
	e := fatigueEngine(t, nil)
	records := []model.EmployeeRecord{{ID: "A"}, {ID: "B"}}

	tests := []struct {
		name        string
		records     []model.EmployeeRecord
		assessments []model.RiskAssessment
	}{
		{"缺少评估", records, []model.RiskAssessment{{EmployeeID: "A"}}},
		{"评估重复", records, []model.RiskAssessment{{EmployeeID: "A"}, {EmployeeID: "B"}, {EmployeeID: "A"}}},
		{"记录重复", []model.EmployeeRecord{{ID: "A"}, {ID: "A"}}, []model.RiskAssessment{{EmployeeID: "A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := e.OptimizeWith(context.Background(), tt.records, tt.assessments)
			assert.Nil(t, recs)
			assert.True(t, errors.Is(err, errors.CodeJoinMismatch))
		})
	}
}

func TestEngine_Assess(t *testing.T) {
	e := fatigueEngine(t, nil)

	result, err := e.Assess(context.Background(), threeEmployees())
	require.NoError(t, err)
	assert.Equal(t, "fatigue-v1", result.ModelVersion)
	require.Len(t, result.Assessments, 3)
	assert.InDelta(t, 58.75/80, result.Assessments[0].Probability, 1e-12)
	assert.Equal(t, model.RiskHigh, result.Assessments[0].Band)
}

func TestEngine_AssessRecords(t *testing.T) {
	e := fatigueEngine(t, nil)

	records := []model.EmployeeRecord{
		model.EmployeeRecord{ID: "S1", ShiftType: model.ShiftMorning}.WithFatigue(64),
		{ID: "S2", ShiftType: model.ShiftNight, OvertimeHours: 20, DistanceKm: 10, Age: 25, LastMonthLeave: 2},
	}
	result, err := e.AssessRecords(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, result.Assessments, 2)
	assert.InDelta(t, 0.8, result.Assessments[0].Probability, 1e-12)
	assert.InDelta(t, 58.75/80, result.Assessments[1].Probability, 1e-12)

	_, ok := records[1].Fatigue()
	assert.False(t, ok, "不修改调用方的记录")

	_, err = e.AssessRecords(context.Background(), []model.EmployeeRecord{{ID: "D"}, {ID: "D"}})
	assert.True(t, errors.Is(err, errors.CodeJoinMismatch))
}

func TestEngine_ScoreFatigue(t *testing.T) {
	e := New(Options{})

	got, err := e.ScoreFatigue(context.Background(), threeEmployees())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].EmployeeID)
	assert.Equal(t, 58.75, got[0].Score)
	assert.Equal(t, 25.0, got[0].Components.Night)
	assert.Equal(t, 2.5, got[1].Score)
	assert.Equal(t, 33.0, got[2].Score)
}

func TestEngine_PrepareWithoutModel(t *testing.T) {
	e := New(Options{})

	records, err := e.Prepare(context.Background(), []model.RawRecord{
		{"Employee_ID": "A", "Overtime_Hours": 20, "Shift_Type": "Night", "Distance_km": 10, "Age": 25, "Last_Month_Leave": 2},
		{"Employee_ID": "B", "Fatigue_Score": 12},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	score, ok := records[0].Fatigue()
	require.True(t, ok)
	assert.Equal(t, 58.75, score)
	score, ok = records[1].Fatigue()
	require.True(t, ok)
	assert.Equal(t, 12.0, score, "已有评分保持不变")
}

func TestEngine_WhatIf(t *testing.T) {
	e := fatigueEngine(t, nil)

	got, err := e.WhatIf(context.Background(), threeEmployees(), WhatIfParams{OvertimeDelta: -100})
	require.NoError(t, err)

	assert.Equal(t, 3, got.Employees)
	assert.InDelta(t, (58.75+2.5+33)/80/3, got.Baseline.MeanProbability, 1e-9)
	assert.Equal(t, 1, got.Baseline.AtRisk)

	// 加班截断到 0：A=38.75, B=2.5, C=25
	assert.InDelta(t, (38.75+2.5+25)/80/3, got.Simulated.MeanProbability, 1e-9)
	assert.Equal(t, 0, got.Simulated.AtRisk)
	assert.Less(t, got.ProbabilityDelta, 0.0)
}

func TestEngine_WhatIfKeepsSuppliedFatigue(t *testing.T) {
	e := fatigueEngine(t, nil)
	raw := []model.RawRecord{{"Employee_ID": "A", "Fatigue_Score": 70, "Overtime_Hours": 0, "Age": 60}}

	tests := []struct {
		name   string
		params WhatIfParams
	}{
		{"无调整", WhatIfParams{}},
		{"加班调整不改写已有评分", WhatIfParams{OvertimeDelta: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.WhatIf(context.Background(), raw, tt.params)
			require.NoError(t, err)
			assert.InDelta(t, 70.0/80, got.Baseline.MeanProbability, 1e-12)
			assert.Equal(t, got.Baseline, got.Simulated)
			assert.Equal(t, 0.0, got.ProbabilityDelta)
		})
	}
}

func TestEngine_WhatIfClipping(t *testing.T) {
	wages := New(Options{Classifier: risk.NewClassifier(singleFeatureBundle(t, "w", model.FieldDailyWages, 1000))})
	raw := []model.RawRecord{{"Employee_ID": "A", "Daily_Wages": 500}}

	got, err := wages.WhatIf(context.Background(), raw, WhatIfParams{WageDelta: -200})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.Baseline.MeanProbability, 1e-12)
	assert.InDelta(t, 0.45, got.Simulated.MeanProbability, 1e-12)

	overtime := New(Options{Classifier: risk.NewClassifier(singleFeatureBundle(t, "o", model.FieldOvertimeHours, 100))})
	raw = []model.RawRecord{{"Employee_ID": "A", "Overtime_Hours": 30}}

	got, err = overtime.WhatIf(context.Background(), raw, WhatIfParams{OvertimeDelta: 25})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got.Simulated.MeanProbability, 1e-12)
}

func TestEngine_ReloadAndImportance(t *testing.T) {
	obs := &recordingObserver{}
	e := New(Options{Observer: obs})
	assert.Equal(t, "", e.ModelVersion())

	_, err := e.Importance()
	assert.True(t, errors.Is(err, errors.CodeModelUnavailable))

	require.NoError(t, e.Reload(singleFeatureBundle(t, "v2", model.FieldFatigueScore, 100)))
	assert.Equal(t, "v2", e.ModelVersion())

	imp, err := e.Importance()
	require.NoError(t, err)
	assert.Equal(t, model.FieldFatigueScore, imp[0].Feature)

	assert.Error(t, e.Reload(nil))
	assert.Error(t, e.ReloadFromFile("does-not-exist.json"))
	assert.Equal(t, "v2", e.ModelVersion(), "加载失败时保留原制品")
	assert.Equal(t, []string{"v2"}, obs.reloads)
}
