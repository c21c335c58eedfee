package engine

import (
	"time"

	"github.com/shiftsync/shiftsync/pkg/model"
)

// 处理阶段
const (
	StageRun         = "run"
	StageOptimize    = "optimize"
	StageAssess      = "assess"
	StageFatigue     = "fatigue"
	StageWhatIf      = "whatif"
	StageModelReload = "model_reload"
)

// Observer 引擎事件观察者（指标采集）
type Observer interface {
	// ObserveStage 记录一次阶段执行
	ObserveStage(stage string, duration time.Duration, records int, err error)

	// ObserveAssessments 记录风险评估结果
	ObserveAssessments(assessments []model.RiskAssessment)

	// ObserveRecommendations 记录调整建议
	ObserveRecommendations(recs []model.Recommendation)

	// ObserveReload 记录模型重新加载
	ObserveReload(version string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, int, error) {}
func (nopObserver) ObserveAssessments([]model.RiskAssessment) {}
func (nopObserver) ObserveRecommendations([]model.Recommendation) {}
func (nopObserver) ObserveReload(string, error) {}
