package optimizer

import (
	"github.com/shiftsync/shiftsync/pkg/model"
)

// Subject 单个员工的规则输入
type Subject struct {
	Record     model.EmployeeRecord
	Assessment model.RiskAssessment
	Fatigue    float64
}

// Outcome 规则产出的调整
type Outcome struct {
	Shift    model.ShiftType
	Overtime float64
	Actions  []string
}

// keep 不做调整的初始产出
func keep(s Subject) Outcome {
	return Outcome{Shift: s.Record.ShiftType, Overtime: s.Record.OvertimeHours}
}

// Rule 优化规则
type Rule interface {
	// Name 返回规则名称
	Name() string

	// Priority 返回优先级，越大越先评估
	Priority() int

	// Match 是否命中；命中后不再评估后续规则
	Match(s Subject) bool

	// Apply 生成调整
	Apply(s Subject) Outcome
}

// rotateAndCap 夜班轮换到早班，超过封顶的加班降到封顶
func rotateAndCap(s Subject, limit float64, rotated, capped string) Outcome {
	out := keep(s)
	if s.Record.ShiftType.IsNight() {
		out.Shift = model.ShiftMorning
		out.Actions = append(out.Actions, rotated)
	}
	if s.Record.OvertimeHours > limit {
		out.Overtime = limit
		out.Actions = append(out.Actions, capped)
	}
	return out
}

// highFatigueRule 疲劳超过阈值
type highFatigueRule struct {
	policy Policy
}

func (r *highFatigueRule) Name() string  { return "high_fatigue" }
func (r *highFatigueRule) Priority() int { return 100 }

func (r *highFatigueRule) Match(s Subject) bool {
	return s.Fatigue > r.policy.FatigueThreshold
}

func (r *highFatigueRule) Apply(s Subject) Outcome {
	return rotateAndCap(s, r.policy.FatigueOvertimeCap, model.ActionRotatedToMorning, model.CappedOTAction(r.policy.FatigueOvertimeCap))
}

// highRiskRule 高风险员工加班封顶，班次不变
type highRiskRule struct {
	policy Policy
}

func (r *highRiskRule) Name() string  { return "high_risk" }
func (r *highRiskRule) Priority() int { return 50 }

func (r *highRiskRule) Match(s Subject) bool {
	return s.Assessment.Band == model.RiskHigh
}

func (r *highRiskRule) Apply(s Subject) Outcome {
	out := keep(s)
	if s.Record.OvertimeHours > r.policy.RiskOvertimeCap {
		out.Overtime = r.policy.RiskOvertimeCap
		out.Actions = append(out.Actions, model.ActionRiskCap)
	}
	return out
}

// fatigueOrProbabilityRule 疲劳或离职概率超过阈值
type fatigueOrProbabilityRule struct {
	policy Policy
}

func (r *fatigueOrProbabilityRule) Name() string  { return "fatigue_or_probability" }
func (r *fatigueOrProbabilityRule) Priority() int { return 100 }

func (r *fatigueOrProbabilityRule) Match(s Subject) bool {
	return s.Fatigue > r.policy.FatigueThreshold || s.Assessment.Probability > r.policy.ProbabilityThreshold
}

func (r *fatigueOrProbabilityRule) Apply(s Subject) Outcome {
	return rotateAndCap(s, r.policy.FatigueOvertimeCap, model.ActionRotateToMorning, model.CapOTAction(r.policy.FatigueOvertimeCap))
}

// moderateFatigueRule 中度疲劳加班封顶
type moderateFatigueRule struct {
	policy Policy
}

func (r *moderateFatigueRule) Name() string  { return "moderate_fatigue" }
func (r *moderateFatigueRule) Priority() int { return 50 }

func (r *moderateFatigueRule) Match(s Subject) bool {
	return s.Fatigue > r.policy.ModerateFatigueThreshold
}

func (r *moderateFatigueRule) Apply(s Subject) Outcome {
	out := keep(s)
	if s.Record.OvertimeHours > r.policy.ModerateOvertimeCap {
		out.Overtime = r.policy.ModerateOvertimeCap
		out.Actions = append(out.Actions, model.CapOTAction(r.policy.ModerateOvertimeCap))
	}
	return out
}
