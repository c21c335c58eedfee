package optimizer

import (
	"strconv"

	"github.com/shiftsync/shiftsync/pkg/model"
)

// RuleParam 规则参数
type RuleParam struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// RuleDefinition 规则说明
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Priority    int         `json:"priority"`
	Condition   string      `json:"condition"`
	Actions     []string    `json:"actions"`
	Params      []RuleParam `json:"params"`
}

// Catalog 规则库，包含当前策略下的规则（按评估顺序）与兜底动作
type Catalog struct {
	Policy   Policy           `json:"policy"`
	Rules    []RuleDefinition `json:"rules"`
	Fallback string           `json:"fallback"`
}

type describer interface {
	describe() RuleDefinition
}

// Catalog 返回规则库
func (o *Optimizer) Catalog() Catalog {
	rules := o.Rules()
	defs := make([]RuleDefinition, 0, len(rules))
	for _, r := range rules {
		def := RuleDefinition{Name: r.Name(), DisplayName: r.Name()}
		if d, ok := r.(describer); ok {
			def = d.describe()
		}
		def.Priority = r.Priority()
		defs = append(defs, def)
	}
	return Catalog{Policy: o.policy, Rules: defs, Fallback: o.fallback}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *highFatigueRule) describe() RuleDefinition {
	return RuleDefinition{
		Name:        r.Name(),
		DisplayName: "高疲劳轮换",
		Condition:   "Fatigue_Score > " + num(r.policy.FatigueThreshold),
		Actions:     []string{model.ActionRotatedToMorning, model.CappedOTAction(r.policy.FatigueOvertimeCap)},
		Params: []RuleParam{
			{Name: "fatigue_threshold", Value: r.policy.FatigueThreshold},
			{Name: "fatigue_overtime_cap", Value: r.policy.FatigueOvertimeCap},
		},
	}
}

func (r *highRiskRule) describe() RuleDefinition {
	return RuleDefinition{
		Name:        r.Name(),
		DisplayName: "高风险加班封顶",
		Condition:   "Attrition_Risk == High",
		Actions:     []string{model.ActionRiskCap},
		Params: []RuleParam{
			{Name: "risk_overtime_cap", Value: r.policy.RiskOvertimeCap},
		},
	}
}

func (r *fatigueOrProbabilityRule) describe() RuleDefinition {
	return RuleDefinition{
		Name:        r.Name(),
		DisplayName: "疲劳或离职概率轮换",
		Condition:   "Fatigue_Score > " + num(r.policy.FatigueThreshold) + " || Probability > " + num(r.policy.ProbabilityThreshold),
		Actions:     []string{model.ActionRotateToMorning, model.CapOTAction(r.policy.FatigueOvertimeCap)},
		Params: []RuleParam{
			{Name: "fatigue_threshold", Value: r.policy.FatigueThreshold},
			{Name: "probability_threshold", Value: r.policy.ProbabilityThreshold},
			{Name: "fatigue_overtime_cap", Value: r.policy.FatigueOvertimeCap},
		},
	}
}

func (r *moderateFatigueRule) describe() RuleDefinition {
	return RuleDefinition{
		Name:        r.Name(),
		DisplayName: "中度疲劳加班封顶",
		Condition:   "Fatigue_Score > " + num(r.policy.ModerateFatigueThreshold),
		Actions:     []string{model.CapOTAction(r.policy.ModerateOvertimeCap)},
		Params: []RuleParam{
			{Name: "moderate_fatigue_threshold", Value: r.policy.ModerateFatigueThreshold},
			{Name: "moderate_overtime_cap", Value: r.policy.ModerateOvertimeCap},
		},
	}
}
