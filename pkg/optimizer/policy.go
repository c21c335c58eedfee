package optimizer

import (
	"fmt"
	"strings"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// PolicyKind 规则集类型
type PolicyKind string

const (
	PolicyStandard PolicyKind = "standard" // 疲劳优先，其次风险封顶
	PolicyAdvanced PolicyKind = "advanced" // 疲劳或离职概率触发，中度疲劳封顶
)

// Policy 优化阈值与封顶参数
type Policy struct {
	Kind PolicyKind `json:"kind"`

	// 疲劳阈值，超过即轮换夜班并封顶加班
	FatigueThreshold   float64 `json:"fatigue_threshold"`
	FatigueOvertimeCap float64 `json:"fatigue_overtime_cap"`

	// 标准策略：高风险时的加班封顶
	RiskOvertimeCap float64 `json:"risk_overtime_cap"`

	// 进阶策略
	ProbabilityThreshold     float64 `json:"probability_threshold"`
	ModerateFatigueThreshold float64 `json:"moderate_fatigue_threshold"`
	ModerateOvertimeCap      float64 `json:"moderate_overtime_cap"`
}

// StandardPolicy 默认策略
func StandardPolicy() Policy {
	return Policy{
		Kind:                     PolicyStandard,
		FatigueThreshold:         75,
		FatigueOvertimeCap:       8,
		RiskOvertimeCap:          10,
		ProbabilityThreshold:     0.4,
		ModerateFatigueThreshold: 60,
		ModerateOvertimeCap:      12,
	}
}

// AdvancedPolicy 进阶策略
func AdvancedPolicy() Policy {
	p := StandardPolicy()
	p.Kind = PolicyAdvanced
	return p
}

// ParsePolicyKind 解析策略类型（大小写不敏感，空串为标准策略）
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch PolicyKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStandard:
		return PolicyStandard, nil
	case PolicyAdvanced:
		return PolicyAdvanced, nil
	default:
		return "", errors.InvalidInput("policy", fmt.Sprintf("未知的优化策略 %q", s))
	}
}

// Validate 验证策略参数
func (p Policy) Validate() error {
	ve := &errors.ValidationErrors{}
	if p.Kind != PolicyStandard && p.Kind != PolicyAdvanced {
		ve.Add("kind", "未知的优化策略")
	}
	if p.FatigueThreshold < 0 || p.FatigueThreshold > 100 {
		ve.Add("fatigue_threshold", "必须在 0-100 之间")
	}
	if p.FatigueOvertimeCap < 0 {
		ve.Add("fatigue_overtime_cap", "不能为负数")
	}
	if p.RiskOvertimeCap < 0 {
		ve.Add("risk_overtime_cap", "不能为负数")
	}
	if p.ProbabilityThreshold < 0 || p.ProbabilityThreshold > 1 {
		ve.Add("probability_threshold", "必须在 0-1 之间")
	}
	if p.ModerateOvertimeCap < 0 {
		ve.Add("moderate_overtime_cap", "不能为负数")
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// Fallback 未触发任何调整时的动作标签
func (p Policy) Fallback() string {
	if p.Kind == PolicyAdvanced {
		return model.ActionKeepCurrent
	}
	return model.ActionMaintained
}

// Rules 按策略生成规则集
func (p Policy) Rules() []Rule {
	if p.Kind == PolicyAdvanced {
		return []Rule{
			&fatigueOrProbabilityRule{policy: p},
			&moderateFatigueRule{policy: p},
		}
	}
	return []Rule{
		&highFatigueRule{policy: p},
		&highRiskRule{policy: p},
	}
}
