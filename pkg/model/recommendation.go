package model

import (
	"strconv"
	"strings"
)

// 规则动作标签
const (
	ActionMaintained       = "Maintained"
	ActionRotatedToMorning = "Rotated to Morning"
	ActionCappedOT8        = "Capped OT 8h"
	ActionRiskCap          = "Risk Cap applied"

	// 进阶策略标签
	ActionKeepCurrent     = "Keep Current"
	ActionRotateToMorning = "Rotate to Morning"
	ActionCapOT8          = "Cap OT at 8h"
	ActionCapOT12         = "Cap OT at 12h"
)

// CappedOTAction 标准策略的加班封顶标签，默认封顶 8 小时时为 ActionCappedOT8
func CappedOTAction(hours float64) string {
	return "Capped OT " + formatHours(hours) + "h"
}

// CapOTAction 进阶策略的加班封顶标签，例如 ActionCapOT8、ActionCapOT12
func CapOTAction(hours float64) string {
	return "Cap OT at " + formatHours(hours) + "h"
}

func formatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

// ActionSeparator 多个动作之间的分隔符
const ActionSeparator = " | "

// Recommendation 排班/加班调整建议
type Recommendation struct {
	EmployeeID      string    `json:"Employee_ID"`
	Fatigue         float64   `json:"Fatigue"`
	Risk            RiskBand  `json:"Risk"`
	Probability     float64   `json:"Probability"`
	CurrentShift    ShiftType `json:"Current_Shift"`
	OptimalShift    ShiftType `json:"Optimal_Shift"`
	CurrentOvertime float64   `json:"Current_OT"`
	OptimalOvertime float64   `json:"Optimal_OT"`
	Action          string    `json:"Action"`
	Rule            string    `json:"Rule,omitempty"` // 命中的规则
}

// Changed 建议是否包含实际调整
func (r Recommendation) Changed() bool {
	return r.OptimalShift != r.CurrentShift || r.OptimalOvertime != r.CurrentOvertime
}

// Actions 拆分动作标签
func (r Recommendation) Actions() []string {
	return strings.Split(r.Action, ActionSeparator)
}

// JoinActions 拼接动作标签，无动作时返回默认标签
func JoinActions(actions []string, fallback string) string {
	if len(actions) == 0 {
		return fallback
	}
	return strings.Join(actions, ActionSeparator)
}

// FilterChanged 过滤掉无调整的建议（展示用）
func FilterChanged(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Changed() {
			out = append(out, r)
		}
	}
	return out
}
