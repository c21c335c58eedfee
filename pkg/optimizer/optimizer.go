// Package optimizer 将疲劳评分和离职风险转换为班次/加班调整建议
package optimizer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// Optimizer 规则优化器，按优先级依次评估，首个命中的规则生效
type Optimizer struct {
	policy   Policy
	fallback string
	rules    []Rule
	mu       sync.RWMutex
}

// New 按策略创建优化器
func New(p Policy) (*Optimizer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o := &Optimizer{
		policy:   p,
		fallback: p.Fallback(),
		rules:    make([]Rule, 0),
	}
	for _, r := range p.Rules() {
		o.Register(r)
	}
	return o, nil
}

// NewDefault 使用标准策略创建优化器
func NewDefault() *Optimizer {
	o, _ := New(StandardPolicy())
	return o
}

// Policy 返回策略
func (o *Optimizer) Policy() Policy {
	return o.policy
}

// Register 注册规则，同名规则被替换
func (o *Optimizer) Register(r Rule) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, existing := range o.rules {
		if existing.Name() == r.Name() {
			o.rules[i] = r
			return
		}
	}

	o.rules = append(o.rules, r)

	// 优先级高的在前，同优先级保持注册顺序
	sort.SliceStable(o.rules, func(i, j int) bool {
		return o.rules[i].Priority() > o.rules[j].Priority()
	})
}

// Rules 返回规则列表副本
func (o *Optimizer) Rules() []Rule {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]Rule, len(o.rules))
	copy(result, o.rules)
	return result
}

// Optimize 为单个员工生成调整建议
// 记录与评估的员工编号不一致时返回 JOIN_MISMATCH
func (o *Optimizer) Optimize(record model.EmployeeRecord, assessment model.RiskAssessment) (model.Recommendation, error) {
	if record.ID != assessment.EmployeeID {
		return model.Recommendation{}, errors.JoinMismatch(record.ID,
			fmt.Sprintf("风险评估属于员工 %s", assessment.EmployeeID))
	}
	fatigue, ok := record.Fatigue()
	if !ok {
		return model.Recommendation{}, errors.InvalidInput(model.FieldFatigueScore,
			fmt.Sprintf("员工 %s 缺少疲劳评分", record.ID))
	}

	s := Subject{Record: record, Assessment: assessment, Fatigue: fatigue}
	out := keep(s)
	ruleName := ""
	for _, r := range o.Rules() {
		if r.Match(s) {
			out = r.Apply(s)
			ruleName = r.Name()
			break
		}
	}

	return model.Recommendation{
		EmployeeID:      record.ID,
		Fatigue:         fatigue,
		Risk:            assessment.Band,
		Probability:     assessment.Probability,
		CurrentShift:    record.ShiftType,
		OptimalShift:    out.Shift,
		CurrentOvertime: record.OvertimeHours,
		OptimalOvertime: out.Overtime,
		Action:          model.JoinActions(out.Actions, o.fallback),
		Rule:            ruleName,
	}, nil
}
