// Package fatigue 提供基于员工属性的疲劳评分
package fatigue

import (
	"math"

	"github.com/shiftsync/shiftsync/pkg/model"
)

// MaxScore 疲劳评分上限
const MaxScore = 100.0

// Weights 疲劳评分权重
//
// 每个分量为 (属性 / 基准) × 权重；年龄分量为 ((AgePivot - 年龄) / AgeSpan) × AgeWeight，
// 年龄超过 AgePivot 时为负值，不单独截断。
type Weights struct {
	OvertimeBase   float64 `json:"overtime_base"`
	OvertimeWeight float64 `json:"overtime_weight"`
	NightWeight    float64 `json:"night_weight"`
	CommuteBase    float64 `json:"commute_base"`
	CommuteWeight  float64 `json:"commute_weight"`
	AgePivot       float64 `json:"age_pivot"`
	AgeSpan        float64 `json:"age_span"`
	AgeWeight      float64 `json:"age_weight"`
	LeaveBase      float64 `json:"leave_base"`
	LeaveWeight    float64 `json:"leave_weight"`
}

// DefaultWeights 返回默认权重（百分制）
func DefaultWeights() Weights {
	return Weights{
		OvertimeBase:   40,
		OvertimeWeight: 40,
		NightWeight:    25,
		CommuteBase:    50,
		CommuteWeight:  15,
		AgePivot:       60,
		AgeSpan:        40,
		AgeWeight:      10,
		LeaveBase:      10,
		LeaveWeight:    10,
	}
}

// Components 评分分量明细
type Components struct {
	Overtime float64 `json:"overtime"`
	Night    float64 `json:"night"`
	Commute  float64 `json:"commute"`
	Age      float64 `json:"age"`
	Leave    float64 `json:"leave"`
}

// Sum 分量之和（未截断）
func (c Components) Sum() float64 {
	return c.Overtime + c.Night + c.Commute + c.Age + c.Leave
}

// Scorer 疲劳评分器，无状态、可并发使用
type Scorer struct {
	weights Weights
}

// NewScorer 创建疲劳评分器
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// NewDefaultScorer 使用默认权重创建评分器
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// Weights 返回评分权重
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Components 计算评分分量
func (s *Scorer) Components(r model.EmployeeRecord) Components {
	w := s.weights
	c := Components{
		Overtime: ratio(r.OvertimeHours, w.OvertimeBase) * w.OvertimeWeight,
		Commute:  ratio(r.DistanceKm, w.CommuteBase) * w.CommuteWeight,
		Age:      ratio(w.AgePivot-float64(r.Age), w.AgeSpan) * w.AgeWeight,
		Leave:    ratio(float64(r.LastMonthLeave), w.LeaveBase) * w.LeaveWeight,
	}
	if r.ShiftType.IsNight() {
		c.Night = w.NightWeight
	}
	return c
}

// Score 计算疲劳评分
// 结果保留两位小数，仅截断上限 100；极端年长、低负荷的员工可能得到负分
func (s *Scorer) Score(r model.EmployeeRecord) float64 {
	return math.Min(model.Round2(s.Components(r).Sum()), MaxScore)
}

// Fill 缺少疲劳评分时计算并返回副本，已有评分（包括负分）保持不变
func (s *Scorer) Fill(r model.EmployeeRecord) model.EmployeeRecord {
	if _, ok := r.Fatigue(); ok {
		return r
	}
	return r.WithFatigue(s.Score(r))
}

func ratio(v, base float64) float64 {
	if base == 0 {
		return 0
	}
	return v / base
}
