// Package stats 提供员工队伍统计分析功能
package stats

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/shiftsync/shiftsync/pkg/model"
)

// Overview 员工队伍概览
type Overview struct {
	// 规模与疲劳
	Strength        int     `json:"strength"`         // 员工总数
	AvgFatigue      float64 `json:"avg_fatigue"`      // 平均疲劳评分
	FatigueStdDev   float64 `json:"fatigue_std_dev"`  // 疲劳评分标准差
	MaxFatigue      float64 `json:"max_fatigue"`      // 最高疲劳评分
	MinFatigue      float64 `json:"min_fatigue"`      // 最低疲劳评分
	CriticalFatigue int     `json:"critical_fatigue"` // 疲劳超过临界值的人数
	FatigueGini     float64 `json:"fatigue_gini"`     // 疲劳基尼系数 (0=完全均衡)
	OvertimeGini    float64 `json:"overtime_gini"`    // 加班基尼系数

	// 加班与疲劳的相关系数
	OvertimeFatigueCorrelation float64 `json:"overtime_fatigue_correlation"`

	// 分布
	ShiftDistribution map[model.ShiftType]float64        `json:"shift_distribution"`      // 各班次人数占比（百分比）
	DepartmentShift   map[string]map[model.ShiftType]int `json:"department_shift"`        // 部门 x 班次人数
	RiskDistribution  map[model.RiskBand]int             `json:"risk_distribution"`       // 各风险等级人数
	AvgProbability    float64                            `json:"avg_probability"`         // 平均离职概率
	RiskRegistry      []model.RiskAssessment             `json:"risk_registry,omitempty"` // 按离职概率降序
}

// Analyzer 队伍统计分析器
type Analyzer struct {
	criticalFatigue float64 // 临界疲劳评分
}

// NewAnalyzer 创建统计分析器
func NewAnalyzer() *Analyzer {
	return &Analyzer{criticalFatigue: 75}
}

// NewAnalyzerWithThreshold 使用自定义临界疲劳评分创建分析器
func NewAnalyzerWithThreshold(critical float64) *Analyzer {
	return &Analyzer{criticalFatigue: critical}
}

// Analyze 统计员工队伍概览；assessments 可为空
// 缺少疲劳评分的记录不计入疲劳统计
func (a *Analyzer) Analyze(records []model.EmployeeRecord, assessments []model.RiskAssessment) *Overview {
	o := &Overview{
		Strength:          len(records),
		ShiftDistribution: make(map[model.ShiftType]float64),
		DepartmentShift:   make(map[string]map[model.ShiftType]int),
		RiskDistribution: map[model.RiskBand]int{
			model.RiskLow:    0,
			model.RiskMedium: 0,
			model.RiskHigh:   0,
		},
	}

	fatigues := make([]float64, 0, len(records))
	overtimes := make([]float64, 0, len(records))
	shiftCounts := make(map[model.ShiftType]int)

	for _, r := range records {
		shiftCounts[r.ShiftType]++

		dept, ok := o.DepartmentShift[r.Department]
		if !ok {
			dept = make(map[model.ShiftType]int)
			o.DepartmentShift[r.Department] = dept
		}
		dept[r.ShiftType]++

		if f, ok := r.Fatigue(); ok {
			fatigues = append(fatigues, f)
			overtimes = append(overtimes, r.OvertimeHours)
			if f > a.criticalFatigue {
				o.CriticalFatigue++
			}
		}
	}

	if len(records) > 0 {
		for shift, count := range shiftCounts {
			o.ShiftDistribution[shift] = float64(count) / float64(len(records)) * 100
		}
	}

	if len(fatigues) > 0 {
		o.AvgFatigue = model.Round2(a.calculateMean(fatigues))
		o.FatigueStdDev = model.Round2(math.Sqrt(a.calculateVariance(fatigues, a.calculateMean(fatigues))))
		o.MaxFatigue, o.MinFatigue = a.calculateRange(fatigues)
		o.FatigueGini = a.calculateGini(fatigues)
		o.OvertimeGini = a.calculateGini(overtimes)
		o.OvertimeFatigueCorrelation = a.calculateCorrelation(overtimes, fatigues)
	}

	if len(assessments) > 0 {
		probs := make([]float64, len(assessments))
		for i, as := range assessments {
			o.RiskDistribution[as.Band]++
			probs[i] = as.Probability
		}
		o.AvgProbability = a.calculateMean(probs)

		o.RiskRegistry = slices.Clone(assessments)
		slices.SortStableFunc(o.RiskRegistry, func(x, y model.RiskAssessment) int {
			return cmp.Compare(y.Probability, x.Probability)
		})
	}

	return o
}

// TopRisk 返回离职概率最高的 n 名员工
func (o *Overview) TopRisk(n int) []model.RiskAssessment {
	if n <= 0 || len(o.RiskRegistry) == 0 {
		return nil
	}
	if n > len(o.RiskRegistry) {
		n = len(o.RiskRegistry)
	}
	return o.RiskRegistry[:n]
}

// calculateMean 计算平均值
func (a *Analyzer) calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func (a *Analyzer) calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func (a *Analyzer) calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数，负值按 0 计
func (a *Analyzer) calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	for i, v := range values {
		sorted[i] = math.Max(0, v)
	}
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// calculateCorrelation 计算皮尔逊相关系数，任一序列无方差时为 0
func (a *Analyzer) calculateCorrelation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	mx, my := a.calculateMean(xs), a.calculateMean(ys)

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}
