package model

// RiskBand 离职风险等级
type RiskBand string

const (
	RiskLow    RiskBand = "Low"
	RiskMedium RiskBand = "Medium"
	RiskHigh   RiskBand = "High"
)

// 风险分档阈值（左开右闭）
const (
	HighRiskThreshold   = 0.6
	MediumRiskThreshold = 0.3
)

// BandFor 将离职概率映射为风险等级
// p > 0.6 为 High，0.3 < p <= 0.6 为 Medium，其余为 Low
func BandFor(p float64) RiskBand {
	switch {
	case p > HighRiskThreshold:
		return RiskHigh
	case p > MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskAssessment 单个员工的风险评估结果
type RiskAssessment struct {
	EmployeeID  string   `json:"Employee_ID" db:"employee_id"`
	Probability float64  `json:"Probability" db:"probability"`
	Band        RiskBand `json:"Attrition_Risk" db:"attrition_risk"`
}

// IndexAssessments 按员工ID建立索引
// 重复ID时返回 false 与重复的ID
func IndexAssessments(assessments []RiskAssessment) (map[string]RiskAssessment, string, bool) {
	index := make(map[string]RiskAssessment, len(assessments))
	for _, a := range assessments {
		if _, exists := index[a.EmployeeID]; exists {
			return nil, a.EmployeeID, false
		}
		index[a.EmployeeID] = a
	}
	return index, "", true
}
