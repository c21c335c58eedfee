package model

// 规范字段名（与上传文件、接口的列名一致）
const (
	FieldEmployeeID     = "Employee_ID"
	FieldAge            = "Age"
	FieldGender         = "Gender"
	FieldDepartment     = "Department"
	FieldShiftType      = "Shift_Type"
	FieldDailyWages     = "Daily_Wages"
	FieldOvertimeHours  = "Overtime_Hours"
	FieldDistanceKm     = "Distance_km"
	FieldYearsOfService = "Years_of_Service"
	FieldLastMonthLeave = "Last_Month_Leave"
	FieldSatisfaction   = "Satisfaction"
	FieldFatigueScore   = "Fatigue_Score"
	FieldOTTrend        = "OT_Trend"
	FieldLeaveTrend     = "Leave_Trend"
	FieldAttrition      = "Attrition"
)

// EmployeeRecord 员工当前属性快照
type EmployeeRecord struct {
	ID             string    `json:"Employee_ID" db:"employee_id"`
	Age            int       `json:"Age" db:"age"`
	Gender         string    `json:"Gender" db:"gender"`
	Department     string    `json:"Department" db:"department"`
	ShiftType      ShiftType `json:"Shift_Type" db:"shift_type"`
	DailyWages     float64   `json:"Daily_Wages" db:"daily_wages"`
	OvertimeHours  float64   `json:"Overtime_Hours" db:"overtime_hours"`
	DistanceKm     float64   `json:"Distance_km" db:"distance_km"`
	YearsOfService float64   `json:"Years_of_Service" db:"years_of_service"`
	LastMonthLeave int       `json:"Last_Month_Leave" db:"last_month_leave"`
	Satisfaction   int       `json:"Satisfaction" db:"satisfaction"` // 1-5
	OTTrend        Trend     `json:"OT_Trend" db:"ot_trend"`
	LeaveTrend     Trend     `json:"Leave_Trend" db:"leave_trend"`

	// 可选：缺失时由疲劳评分器计算
	FatigueScore *float64 `json:"Fatigue_Score,omitempty" db:"fatigue_score"`

	// 训练标签，引擎不使用
	Attrition string `json:"Attrition,omitempty" db:"-"`
}

// FeatureValue 分类器可见的特征值
type FeatureValue struct {
	Numeric     float64
	Category    string
	Categorical bool
}

// Fatigue 返回疲劳评分
func (r EmployeeRecord) Fatigue() (float64, bool) {
	if r.FatigueScore == nil {
		return 0, false
	}
	return *r.FatigueScore, true
}

// WithFatigue 返回带疲劳评分的副本，不修改原记录
func (r EmployeeRecord) WithFatigue(score float64) EmployeeRecord {
	r.FatigueScore = &score
	return r
}

// Feature 按规范特征名取值
// 标识、标签字段以及缺失的疲劳评分返回 false
func (r EmployeeRecord) Feature(name string) (FeatureValue, bool) {
	switch name {
	case FieldAge:
		return numeric(float64(r.Age)), true
	case FieldGender:
		return categorical(r.Gender), true
	case FieldDepartment:
		return categorical(r.Department), true
	case FieldShiftType:
		return categorical(string(r.ShiftType)), true
	case FieldDailyWages:
		return numeric(r.DailyWages), true
	case FieldOvertimeHours:
		return numeric(r.OvertimeHours), true
	case FieldDistanceKm:
		return numeric(r.DistanceKm), true
	case FieldYearsOfService:
		return numeric(r.YearsOfService), true
	case FieldLastMonthLeave:
		return numeric(float64(r.LastMonthLeave)), true
	case FieldSatisfaction:
		return numeric(float64(r.Satisfaction)), true
	case FieldFatigueScore:
		if r.FatigueScore == nil {
			return FeatureValue{}, false
		}
		return numeric(*r.FatigueScore), true
	case FieldOTTrend:
		return categorical(string(r.OTTrend)), true
	case FieldLeaveTrend:
		return categorical(string(r.LeaveTrend)), true
	default:
		return FeatureValue{}, false
	}
}

func numeric(v float64) FeatureValue {
	return FeatureValue{Numeric: v}
}

func categorical(v string) FeatureValue {
	return FeatureValue{Category: v, Categorical: true}
}
