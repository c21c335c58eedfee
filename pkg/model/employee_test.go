package model

import (
	"testing"
)

func sampleRecord() EmployeeRecord {
	return EmployeeRecord{
		ID:             "EMP_0001",
		Age:            25,
		Gender:         "Male",
		Department:     "Logistics",
		ShiftType:      ShiftNight,
		DailyWages:     620,
		OvertimeHours:  20,
		DistanceKm:     10,
		YearsOfService: 3,
		LastMonthLeave: 2,
		Satisfaction:   2,
		OTTrend:        TrendRising,
		LeaveTrend:     TrendStable,
	}
}

func TestEmployeeRecord_Feature(t *testing.T) {
	r := sampleRecord()

	tests := []struct {
		name        string
		feature     string
		present     bool
		categorical bool
		numeric     float64
		category    string
	}{
		{"年龄", FieldAge, true, false, 25, ""},
		{"班次", FieldShiftType, true, true, 0, "Night"},
		{"加班", FieldOvertimeHours, true, false, 20, ""},
		{"请假", FieldLastMonthLeave, true, false, 2, ""},
		{"加班趋势", FieldOTTrend, true, true, 0, "Rising"},
		{"缺失疲劳评分", FieldFatigueScore, false, false, 0, ""},
		{"员工ID不是特征", FieldEmployeeID, false, false, 0, ""},
		{"标签不是特征", FieldAttrition, false, false, 0, ""},
		{"未知列", "last_updated", false, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := r.Feature(tt.feature)
			if ok != tt.present {
				t.Fatalf("Feature(%s) present = %v, expected %v", tt.feature, ok, tt.present)
			}
			if !ok {
				return
			}
			if v.Categorical != tt.categorical {
				t.Errorf("Feature(%s) categorical = %v, expected %v", tt.feature, v.Categorical, tt.categorical)
			}
			if v.Numeric != tt.numeric || v.Category != tt.category {
				t.Errorf("Feature(%s) = %+v", tt.feature, v)
			}
		})
	}
}

func TestEmployeeRecord_WithFatigue(t *testing.T) {
	r := sampleRecord()
	scored := r.WithFatigue(58.75)

	if _, ok := r.Fatigue(); ok {
		t.Error("原记录不应被修改")
	}

	f, ok := scored.Fatigue()
	if !ok || f != 58.75 {
		t.Errorf("Fatigue() = %v, %v, expected 58.75", f, ok)
	}

	v, ok := scored.Feature(FieldFatigueScore)
	if !ok || v.Numeric != 58.75 {
		t.Errorf("Feature(Fatigue_Score) = %+v, %v", v, ok)
	}
}
