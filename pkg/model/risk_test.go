package model

import (
	"testing"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		name     string
		p        float64
		expected RiskBand
	}{
		{"零", 0, RiskLow},
		{"下边界", 0.3, RiskLow},
		{"刚过下边界", 0.30001, RiskMedium},
		{"中间", 0.45, RiskMedium},
		{"上边界", 0.6, RiskMedium},
		{"刚过上边界", 0.60001, RiskHigh},
		{"一", 1, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := BandFor(tt.p); result != tt.expected {
				t.Errorf("BandFor(%v) = %v, expected %v", tt.p, result, tt.expected)
			}
		})
	}
}

func TestIndexAssessments(t *testing.T) {
	index, _, ok := IndexAssessments([]RiskAssessment{
		{EmployeeID: "A", Probability: 0.7, Band: RiskHigh},
		{EmployeeID: "B", Probability: 0.1, Band: RiskLow},
	})
	if !ok {
		t.Fatal("不应报告重复")
	}
	if len(index) != 2 || index["A"].Band != RiskHigh {
		t.Errorf("索引错误: %+v", index)
	}

	_, dup, ok := IndexAssessments([]RiskAssessment{
		{EmployeeID: "A"},
		{EmployeeID: "A"},
	})
	if ok || dup != "A" {
		t.Errorf("应检测到重复ID A, got %q, %v", dup, ok)
	}
}

func TestRecommendation_Changed(t *testing.T) {
	maintained := Recommendation{
		CurrentShift: ShiftEvening, OptimalShift: ShiftEvening,
		CurrentOvertime: 5, OptimalOvertime: 5, Action: ActionMaintained,
	}
	rotated := Recommendation{
		CurrentShift: ShiftNight, OptimalShift: ShiftMorning,
		CurrentOvertime: 5, OptimalOvertime: 5, Action: ActionRotatedToMorning,
	}

	if maintained.Changed() {
		t.Error("Maintained 建议不应视为调整")
	}
	if !rotated.Changed() {
		t.Error("轮换建议应视为调整")
	}

	filtered := FilterChanged([]Recommendation{maintained, rotated})
	if len(filtered) != 1 || filtered[0].Action != ActionRotatedToMorning {
		t.Errorf("FilterChanged = %+v", filtered)
	}
}

func TestJoinActions(t *testing.T) {
	if got := JoinActions(nil, ActionMaintained); got != ActionMaintained {
		t.Errorf("JoinActions(nil) = %q", got)
	}
	got := JoinActions([]string{ActionRotatedToMorning, ActionCappedOT8}, ActionMaintained)
	if got != "Rotated to Morning | Capped OT 8h" {
		t.Errorf("JoinActions = %q", got)
	}
}

func TestCapActionLabels(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{CappedOTAction(8), ActionCappedOT8},
		{CapOTAction(8), ActionCapOT8},
		{CapOTAction(12), ActionCapOT12},
		{CappedOTAction(6), "Capped OT 6h"},
		{CapOTAction(7.5), "Cap OT at 7.5h"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("label = %q, want %q", tt.got, tt.want)
		}
	}
}
