// Package normalizer 将上游上传的原始员工行规范化为 EmployeeRecord
//
// 规范化从不返回错误：缺失列、空单元格、无法解析或为负的数值一律回退为该列默认值。
package normalizer

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shiftsync/shiftsync/pkg/model"
)

// 各列默认值
const (
	DefaultEmployeeID     = "Unknown"
	DefaultAge            = 30
	DefaultGender         = "Male"
	DefaultDepartment     = "Production"
	DefaultShiftType      = model.ShiftMorning
	DefaultDailyWages     = 500.0
	DefaultOvertimeHours  = 0.0
	DefaultDistanceKm     = 5.0
	DefaultYearsOfService = 1.0
	DefaultLastMonthLeave = 0
	DefaultSatisfaction   = 3
	DefaultTrend          = model.TrendStable
)

// aliases 列名别名表（键为小写、下划线化后的列名）
var aliases = map[string]string{
	"employee_id":       model.FieldEmployeeID,
	"employeeid":        model.FieldEmployeeID,
	"emp_id":            model.FieldEmployeeID,
	"age":               model.FieldAge,
	"gender":            model.FieldGender,
	"sex":               model.FieldGender,
	"department":        model.FieldDepartment,
	"dept":              model.FieldDepartment,
	"shift_type":        model.FieldShiftType,
	"shift":             model.FieldShiftType,
	"daily_wages":       model.FieldDailyWages,
	"daily_wage":        model.FieldDailyWages,
	"wages":             model.FieldDailyWages,
	"overtime_hours":    model.FieldOvertimeHours,
	"overtime":          model.FieldOvertimeHours,
	"ot_hours":          model.FieldOvertimeHours,
	"distance_km":       model.FieldDistanceKm,
	"distance":          model.FieldDistanceKm,
	"commute_km":        model.FieldDistanceKm,
	"years_of_service":  model.FieldYearsOfService,
	"tenure":            model.FieldYearsOfService,
	"last_month_leave":  model.FieldLastMonthLeave,
	"last_month_leaves": model.FieldLastMonthLeave,
	"leave_days":        model.FieldLastMonthLeave,
	"satisfaction":      model.FieldSatisfaction,
	"fatigue_score":     model.FieldFatigueScore,
	"fatigue":           model.FieldFatigueScore,
	"ot_trend":          model.FieldOTTrend,
	"overtime_trend":    model.FieldOTTrend,
	"leave_trend":       model.FieldLeaveTrend,
	"attrition":         model.FieldAttrition,
}

// CanonicalColumn 将任意大小写、空格的列名映射为规范字段名
// 无法识别的列返回 false
func CanonicalColumn(column string) (string, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(column)), " ", "_")
	name, ok := aliases[key]
	return name, ok
}

// Normalize 规范化一批原始记录，保持输入顺序
func Normalize(rows []model.RawRecord) []model.EmployeeRecord {
	records := make([]model.EmployeeRecord, len(rows))
	for i, row := range rows {
		records[i] = NormalizeRecord(row)
	}
	return records
}

// NormalizeRecord 规范化单条原始记录
func NormalizeRecord(row model.RawRecord) model.EmployeeRecord {
	cells := canonicalCells(row)

	rec := model.EmployeeRecord{
		ID:             stringCell(cells, model.FieldEmployeeID, DefaultEmployeeID),
		Age:            intCell(cells, model.FieldAge, DefaultAge),
		Gender:         stringCell(cells, model.FieldGender, DefaultGender),
		Department:     stringCell(cells, model.FieldDepartment, DefaultDepartment),
		DailyWages:     floatCell(cells, model.FieldDailyWages, DefaultDailyWages),
		OvertimeHours:  floatCell(cells, model.FieldOvertimeHours, DefaultOvertimeHours),
		DistanceKm:     floatCell(cells, model.FieldDistanceKm, DefaultDistanceKm),
		YearsOfService: floatCell(cells, model.FieldYearsOfService, DefaultYearsOfService),
		LastMonthLeave: intCell(cells, model.FieldLastMonthLeave, DefaultLastMonthLeave),
		Satisfaction:   intCell(cells, model.FieldSatisfaction, DefaultSatisfaction),
		Attrition:      stringCell(cells, model.FieldAttrition, ""),
	}

	rec.ShiftType, _ = model.ParseShiftType(stringCell(cells, model.FieldShiftType, string(DefaultShiftType)))
	rec.OTTrend, _ = model.ParseTrend(stringCell(cells, model.FieldOTTrend, string(DefaultTrend)))
	rec.LeaveTrend, _ = model.ParseTrend(stringCell(cells, model.FieldLeaveTrend, string(DefaultTrend)))

	// 已提供的疲劳评分按原值保留，负分同样有效
	if v, ok := finiteCell(cells, model.FieldFatigueScore); ok {
		rec.FatigueScore = &v
	}

	return rec
}

// canonicalCells 按规范字段名重建单元格
// 多个别名映射到同一字段时，按原列名字典序取首个非空值
func canonicalCells(row model.RawRecord) map[string]any {
	cells := make(map[string]any, len(row))
	for _, k := range slices.Sorted(maps.Keys(row)) {
		v := row[k]
		name, ok := CanonicalColumn(k)
		if !ok {
			continue
		}
		if existing, exists := cells[name]; exists && !isEmpty(existing) {
			continue
		}
		cells[name] = v
	}
	return cells
}

func stringCell(cells map[string]any, field, def string) string {
	v, ok := cells[field]
	if !ok || isEmpty(v) {
		return def
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return def
	}
	return s
}

func floatCell(cells map[string]any, field string, def float64) float64 {
	if v, ok := numberCell(cells, field); ok {
		return v
	}
	return def
}

func intCell(cells map[string]any, field string, def int) int {
	if v, ok := numberCell(cells, field); ok {
		return int(math.Trunc(v))
	}
	return def
}

// numberCell 解析非负数值单元格
func numberCell(cells map[string]any, field string) (float64, bool) {
	f, ok := finiteCell(cells, field)
	if !ok || f < 0 {
		return 0, false
	}
	return f, true
}

// finiteCell 解析有限数值单元格，不限制符号
func finiteCell(cells map[string]any, field string) (float64, bool) {
	v, ok := cells[field]
	if !ok || isEmpty(v) {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
