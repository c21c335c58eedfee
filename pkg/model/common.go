// Package model 定义风险与排班优化引擎的核心数据模型
package model

import (
	"math"
	"strings"
)

// ShiftType 班次类型
type ShiftType string

const (
	ShiftMorning ShiftType = "Morning" // 早班
	ShiftEvening ShiftType = "Evening" // 晚班
	ShiftNight   ShiftType = "Night"   // 夜班
)

// ShiftTypes 返回全部已知班次类型
func ShiftTypes() []ShiftType {
	return []ShiftType{ShiftMorning, ShiftEvening, ShiftNight}
}

// ParseShiftType 大小写不敏感地解析班次类型
// 无法识别时原样返回，ok 为 false
func ParseShiftType(s string) (ShiftType, bool) {
	s = strings.TrimSpace(s)
	for _, st := range ShiftTypes() {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return ShiftType(s), false
}

// IsNight 检查是否为夜班
func (s ShiftType) IsNight() bool {
	return s == ShiftNight
}

// Trend 趋势
type Trend string

const (
	TrendRising  Trend = "Rising"  // 上升
	TrendStable  Trend = "Stable"  // 平稳
	TrendFalling Trend = "Falling" // 下降
)

// ParseTrend 大小写不敏感地解析趋势
func ParseTrend(s string) (Trend, bool) {
	s = strings.TrimSpace(s)
	for _, t := range []Trend{TrendRising, TrendStable, TrendFalling} {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return Trend(s), false
}

// RawRecord 上游上传的原始员工行（列名大小写、空格不固定）
type RawRecord map[string]any

// Round2 四舍五入保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
