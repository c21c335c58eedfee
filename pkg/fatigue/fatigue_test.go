package fatigue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsync/shiftsync/pkg/model"
)

func record(ot float64, shift model.ShiftType, dist float64, age, leave int) model.EmployeeRecord {
	return model.EmployeeRecord{
		ID:             "EMP",
		OvertimeHours:  ot,
		ShiftType:      shift,
		DistanceKm:     dist,
		Age:            age,
		LastMonthLeave: leave,
	}
}

func TestScorer_Score(t *testing.T) {
	s := NewDefaultScorer()

	tests := []struct {
		name     string
		rec      model.EmployeeRecord
		expected float64
	}{
		{"夜班高加班", record(20, model.ShiftNight, 10, 25, 2), 58.75},
		{"早班零负荷", record(0, model.ShiftMorning, 0, 50, 0), 2.5},
		{"晚班长通勤", record(8, model.ShiftEvening, 50, 60, 10), 33},
		{"年龄基准点", record(0, model.ShiftMorning, 0, 60, 0), 0},
		{"年长员工为负分", record(0, model.ShiftMorning, 0, 70, 0), -2.5},
		{"两位小数", record(1, model.ShiftMorning, 1, 59, 0), 1.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Score(tt.rec))
		})
	}
}

func TestScorer_UpperClamp(t *testing.T) {
	s := NewDefaultScorer()

	extreme := record(1000, model.ShiftNight, 500, 16, 30)
	assert.Equal(t, MaxScore, s.Score(extreme))

	justOver := record(40, model.ShiftNight, 50, 20, 10)
	// 40 + 25 + 15 + 10 + 10 = 100
	assert.Equal(t, 100.0, s.Score(justOver))
	assert.Greater(t, s.Components(extreme).Sum(), MaxScore)
}

func TestScorer_Monotonicity(t *testing.T) {
	s := NewDefaultScorer()
	base := record(10, model.ShiftMorning, 20, 35, 3)

	t.Run("加班增加", func(t *testing.T) {
		prev := s.Score(base)
		for ot := 11.0; ot <= 120; ot += 7 {
			r := base
			r.OvertimeHours = ot
			cur := s.Score(r)
			assert.GreaterOrEqual(t, cur, prev, "overtime=%v", ot)
			prev = cur
		}
	})

	t.Run("切换夜班", func(t *testing.T) {
		night := base
		night.ShiftType = model.ShiftNight
		for _, st := range []model.ShiftType{model.ShiftMorning, model.ShiftEvening} {
			other := base
			other.ShiftType = st
			assert.GreaterOrEqual(t, s.Score(night), s.Score(other))
		}
	})

	t.Run("通勤增加", func(t *testing.T) {
		far := base
		far.DistanceKm = 45
		assert.GreaterOrEqual(t, s.Score(far), s.Score(base))
	})

	t.Run("年龄减小", func(t *testing.T) {
		young := base
		young.Age = 19
		assert.GreaterOrEqual(t, s.Score(young), s.Score(base))
	})

	t.Run("请假增加", func(t *testing.T) {
		more := base
		more.LastMonthLeave = 8
		assert.GreaterOrEqual(t, s.Score(more), s.Score(base))
	})
}

func TestScorer_Deterministic(t *testing.T) {
	s := NewDefaultScorer()
	r := record(13.7, model.ShiftNight, 23.3, 29, 4)
	first := s.Score(r)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, s.Score(r))
	}
}

func TestScorer_Components(t *testing.T) {
	s := NewDefaultScorer()
	c := s.Components(record(20, model.ShiftNight, 10, 25, 2))

	assert.InDelta(t, 20, c.Overtime, 1e-9)
	assert.Equal(t, 25.0, c.Night)
	assert.InDelta(t, 3, c.Commute, 1e-9)
	assert.InDelta(t, 8.75, c.Age, 1e-9)
	assert.InDelta(t, 2, c.Leave, 1e-9)
}

func TestScorer_CustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.NightWeight = 0
	s := NewScorer(w)

	night := record(0, model.ShiftNight, 0, 60, 0)
	assert.Equal(t, 0.0, s.Score(night))

	w.CommuteBase = 0
	s = NewScorer(w)
	assert.Equal(t, 0.0, s.Components(record(0, model.ShiftMorning, 30, 60, 0)).Commute)
}

func TestScorer_Fill(t *testing.T) {
	s := NewDefaultScorer()

	tests := []struct {
		name   string
		record model.EmployeeRecord
		want   float64
	}{
		{"已有评分保持不变", record(0, model.ShiftMorning, 0, 50, 0).WithFatigue(91), 91},
		{"已有负分保持不变", record(40, model.ShiftNight, 50, 25, 5).WithFatigue(-2.5), -2.5},
		{"缺少评分时计算", record(20, model.ShiftNight, 10, 25, 2), 58.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Fill(tt.record)
			got, ok := out.Fatigue()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	missing := record(8, model.ShiftEvening, 50, 60, 10)
	_ = s.Fill(missing)
	_, ok := missing.Fatigue()
	assert.False(t, ok, "输入记录不应被修改")
}
