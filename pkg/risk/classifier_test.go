package risk

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// firstFeatureModel 直接以第一个（已缩放）特征作为概率
type firstFeatureModel struct {
	dim int
}

func (m firstFeatureModel) Kind() string { return "fake" }
func (m firstFeatureModel) Dim() int     { return m.dim }
func (m firstFeatureModel) PredictProba(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, x := range rows {
		out[i] = x[0]
	}
	return out, nil
}

// overtimeBundle 概率 = 加班小时 / 100
func overtimeBundle(t *testing.T, version string) *Bundle {
	t.Helper()
	b, err := NewBundle(BundleConfig{
		Version:  version,
		Features: []string{model.FieldOvertimeHours, model.FieldShiftType, model.FieldFatigueScore},
		Encoders: map[string][]string{model.FieldShiftType: {"Evening", "Morning", "Night"}},
		Scaler:   Scaler{Center: []float64{0, 0, 0}, Scale: []float64{100, 1, 1}},
		Model:    firstFeatureModel{dim: 3},
		Importance: map[string]float64{
			model.FieldShiftType:     0.2,
			model.FieldOvertimeHours: 0.5,
			model.FieldFatigueScore:  0.2,
		},
	})
	require.NoError(t, err)
	return b
}

func record(id string, overtime float64, shift model.ShiftType) model.EmployeeRecord {
	return model.EmployeeRecord{
		ID:            id,
		Age:           30,
		Gender:        "Male",
		Department:    "Production",
		ShiftType:     shift,
		OvertimeHours: overtime,
		OTTrend:       model.TrendStable,
		LeaveTrend:    model.TrendStable,
	}.WithFatigue(40)
}

func TestClassifierAssessBands(t *testing.T) {
	c := NewClassifier(overtimeBundle(t, "v1"))

	records := []model.EmployeeRecord{
		record("E1", 30, model.ShiftNight),
		record("E2", 30.001, model.ShiftMorning),
		record("E3", 60, model.ShiftEvening),
		record("E4", 60.001, model.ShiftNight),
		record("E5", 0, model.ShiftNight),
	}

	got, err := c.Assess(records)
	require.NoError(t, err)
	require.Len(t, got, len(records))

	wantBands := []model.RiskBand{model.RiskLow, model.RiskMedium, model.RiskMedium, model.RiskHigh, model.RiskLow}
	for i, a := range got {
		assert.Equal(t, records[i].ID, a.EmployeeID, "输出顺序应与输入一致")
		assert.InDelta(t, records[i].OvertimeHours/100, a.Probability, 1e-12)
		assert.Equal(t, wantBands[i], a.Band, a.EmployeeID)
	}
}

func TestClassifierAssessEmpty(t *testing.T) {
	c := NewClassifier(overtimeBundle(t, "v1"))

	got, err := c.Assess(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClassifierUnavailable(t *testing.T) {
	cause := errors.New(errors.CodeInvalidArtifact, "文件不存在")

	for name, c := range map[string]*Classifier{
		"未加载":   NewClassifier(nil),
		"加载失败":  NewUnavailableClassifier(cause),
		"零值分类器": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Assess([]model.EmployeeRecord{record("E1", 10, model.ShiftNight)})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeModelUnavailable))
			assert.False(t, c.Available())

			_, err = c.Importance()
			assert.True(t, errors.Is(err, errors.CodeModelUnavailable))
		})
	}
}

func TestClassifierSchemaMismatch(t *testing.T) {
	c := NewClassifier(overtimeBundle(t, "v1"))

	noFatigue := record("E2", 10, model.ShiftNight)
	noFatigue.FatigueScore = nil

	got, err := c.Assess([]model.EmployeeRecord{record("E1", 10, model.ShiftNight), noFatigue})
	require.Error(t, err)
	assert.Nil(t, got, "整批失败时不返回部分结果")
	assert.True(t, errors.Is(err, errors.CodeSchemaMismatch))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.FieldFatigueScore, appErr.Fields["feature"])
	assert.Equal(t, "E2", appErr.Fields["employee_id"])
}

func TestClassifierSchemaMismatchMissingEncoder(t *testing.T) {
	b, err := NewBundle(BundleConfig{
		Version:  "no-encoder",
		Features: []string{model.FieldGender},
		Scaler:   Scaler{Center: []float64{0}, Scale: []float64{1}},
		Model:    firstFeatureModel{dim: 1},
	})
	require.NoError(t, err)

	_, err = NewClassifier(b).Assess([]model.EmployeeRecord{record("E1", 1, model.ShiftNight)})
	assert.True(t, errors.Is(err, errors.CodeSchemaMismatch))
}

func TestClassifierUnknownCategory(t *testing.T) {
	c := NewClassifier(overtimeBundle(t, "v1"))

	_, err := c.Assess([]model.EmployeeRecord{
		record("E1", 10, model.ShiftNight),
		record("E2", 10, model.ShiftType("Graveyard")),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeUnknownCategory))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.FieldShiftType, appErr.Fields["feature"])
	assert.Equal(t, "Graveyard", appErr.Fields["value"])
	assert.Equal(t, "E2", appErr.Fields["employee_id"])
}

func TestClassifierReload(t *testing.T) {
	c := NewUnavailableClassifier(nil)
	assert.Error(t, c.Reload(nil))

	require.NoError(t, c.Reload(overtimeBundle(t, "v2")))
	b, err := c.Bundle()
	require.NoError(t, err)
	assert.Equal(t, "v2", b.Version())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Assess([]model.EmployeeRecord{record("E1", 50, model.ShiftNight)})
			assert.NoError(t, err)
		}()
	}
	require.NoError(t, c.Reload(overtimeBundle(t, "v3")))
	wg.Wait()

	b, _ = c.Bundle()
	assert.Equal(t, "v3", b.Version())
}

func TestClassifierImportance(t *testing.T) {
	c := NewClassifier(overtimeBundle(t, "v1"))

	got, err := c.Importance()
	require.NoError(t, err)
	assert.Equal(t, []FeatureImportance{
		{Feature: model.FieldOvertimeHours, Importance: 0.5},
		{Feature: model.FieldFatigueScore, Importance: 0.2},
		{Feature: model.FieldShiftType, Importance: 0.2},
	}, got)
}

func TestNewBundleValidation(t *testing.T) {
	valid := func() BundleConfig {
		return BundleConfig{
			Version:  "v",
			Features: []string{model.FieldAge, model.FieldGender},
			Encoders: map[string][]string{model.FieldGender: {"Female", "Male"}},
			Scaler:   Scaler{Center: []float64{0, 0}, Scale: []float64{1, 1}},
			Model:    &LogisticModel{Coef: []float64{0.1, 0.2}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*BundleConfig)
	}{
		{"缺少版本", func(c *BundleConfig) { c.Version = "" }},
		{"特征为空", func(c *BundleConfig) { c.Features = nil }},
		{"特征重复", func(c *BundleConfig) { c.Features = []string{model.FieldAge, model.FieldAge} }},
		{"缺少模型", func(c *BundleConfig) { c.Model = nil }},
		{"缩放维度错误", func(c *BundleConfig) { c.Scaler.Center = []float64{0} }},
		{"模型维度错误", func(c *BundleConfig) { c.Model = &LogisticModel{Coef: []float64{1}} }},
		{"编码表特征未知", func(c *BundleConfig) { c.Encoders["Shift_Type"] = []string{"Night"} }},
		{"重要度特征未知", func(c *BundleConfig) { c.Importance = map[string]float64{"Salary": 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			_, err := NewBundle(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))
		})
	}

	_, err := NewBundle(valid())
	assert.NoError(t, err)
}

func TestLoadBundleJSON(t *testing.T) {
	b, err := LoadBundle(filepath.Join("testdata", "bundle.json"))
	require.NoError(t, err)

	assert.Equal(t, "test-logistic-1", b.Version())
	assert.Equal(t, KindLogistic, b.ModelKind())
	assert.Len(t, b.Features(), 13)
	assert.Equal(t, model.FieldFatigueScore, b.Importance()[0].Feature)

	enc, ok := b.Encoder(model.FieldDepartment)
	require.True(t, ok)
	assert.Equal(t, []string{"Logistics", "Maintenance", "Production", "Quality"}, enc.Classes())

	got, err := NewClassifier(b).Assess([]model.EmployeeRecord{
		record("E1", 40, model.ShiftNight),
		record("E2", 0, model.ShiftMorning),
	})
	require.NoError(t, err)
	for _, a := range got {
		assert.Greater(t, a.Probability, 0.0)
		assert.Less(t, a.Probability, 1.0)
	}
	assert.Greater(t, got[0].Probability, got[1].Probability)
}

func TestLoadBundleYAMLForest(t *testing.T) {
	b, err := LoadBundle(filepath.Join("testdata", "bundle.yaml"))
	require.NoError(t, err)
	assert.Equal(t, KindForest, b.ModelKind())

	got, err := NewClassifier(b).Assess([]model.EmployeeRecord{
		record("E1", 12, model.ShiftNight),
		record("E2", 5, model.ShiftMorning),
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.7, got[0].Probability, 1e-9)
	assert.Equal(t, model.RiskHigh, got[0].Band)
	assert.InDelta(t, 0.15, got[1].Probability, 1e-9)
	assert.Equal(t, model.RiskLow, got[1].Band)
}

func TestLoadBundleErrors(t *testing.T) {
	_, err := LoadBundle(filepath.Join("testdata", "bundle.txt"))
	assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))

	_, err = LoadBundle(filepath.Join("testdata", "missing.json"))
	assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))

	_, err = ParseBundle([]byte(`{"version":"x","unknown":1}`), FormatJSON)
	assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))

	_, err = ParseBundle([]byte("version: x\nmodel:\n  kind: svm\n"), FormatYAML)
	assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))
}
