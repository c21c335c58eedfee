package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsync/shiftsync/pkg/errors"
)

func TestEncodingTable(t *testing.T) {
	table, err := NewEncodingTable("Shift_Type", []string{"Evening", "Morning", "Night"})
	require.NoError(t, err)

	code, err := table.Encode("Night")
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	_, err = table.Encode("Graveyard")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeUnknownCategory))

	_, err = NewEncodingTable("Gender", nil)
	assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))

	_, err = NewEncodingTable("Gender", []string{"Male", "Male"})
	assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))
}

func TestScalerTransform(t *testing.T) {
	s := Scaler{Center: []float64{10, 5}, Scale: []float64{2, 0}}
	in := []float64{14, 7}

	out := s.Transform(in)
	assert.Equal(t, []float64{2, 2}, out)
	assert.Equal(t, []float64{14, 7}, in, "输入不应被修改")

	assert.Error(t, s.Validate(3))
	assert.NoError(t, s.Validate(2))
}

func TestLogisticModel(t *testing.T) {
	m := &LogisticModel{Coef: []float64{1}, Intercept: 0}

	probs, err := m.PredictProba([][]float64{{0}, {math.Log(3)}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, probs[0], 1e-12)
	assert.InDelta(t, 0.75, probs[1], 1e-12)

	_, err = m.PredictProba([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestForestModel(t *testing.T) {
	stump := func(threshold float64, left, right []float64) Tree {
		return Tree{Nodes: []TreeNode{
			{Feature: 0, Threshold: threshold, Left: 1, Right: 2},
			{Left: -1, Right: -1, Value: left},
			{Left: -1, Right: -1, Value: right},
		}}
	}
	m := &ForestModel{
		Features: 1,
		Trees: []Tree{
			stump(0.5, []float64{3, 1}, []float64{1, 3}),
			stump(1.5, []float64{1, 0}, []float64{0, 1}),
		},
	}
	require.NoError(t, m.Validate())

	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"两棵树都走左", 0, (0.25 + 0) / 2},
		{"等于阈值走左", 0.5, (0.25 + 0) / 2},
		{"第一棵走右", 1, (0.75 + 0) / 2},
		{"都走右", 2, (0.75 + 1) / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs, err := m.PredictProba([][]float64{{tt.x}})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, probs[0], 1e-12)
		})
	}
}

func TestForestModelValidate(t *testing.T) {
	tests := []struct {
		name  string
		model *ForestModel
	}{
		{"没有树", &ForestModel{Features: 1}},
		{"空树", &ForestModel{Features: 1, Trees: []Tree{{}}}},
		{"叶子 value 长度错误", &ForestModel{Features: 1, Trees: []Tree{{Nodes: []TreeNode{
			{Left: -1, Right: -1, Value: []float64{1}},
		}}}}},
		{"特征越界", &ForestModel{Features: 1, Trees: []Tree{{Nodes: []TreeNode{
			{Feature: 3, Left: 1, Right: 2},
			{Left: -1, Right: -1, Value: []float64{1, 0}},
			{Left: -1, Right: -1, Value: []float64{0, 1}},
		}}}}},
		{"子节点成环", &ForestModel{Features: 1, Trees: []Tree{{Nodes: []TreeNode{
			{Feature: 0, Left: 0, Right: 1},
			{Left: -1, Right: -1, Value: []float64{0, 1}},
		}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeInvalidArtifact))
		})
	}
}
