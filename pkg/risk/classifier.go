// Package risk 将员工记录转换为离职概率与风险等级
package risk

import (
	"sync/atomic"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

type classifierState struct {
	bundle *Bundle
	cause  error // 制品不可用的原因
}

// Classifier 风险分类器
// 每次调用只读取一个制品快照，Reload 原子替换
type Classifier struct {
	state atomic.Pointer[classifierState]
}

// NewClassifier 创建分类器
func NewClassifier(b *Bundle) *Classifier {
	c := &Classifier{}
	if b == nil {
		c.state.Store(&classifierState{})
	} else {
		c.state.Store(&classifierState{bundle: b})
	}
	return c
}

// NewUnavailableClassifier 创建无可用制品的分类器，所有调用返回 MODEL_UNAVAILABLE
func NewUnavailableClassifier(cause error) *Classifier {
	c := &Classifier{}
	c.state.Store(&classifierState{cause: cause})
	return c
}

// Reload 原子替换制品
func (c *Classifier) Reload(b *Bundle) error {
	if b == nil {
		return errors.InvalidInput("bundle", "制品不能为空")
	}
	c.state.Store(&classifierState{bundle: b})
	return nil
}

// Bundle 返回当前制品
func (c *Classifier) Bundle() (*Bundle, error) {
	st := c.state.Load()
	if st == nil || st.bundle == nil {
		var cause error
		if st != nil {
			cause = st.cause
		}
		return nil, errors.ModelUnavailable(cause)
	}
	return st.bundle, nil
}

// Available 检查是否已加载制品
func (c *Classifier) Available() bool {
	_, err := c.Bundle()
	return err == nil
}

// Assess 对整批记录进行风险评估，输出顺序与输入一致
// 任一记录特征缺失或类别未知时整批失败
func (c *Classifier) Assess(records []model.EmployeeRecord) ([]model.RiskAssessment, error) {
	b, err := c.Bundle()
	if err != nil {
		return nil, err
	}
	return b.Assess(records)
}

// Assess 使用该制品评估整批记录
func (b *Bundle) Assess(records []model.EmployeeRecord) ([]model.RiskAssessment, error) {
	if len(records) == 0 {
		return []model.RiskAssessment{}, nil
	}

	rows := make([][]float64, len(records))
	for i, r := range records {
		x, err := b.vectorize(r)
		if err != nil {
			return nil, err
		}
		rows[i] = x
	}

	probs, err := b.model.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	if len(probs) != len(records) {
		return nil, errors.New(errors.CodeInternal, "模型输出数量与输入不一致")
	}

	out := make([]model.RiskAssessment, len(records))
	for i, r := range records {
		out[i] = model.RiskAssessment{
			EmployeeID:  r.ID,
			Probability: probs[i],
			Band:        model.BandFor(probs[i]),
		}
	}
	return out, nil
}

// Importance 返回当前制品的特征重要度
func (c *Classifier) Importance() ([]FeatureImportance, error) {
	b, err := c.Bundle()
	if err != nil {
		return nil, err
	}
	return b.Importance(), nil
}

// vectorize 按制品特征顺序选择、编码并缩放
func (b *Bundle) vectorize(r model.EmployeeRecord) ([]float64, error) {
	x := make([]float64, len(b.features))
	for i, name := range b.features {
		v, ok := r.Feature(name)
		if !ok {
			return nil, errors.SchemaMismatch(name, "记录未提供该特征").
				WithField("employee_id", r.ID)
		}

		enc, encoded := b.encoders[name]
		switch {
		case v.Categorical && !encoded:
			return nil, errors.SchemaMismatch(name, "类别特征缺少编码表").
				WithField("employee_id", r.ID)
		case !v.Categorical && encoded:
			return nil, errors.SchemaMismatch(name, "制品要求类别特征，记录提供的是数值").
				WithField("employee_id", r.ID)
		case v.Categorical:
			code, err := enc.Encode(v.Category)
			if err != nil {
				return nil, errors.AddField(err, "employee_id", r.ID)
			}
			x[i] = float64(code)
		default:
			x[i] = v.Numeric
		}
	}
	return b.scaler.Transform(x), nil
}
