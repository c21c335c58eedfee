package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// StoredPrediction 已存储的风险评估
type StoredPrediction struct {
	model.RiskAssessment
	ModelVersion string    `json:"model_version"`
	AssessedAt   time.Time `json:"assessed_at"`
}

// PredictionRepository 风险评估仓储，每次评估整体替换
type PredictionRepository struct {
	db Transactor
}

// NewPredictionRepository 创建风险评估仓储
func NewPredictionRepository(db Transactor) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// ReplaceAll 在一个事务中清空并写入本次评估结果
func (r *PredictionRepository) ReplaceAll(ctx context.Context, assessments []model.RiskAssessment, modelVersion string) error {
	now := time.Now().UTC()
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		del, args, err := psql.Delete("predictions").ToSql()
		if err != nil {
			return errors.Database(err, "构建删除语句失败")
		}
		if _, err := tx.ExecContext(ctx, del, args...); err != nil {
			return errors.Database(err, "清空风险评估失败")
		}

		for _, batch := range chunks(assessments, insertBatchSize) {
			query, args, err := buildPredictionInsert(batch, modelVersion, now)
			if err != nil {
				return errors.Database(err, "构建风险评估插入语句失败")
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return errors.Database(err, "写入风险评估失败")
			}
		}
		return nil
	})
}

// List 按离职概率降序列出风险评估
func (r *PredictionRepository) List(ctx context.Context) ([]StoredPrediction, error) {
	query, args, err := buildPredictionList(nil)
	if err != nil {
		return nil, errors.Database(err, "构建风险评估查询语句失败")
	}
	return r.query(ctx, query, args)
}

// ListByEmployees 查询指定员工的风险评估
func (r *PredictionRepository) ListByEmployees(ctx context.Context, ids []string) ([]StoredPrediction, error) {
	if len(ids) == 0 {
		return []StoredPrediction{}, nil
	}
	query, args, err := buildPredictionList(ids)
	if err != nil {
		return nil, errors.Database(err, "构建风险评估查询语句失败")
	}
	return r.query(ctx, query, args)
}

func (r *PredictionRepository) query(ctx context.Context, query string, args []interface{}) ([]StoredPrediction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Database(err, "查询风险评估失败")
	}
	defer rows.Close()

	out := make([]StoredPrediction, 0)
	for rows.Next() {
		var (
			p    StoredPrediction
			band string
		)
		if err := rows.Scan(&p.EmployeeID, &p.Probability, &band, &p.ModelVersion, &p.AssessedAt); err != nil {
			return nil, errors.Database(err, "扫描风险评估失败")
		}
		p.Band = model.RiskBand(band)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Database(err, "遍历风险评估失败")
	}
	return out, nil
}

// Assessments 去掉存储元数据
func Assessments(stored []StoredPrediction) []model.RiskAssessment {
	out := make([]model.RiskAssessment, len(stored))
	for i, p := range stored {
		out[i] = p.RiskAssessment
	}
	return out
}

func buildPredictionInsert(assessments []model.RiskAssessment, modelVersion string, at time.Time) (string, []interface{}, error) {
	b := psql.Insert("predictions").
		Columns("employee_id", "probability", "attrition_risk", "model_version", "assessed_at")
	for _, a := range assessments {
		b = b.Values(a.EmployeeID, a.Probability, string(a.Band), modelVersion, at)
	}
	return b.ToSql()
}

func buildPredictionList(ids []string) (string, []interface{}, error) {
	b := psql.Select("employee_id", "probability", "attrition_risk", "model_version", "assessed_at").
		From("predictions").
		OrderBy("probability DESC", "employee_id ASC")
	if len(ids) > 0 {
		b = b.Where(sq.Expr("employee_id = ANY(?)", pq.StringArray(ids)))
	}
	return b.ToSql()
}
