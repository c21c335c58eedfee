package repository

import (
	"context"
	"database/sql"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// Store 员工与风险评估的组合仓储
type Store struct {
	db          Transactor
	employees   *EmployeeRepository
	predictions *PredictionRepository
}

// NewStore 创建组合仓储
func NewStore(db Transactor) *Store {
	return &Store{
		db:          db,
		employees:   NewEmployeeRepository(db),
		predictions: NewPredictionRepository(db),
	}
}

// Ping 检查底层数据库是否可达
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// AppendEmployees 追加员工记录
func (s *Store) AppendEmployees(ctx context.Context, records []model.EmployeeRecord) (int, error) {
	return s.employees.Append(ctx, records)
}

// ListEmployees 列出员工
func (s *Store) ListEmployees(ctx context.Context, filter ListFilter) ([]model.EmployeeRecord, error) {
	return s.employees.List(ctx, filter)
}

// ListLatestEmployees 按员工编号去重列出员工，重复上传时以最后一次为准
func (s *Store) ListLatestEmployees(ctx context.Context, filter ListFilter) ([]model.EmployeeRecord, error) {
	return s.employees.ListLatest(ctx, filter)
}

// CountEmployees 统计员工
func (s *Store) CountEmployees(ctx context.Context, filter ListFilter) (int, error) {
	return s.employees.Count(ctx, filter)
}

// ReplacePredictions 整体替换风险评估
func (s *Store) ReplacePredictions(ctx context.Context, assessments []model.RiskAssessment, modelVersion string) error {
	return s.predictions.ReplaceAll(ctx, assessments, modelVersion)
}

// ListPredictions 列出风险评估
func (s *Store) ListPredictions(ctx context.Context) ([]StoredPrediction, error) {
	return s.predictions.List(ctx)
}

// ListPredictionsFor 列出指定员工的风险评估
func (s *Store) ListPredictionsFor(ctx context.Context, ids []string) ([]StoredPrediction, error) {
	return s.predictions.ListByEmployees(ctx, ids)
}

// WipeAll 在一个事务中清空员工与风险评估，返回删除的员工数
func (s *Store) WipeAll(ctx context.Context) (int64, error) {
	var removed int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM predictions"); err != nil {
			return errors.Database(err, "清空风险评估失败")
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM employees")
		if err != nil {
			return errors.Database(err, "清空员工失败")
		}
		removed, _ = result.RowsAffected()
		return nil
	})
	return removed, err
}
