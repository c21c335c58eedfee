package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

var employeeColumns = []string{
	"employee_id", "age", "gender", "department", "shift_type",
	"daily_wages", "overtime_hours", "distance_km", "years_of_service",
	"last_month_leave", "satisfaction", "ot_trend", "leave_trend",
	"fatigue_score", "attrition",
}

// EmployeeRepository 员工仓储，仅追加写入
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Append 追加员工记录，返回写入行数
func (r *EmployeeRepository) Append(ctx context.Context, records []model.EmployeeRecord) (int, error) {
	written := 0
	for _, batch := range chunks(records, insertBatchSize) {
		query, args, err := buildEmployeeInsert(batch)
		if err != nil {
			return written, errors.Database(err, "构建员工插入语句失败")
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return written, errors.Database(err, "写入员工失败")
		}
		written += len(batch)
	}
	return written, nil
}

// List 按写入顺序列出员工
func (r *EmployeeRepository) List(ctx context.Context, filter ListFilter) ([]model.EmployeeRecord, error) {
	query, args, err := buildEmployeeList(filter)
	if err != nil {
		return nil, errors.Database(err, "构建员工查询语句失败")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Database(err, "查询员工失败")
	}
	defer rows.Close()

	records := make([]model.EmployeeRecord, 0)
	for rows.Next() {
		rec, err := scanEmployee(rows)
		if err != nil {
			return nil, errors.Database(err, "扫描员工失败")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Database(err, "遍历员工失败")
	}
	return records, nil
}

// ListLatest 按员工编号去重后列出员工，同一编号保留最后写入的一行，结果按写入顺序排列
func (r *EmployeeRepository) ListLatest(ctx context.Context, filter ListFilter) ([]model.EmployeeRecord, error) {
	query, args, err := buildLatestEmployeeList(filter)
	if err != nil {
		return nil, errors.Database(err, "构建员工查询语句失败")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Database(err, "查询员工失败")
	}
	defer rows.Close()

	records := make([]model.EmployeeRecord, 0)
	for rows.Next() {
		rec, err := scanEmployee(rows)
		if err != nil {
			return nil, errors.Database(err, "扫描员工失败")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Database(err, "遍历员工失败")
	}
	return records, nil
}

// Count 统计员工数量
func (r *EmployeeRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	query, args, err := filter.apply(psql.Select("COUNT(*)").From("employees")).ToSql()
	if err != nil {
		return 0, errors.Database(err, "构建员工计数语句失败")
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Database(err, "统计员工失败")
	}
	return count, nil
}

func buildEmployeeInsert(records []model.EmployeeRecord) (string, []interface{}, error) {
	b := psql.Insert("employees").Columns(employeeColumns...)
	for _, rec := range records {
		var fatigue interface{}
		if score, ok := rec.Fatigue(); ok {
			fatigue = score
		}
		b = b.Values(
			rec.ID, rec.Age, rec.Gender, rec.Department, string(rec.ShiftType),
			rec.DailyWages, rec.OvertimeHours, rec.DistanceKm, rec.YearsOfService,
			rec.LastMonthLeave, rec.Satisfaction, string(rec.OTTrend), string(rec.LeaveTrend),
			fatigue, rec.Attrition,
		)
	}
	return b.ToSql()
}

func buildEmployeeList(filter ListFilter) (string, []interface{}, error) {
	b := filter.apply(psql.Select(employeeColumns...).From("employees")).OrderBy("id ASC")
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		b = b.Offset(uint64(filter.Offset))
	}
	return b.ToSql()
}

// buildLatestEmployeeList 子查询用 DISTINCT ON 取每个编号 id 最大的行，外层恢复写入顺序
func buildLatestEmployeeList(filter ListFilter) (string, []interface{}, error) {
	inner := filter.apply(
		sq.Select(append([]string{"id"}, employeeColumns...)...).
			Options("DISTINCT ON (employee_id)").
			From("employees"),
	).OrderBy("employee_id", "id DESC")

	b := psql.Select(employeeColumns...).FromSelect(inner, "latest").OrderBy("id ASC")
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		b = b.Offset(uint64(filter.Offset))
	}
	return b.ToSql()
}

func scanEmployee(s Scanner) (model.EmployeeRecord, error) {
	var (
		rec                        model.EmployeeRecord
		shift, otTrend, leaveTrend string
		fatigue                    sql.NullFloat64
	)
	err := s.Scan(
		&rec.ID, &rec.Age, &rec.Gender, &rec.Department, &shift,
		&rec.DailyWages, &rec.OvertimeHours, &rec.DistanceKm, &rec.YearsOfService,
		&rec.LastMonthLeave, &rec.Satisfaction, &otTrend, &leaveTrend,
		&fatigue, &rec.Attrition,
	)
	if err != nil {
		return model.EmployeeRecord{}, err
	}
	rec.ShiftType = model.ShiftType(shift)
	rec.OTTrend = model.Trend(otTrend)
	rec.LeaveTrend = model.Trend(leaveTrend)
	if fatigue.Valid {
		rec = rec.WithFatigue(fatigue.Float64)
	}
	return rec, nil
}
