package database

import (
	"context"
	"fmt"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/logger"
)

// migrations 建表语句，按顺序执行且可重复执行
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id               BIGSERIAL PRIMARY KEY,
		employee_id      TEXT NOT NULL,
		age              INTEGER NOT NULL,
		gender           TEXT NOT NULL,
		department       TEXT NOT NULL,
		shift_type       TEXT NOT NULL,
		daily_wages      DOUBLE PRECISION NOT NULL,
		overtime_hours   DOUBLE PRECISION NOT NULL,
		distance_km      DOUBLE PRECISION NOT NULL,
		years_of_service DOUBLE PRECISION NOT NULL,
		last_month_leave INTEGER NOT NULL,
		satisfaction     INTEGER NOT NULL,
		ot_trend         TEXT NOT NULL,
		leave_trend      TEXT NOT NULL,
		fatigue_score    DOUBLE PRECISION,
		attrition        TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_employees_employee_id ON employees (employee_id)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		employee_id    TEXT PRIMARY KEY,
		probability    DOUBLE PRECISION NOT NULL,
		attrition_risk TEXT NOT NULL,
		model_version  TEXT NOT NULL DEFAULT '',
		assessed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate 创建所需的表和索引
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Database(err, fmt.Sprintf("执行第 %d 条迁移失败", i+1))
		}
	}
	logger.Info().Int("statements", len(migrations)).Msg("数据库迁移完成")
	return nil
}
