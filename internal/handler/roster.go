package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shiftsync/shiftsync/internal/repository"
	"github.com/shiftsync/shiftsync/pkg/engine"
	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/logger"
	"github.com/shiftsync/shiftsync/pkg/model"
	"github.com/shiftsync/shiftsync/pkg/optimizer"
)

// RunResponse 排班优化响应
type RunResponse struct {
	RunID           string                 `json:"run_id,omitempty"`
	ModelVersion    string                 `json:"model_version"`
	Policy          optimizer.PolicyKind   `json:"policy"`
	CreatedAt       time.Time              `json:"created_at"`
	Total           int                    `json:"total"`
	Changed         int                    `json:"changed"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

// WhatIfRequest 假设分析请求
type WhatIfRequest struct {
	Records       []model.RawRecord `json:"records" validate:"required"`
	WageDelta     float64           `json:"wage_delta" validate:"gte=-100000,lte=100000"`
	OvertimeDelta float64           `json:"overtime_delta" validate:"gte=-40,lte=40"`
}

// Optimize 完整流程API：疲劳评分、风险评估、排班建议
// ?changed_only=true 时仅返回有实际调整的建议
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	changedOnly, err := changedOnlyParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req RecordsRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	run, err := h.engine.Run(r.Context(), req.Records)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.runs.Save(r.Context(), run); err != nil {
		logger.WithContext(r.Context()).Warn().
			Err(err).
			Str("run_id", run.RunID).
			Msg("缓存运行结果失败")
	}

	respondOK(w, newRunResponse(run, changedOnly))
}

// GetRun 按运行编号查询已缓存的优化结果
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	changedOnly, err := changedOnlyParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	run, err := h.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newRunResponse(run, changedOnly))
}

// OptimizeStored 使用已存储的员工与风险评估生成建议
// 同一员工编号以最后一次上传为准；department、shift_type 查询参数只优化部分员工
// 员工缺少风险评估时返回 JOIN_MISMATCH，需要重新运行风险评估
func (h *Handler) OptimizeStored(w http.ResponseWriter, r *http.Request) {
	changedOnly, err := changedOnlyParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if h.storage == nil {
		respondError(w, r, errors.StorageUnavailable("数据库"))
		return
	}

	q := r.URL.Query()
	filter := repository.DefaultListFilter().
		WithDepartment(q.Get("department")).
		WithShiftType(q.Get("shift_type"))
	partial := filter.Department != "" || filter.ShiftType != ""

	ctx := r.Context()
	records, err := h.storage.ListLatestEmployees(ctx, filter)
	if err != nil {
		respondError(w, r, errors.Database(err, "读取员工失败"))
		return
	}

	var stored []repository.StoredPrediction
	if partial {
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		stored, err = h.storage.ListPredictionsFor(ctx, ids)
	} else {
		stored, err = h.storage.ListPredictions(ctx)
	}
	if err != nil {
		respondError(w, r, errors.Database(err, "读取风险评估失败"))
		return
	}

	recs, err := h.engine.OptimizeWith(ctx, records, repository.Assessments(stored))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := RunResponse{
		Policy:          h.engine.Policy().Kind,
		CreatedAt:       time.Now().UTC(),
		Total:           len(recs),
		Changed:         len(model.FilterChanged(recs)),
		Recommendations: recs,
	}
	if len(stored) > 0 {
		resp.ModelVersion = stored[0].ModelVersion
	}
	if changedOnly {
		resp.Recommendations = model.FilterChanged(recs)
	}
	respondOK(w, resp)
}

// WhatIf 假设分析API
func (h *Handler) WhatIf(w http.ResponseWriter, r *http.Request) {
	var req WhatIfRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.engine.WhatIf(r.Context(), req.Records, engine.WhatIfParams{
		WageDelta:     req.WageDelta,
		OvertimeDelta: req.OvertimeDelta,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func newRunResponse(run *engine.RunResult, changedOnly bool) RunResponse {
	resp := RunResponse{
		RunID:           run.RunID,
		ModelVersion:    run.ModelVersion,
		Policy:          run.Policy,
		CreatedAt:       run.CreatedAt,
		Total:           len(run.Recommendations),
		Changed:         run.Changed(),
		Recommendations: run.Recommendations,
	}
	if changedOnly {
		resp.Recommendations = model.FilterChanged(run.Recommendations)
	}
	return resp
}

func changedOnlyParam(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("changed_only")
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.InvalidInput("changed_only", "必须为布尔值")
	}
	return b, nil
}

// Rules 获取当前优化策略的规则库
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.engine.RuleCatalog())
}
