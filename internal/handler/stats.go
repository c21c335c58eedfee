package handler

import (
	"net/http"

	"github.com/shiftsync/shiftsync/internal/repository"
	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
	"github.com/shiftsync/shiftsync/pkg/stats"
)

// OverviewRequest 队伍概览请求
type OverviewRequest struct {
	Records     []model.RawRecord      `json:"records" validate:"required"`
	Assessments []model.RiskAssessment `json:"assessments,omitempty"`
}

// OverviewResponse 队伍概览响应
type OverviewResponse struct {
	ModelVersion string          `json:"model_version,omitempty"`
	RiskIncluded bool            `json:"risk_included"`
	Overview     *stats.Overview `json:"overview"`
}

// Overview 队伍概览API
// 未提供评估时尝试用当前模型评估；模型不可用时仅返回疲劳与班次统计
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	var req OverviewRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	resp := OverviewResponse{}
	records, err := h.engine.Prepare(ctx, req.Records)
	if err != nil {
		respondError(w, r, err)
		return
	}

	assessments := req.Assessments
	if assessments == nil {
		result, err := h.engine.AssessRecords(ctx, records)
		switch {
		case err == nil:
			assessments = result.Assessments
			resp.ModelVersion = result.ModelVersion
		case errors.Is(err, errors.CodeModelUnavailable):
			// 不含风险统计
		default:
			respondError(w, r, err)
			return
		}
	}

	resp.RiskIncluded = assessments != nil
	resp.Overview = h.analyzer.Analyze(records, assessments)
	respondOK(w, resp)
}

// StoredOverview 基于已存储的员工与风险评估的队伍概览
func (h *Handler) StoredOverview(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		respondError(w, r, errors.StorageUnavailable("数据库"))
		return
	}

	ctx := r.Context()
	records, err := h.storage.ListLatestEmployees(ctx, repository.DefaultListFilter())
	if err != nil {
		respondError(w, r, errors.Database(err, "读取员工失败"))
		return
	}
	stored, err := h.storage.ListPredictions(ctx)
	if err != nil {
		respondError(w, r, errors.Database(err, "读取风险评估失败"))
		return
	}

	resp := OverviewResponse{
		RiskIncluded: len(stored) > 0,
		Overview:     h.analyzer.Analyze(records, repository.Assessments(stored)),
	}
	if len(stored) > 0 {
		resp.ModelVersion = stored[0].ModelVersion
	}
	respondOK(w, resp)
}
