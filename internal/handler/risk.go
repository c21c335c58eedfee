package handler

import (
	"net/http"

	"github.com/shiftsync/shiftsync/internal/repository"
	"github.com/shiftsync/shiftsync/pkg/engine"
	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/logger"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// RecordsRequest 员工批次请求
type RecordsRequest struct {
	Records []model.RawRecord `json:"records" validate:"required"`
}

// FatigueResponse 疲劳评分响应
type FatigueResponse struct {
	Results []engine.FatigueResult `json:"results"`
}

// AssessResponse 风险评估响应
type AssessResponse struct {
	ModelVersion string                 `json:"model_version"`
	Assessments  []model.RiskAssessment `json:"assessments"`
	Persisted    bool                   `json:"persisted"` // 是否已替换存储中的评估结果
}

// ScoreFatigue 疲劳评分API
func (h *Handler) ScoreFatigue(w http.ResponseWriter, r *http.Request) {
	var req RecordsRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	results, err := h.engine.ScoreFatigue(r.Context(), req.Records)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, FatigueResponse{Results: results})
}

// AssessRisk 风险评估API，启用数据库时整体替换已存储的评估
func (h *Handler) AssessRisk(w http.ResponseWriter, r *http.Request) {
	var req RecordsRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.engine.Assess(r.Context(), req.Records)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondAssessment(w, r, result)
}

// AssessStored 对已存储的员工运行风险评估并替换评估结果
// 同一员工编号多次上传时以最后一次为准
func (h *Handler) AssessStored(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		respondError(w, r, errors.StorageUnavailable("数据库"))
		return
	}

	records, err := h.storage.ListLatestEmployees(r.Context(), repository.DefaultListFilter())
	if err != nil {
		respondError(w, r, errors.Database(err, "读取员工失败"))
		return
	}

	result, err := h.engine.AssessRecords(r.Context(), records)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.respondAssessment(w, r, result)
}

func (h *Handler) respondAssessment(w http.ResponseWriter, r *http.Request, result *engine.AssessResult) {
	resp := AssessResponse{
		ModelVersion: result.ModelVersion,
		Assessments:  result.Assessments,
	}

	if h.storage != nil {
		if err := h.storage.ReplacePredictions(r.Context(), result.Assessments, result.ModelVersion); err != nil {
			respondError(w, r, errors.Database(err, "保存风险评估失败"))
			return
		}
		resp.Persisted = true
		logger.WithContext(r.Context()).Info().
			Int("assessments", len(result.Assessments)).
			Str("model_version", result.ModelVersion).
			Msg("风险评估已保存")
	}

	respondOK(w, resp)
}
