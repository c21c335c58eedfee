package handler

import (
	"net/http"

	"github.com/shiftsync/shiftsync/pkg/risk"
)

// ImportanceResponse 特征重要度响应
type ImportanceResponse struct {
	ModelVersion string                   `json:"model_version"`
	Importance   []risk.FeatureImportance `json:"importance"`
}

// ReloadResponse 模型加载响应
type ReloadResponse struct {
	ModelVersion string `json:"model_version"`
	ArtifactPath string `json:"artifact_path"`
}

// Importance 当前模型的特征重要度（降序）
func (h *Handler) Importance(w http.ResponseWriter, r *http.Request) {
	importance, err := h.engine.Importance()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, ImportanceResponse{
		ModelVersion: h.engine.ModelVersion(),
		Importance:   importance,
	})
}

// ReloadModel 从配置的制品路径重新加载模型；失败时保留原模型
func (h *Handler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ReloadFromFile(h.opts.ArtifactPath); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, ReloadResponse{
		ModelVersion: h.engine.ModelVersion(),
		ArtifactPath: h.opts.ArtifactPath,
	})
}
