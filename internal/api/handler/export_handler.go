package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/service"
	"github.com/esl365/aijox.com-sub004/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportOnboarding 导出入驻状态
// GET /api/v1/admin/onboarding/export
func (h *ExportHandler) ExportOnboarding(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportOnboarding(c.Request.Context())
	if err != nil {
		if errors.Is(err, onboarding.ErrStoreUnavailable) {
			response.ServiceUnavailable(c, 16101, "Service temporarily unavailable, please try again")
			return
		}
		response.InternalError(c)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
