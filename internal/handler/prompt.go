package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"appbuilder-backend/internal/metrics"
	"appbuilder-backend/internal/model"
	"appbuilder-backend/internal/service"
	"appbuilder-backend/internal/utils"
	"appbuilder-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	msgPromptRequired = "Prompt is required"
	msgInternalError  = "Internal Server Error"
)

type PromptHandler struct {
	generationService *service.GenerationService
}

func NewPromptHandler(generationService *service.GenerationService) *PromptHandler {
	return &PromptHandler{
		generationService: generationService,
	}
}

// StreamPrompt POST /api/prompt
//
// 流打开前的失败返回结构化 JSON 错误；流打开后的失败直接断开连接，不写结束块。
func (h *PromptHandler) StreamPrompt(c *gin.Context) {
	start := time.Now()

	var req model.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordStream(metrics.OutcomeRejected, 0, 0, time.Since(start).Seconds())
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgPromptRequired, Details: err.Error()})
		return
	}

	ctx := c.Request.Context()
	gen, err := h.generationService.Open(ctx, req.Prompt)
	if errors.Is(err, service.ErrEmptyPrompt) {
		metrics.RecordStream(metrics.OutcomeRejected, 0, 0, time.Since(start).Seconds())
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgPromptRequired})
		return
	}
	if err != nil {
		logger.Errorf("Error handling prompt: %v", err)
		metrics.RecordStream(metrics.OutcomeUpstream, 0, 0, time.Since(start).Seconds())
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: msgInternalError, Details: err.Error()})
		return
	}
	defer gen.Close()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	sw := utils.NewStreamWriter(c.Writer)
	c.Status(http.StatusOK)

	outcome := h.relay(c, gen, sw)

	logger.WithFields(logrus.Fields{
		"outcome":   outcome,
		"fragments": sw.Chunks(),
		"bytes":     sw.BytesWritten(),
		"elapsed":   time.Since(start).String(),
	}).Info("prompt stream closed")
	metrics.RecordStream(outcome, sw.Chunks(), sw.BytesWritten(), time.Since(start).Seconds())
}

func (h *PromptHandler) relay(c *gin.Context, gen *service.Generation, sw *utils.StreamWriter) string {
	ctx := c.Request.Context()

	for {
		chunk, err := gen.Next()
		if errors.Is(err, io.EOF) {
			return metrics.OutcomeCompleted
		}
		if err != nil {
			if ctx.Err() != nil {
				return metrics.OutcomeCancelled
			}
			// 响应头已经发出，只能中断连接；客户端看到的是截断的流
			logger.Errorf("generation failed mid-stream after %d bytes: %v", sw.BytesWritten(), err)
			if abortErr := sw.Abort(); abortErr != nil {
				logger.Warnf("failed to abort stream: %v", abortErr)
			}
			return metrics.OutcomeAborted
		}

		if err := sw.Write(chunk); err != nil {
			logger.Warnf("client went away: %v", err)
			return metrics.OutcomeCancelled
		}
	}
}

// Health 存活探针，与生成流程无关
func (h *PromptHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "ok",
		Message:   "Server is running",
		Timestamp: time.Now().Unix(),
	})
}
