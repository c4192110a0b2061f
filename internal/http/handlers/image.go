package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/erikakettleson-openai/erika-webrtc/internal/core/vision"
	"github.com/erikakettleson-openai/erika-webrtc/internal/metrics"
	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

// envelopeSlack covers the JSON wrapper around the data URI.
const envelopeSlack = 4 << 10

type ImageDescriber interface {
	MaxBytes() int64
	DescribeImage(ctx context.Context, dataURI string) (*vision.Result, error)
}

type ImageHandler struct {
	Gateway ImageDescriber
	Limiter *rate.Limiter
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

func NewImageHandler(g ImageDescriber, l *rate.Limiter, m *metrics.Metrics, log *slog.Logger) *ImageHandler {
	return &ImageHandler{Gateway: g, Limiter: l, Metrics: m, Log: log}
}

func (h *ImageHandler) Upload(c *gin.Context) {
	if h.Limiter != nil && !h.Limiter.Allow() {
		if h.Metrics != nil {
			h.Metrics.RecordRateLimited()
		}
		c.String(http.StatusTooManyRequests, "Too many requests")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Gateway.MaxBytes()+envelopeSlack)
	var req types.UploadImageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.String(http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordImage(len(req.Image))
	}

	res, err := h.Gateway.DescribeImage(c.Request.Context(), req.Image)
	switch {
	case errors.Is(err, vision.ErrImageTooLarge):
		c.String(http.StatusRequestEntityTooLarge, "Image too large")
		return
	case errors.Is(err, vision.ErrInvalidImage):
		c.String(http.StatusBadRequest, "Invalid image")
		return
	case err != nil:
		h.Log.Error("describing image", "err", err)
		c.String(http.StatusInternalServerError, "Failed to describe image")
		return
	}
	c.Data(http.StatusOK, "application/json", res.Raw)
}
