package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-redflag-detector/internal/config"
	apperrors "go-redflag-detector/internal/errors"
	"go-redflag-detector/internal/extractor"
	"go-redflag-detector/internal/logger"
	"go-redflag-detector/internal/pipeline"
	"go-redflag-detector/internal/session"
	"go-redflag-detector/pkg/models"
	"go-redflag-detector/pkg/validation"
)

// screenshotField is the multipart field carrying the uploaded image
const screenshotField = "screenshot"

// Sessions hands out the pipeline controller for a session id
type Sessions interface {
	Get(id string) (string, *pipeline.Controller)
}

// MetricsSource exposes counters for GET /metrics
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

type handler struct {
	sessions  Sessions
	metrics   MetricsSource
	validator *validation.URLValidator
	cfg       config.Config
}

func NewHandler(sessions Sessions, metrics MetricsSource, cfg config.Config) http.Handler {
	h := &handler{
		sessions:  sessions,
		metrics:   metrics,
		validator: validation.NewURLValidator(),
		cfg:       cfg,
	}

	r := gin.Default()

	r.Use(
		cors.New(corsConfig(cfg.CORSAllowedOrigins)),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", h.getMetrics)
	r.GET("/state", h.getState)
	r.POST("/reset", h.reset)
	r.POST("/analyze", h.analyze)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", session.HeaderName},
		ExposeHeaders: []string{session.HeaderName},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// session resolves the caller's controller and echoes the id back
func (h *handler) session(c *gin.Context) (string, *pipeline.Controller) {
	id, ctrl := h.sessions.Get(c.GetHeader(session.HeaderName))
	c.Header(session.HeaderName, id)
	return id, ctrl
}

func (h *handler) analyze(c *gin.Context) {
	startTime := time.Now()
	sessionID, ctrl := h.session(c)

	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"session_id": sessionID,
		"ip":         c.ClientIP(),
	}).Info("Processing analysis request")

	req, err := h.bindRequest(c)
	if err != nil {
		respondError(c, statusFor(err), "invalid analysis request", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	out, err := ctrl.Run(ctx, req)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "analysis not completed", err)
		return
	}

	resp := models.AnalysisResponse{
		SessionID:   sessionID,
		State:       out.Phase.String(),
		Verdict:     out.Verdict,
		InputSource: out.InputSource,
		Diagnostics: out.Diagnostics,
		ElapsedMS:   time.Since(startTime).Milliseconds(),
	}

	fields := logrus.Fields{
		"session_id":         sessionID,
		"run_id":             out.RunID,
		"phase":              resp.State,
		"processing_time_ms": resp.ElapsedMS,
	}
	if out.Verdict != nil {
		fields["source"] = out.Verdict.Source
		fields["score"] = out.Verdict.Score
	}
	logger.WithFields(fields).Info("Analysis request completed")

	c.JSON(http.StatusOK, resp)
}

// bindRequest reads either a multipart upload or a JSON body
func (h *handler) bindRequest(c *gin.Context) (pipeline.Request, error) {
	var body models.AnalysisRequest
	var img extractor.Image

	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		if err := c.ShouldBind(&body); err != nil {
			return pipeline.Request{}, bindError(err)
		}
		data, err := readUpload(c)
		if err != nil {
			return pipeline.Request{}, err
		}
		img.Data = data
	default:
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
				return pipeline.Request{}, bindError(err)
			}
		}
	}

	if imageURL := strings.TrimSpace(body.ImageURL); imageURL != "" {
		if err := h.validator.ValidateImageURL(imageURL); err != nil {
			return pipeline.Request{}, err
		}
		img.URL = imageURL
	}

	return pipeline.Request{Image: img, Message: body.Message}, nil
}

// readUpload returns nil when no screenshot was attached
func readUpload(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile(screenshotField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, bindError(err)
	}

	data, err := readFileHeader(fh)
	if err != nil {
		return nil, apperrors.NewValidationError("Failed to read screenshot", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	if mtype, ok := extractor.DetectType(data); !ok {
		return nil, apperrors.NewUnsupportedMediaError(
			fmt.Sprintf("Screenshot must be PNG or JPEG, got %s", mtype), nil)
	}
	return data, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return apperrors.NewValidationError("Invalid request format", err)
}

func (h *handler) getState(c *gin.Context) {
	sessionID, ctrl := h.session(c)
	state := ctrl.State()

	c.JSON(http.StatusOK, models.StateResponse{
		SessionID: sessionID,
		State:     state.Phase.String(),
		Busy:      ctrl.Busy(),
		Verdict:   state.Verdict,
	})
}

func (h *handler) reset(c *gin.Context) {
	sessionID, ctrl := h.session(c)
	ctrl.Reset()

	logger.WithField("session_id", sessionID).Info("Session reset")
	c.JSON(http.StatusOK, models.StateResponse{
		SessionID: sessionID,
		State:     pipeline.PhaseIdle.String(),
	})
}

func (h *handler) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, statusFor(err.Err), "request processing failed", err)
		}
	}
}

func statusFor(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// same status as a run abandoned by reset
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
