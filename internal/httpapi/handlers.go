package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scanattend/internal/attendance"
	"scanattend/internal/camera"
	"scanattend/internal/scan"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	exportFilename  = "attendance_export.csv"
	frameQuality    = 80
)

type scanRequest struct {
	Text string `json:"text"`
}

type scanResponse struct {
	Outcome scan.Outcome `json:"outcome"`
	Message string       `json:"message"`
}

// submitScan is the keyed input producer: one request is one completed line.
func (h *handler) submitScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"text\": \"<scanned line>\"}"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	out, ok := h.Scans.Submit(c.Request.Context(), scan.RawScanEvent{
		ID:         uuid.NewString(),
		Text:       req.Text,
		Source:     scan.SourceKeyed,
		ObservedAt: time.Now(),
	})
	if !ok {
		c.JSON(http.StatusAccepted, gin.H{"suppressed": true})
		return
	}
	c.JSON(http.StatusOK, scanResponse{Outcome: out, Message: out.Message()})
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Board.Current())
}

// statusStream pushes the current state, then every change, as server-sent events.
func (h *handler) statusStream(c *gin.Context) {
	// The stream outlives the server write timeout; lift it for this response only.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Warn("status stream bound by server write timeout", "err", err)
	}
	updates, cancel := h.Board.Subscribe()
	defer cancel()
	ctx := c.Request.Context()

	c.Header("Cache-Control", "no-store")
	c.SSEvent("status", h.Board.Current())
	c.Writer.Flush()
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("status", st)
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (h *handler) frame(c *gin.Context) {
	if h.Frames == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not configured"})
		return
	}
	data, err := h.Frames.JPEG(frameQuality)
	if errors.Is(err, camera.ErrNoFrame) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("encode frame failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode frame failed"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", data)
}

type enrollRequest struct {
	Name  string `json:"name" binding:"required"`
	Major string `json:"major" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func (h *handler) enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.Registry.Enroll(c.Request.Context(), req.Name, req.Major, req.Code)
	switch {
	case errors.Is(err, attendance.ErrInvalidSubject):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrSubjectExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Error("enroll failed", "code", req.Code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enroll failed"})
	default:
		h.log.Info("subject enrolled", "code", s.Code)
		c.JSON(http.StatusCreated, s)
	}
}

func (h *handler) listSubjects(c *gin.Context) {
	subjects, err := h.Registry.List(c.Request.Context())
	if err != nil {
		h.log.Error("list subjects failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subjects failed"})
		return
	}
	if subjects == nil {
		subjects = []attendance.Subject{}
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (h *handler) getSubject(c *gin.Context) {
	s, err := h.Registry.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.log.Error("get subject failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get subject failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subject not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handler) totalScans(c *gin.Context) {
	code := attendance.NormalizeCode(c.Param("code"))
	n, err := h.Ledger.TotalScans(c.Request.Context(), code)
	if err != nil {
		h.log.Error("total scans failed", "code", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "total scans failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "total": n})
}

func (h *handler) listRecords(c *gin.Context) {
	f := attendance.Filter{
		Code:   attendance.NormalizeCode(c.Query("code")),
		Date:   c.Query("date"),
		Limit:  queryInt(c, "limit", defaultPageSize),
		Offset: queryInt(c, "offset", 0),
	}
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = defaultPageSize
	}
	records, err := h.Ledger.List(c.Request.Context(), f)
	if err != nil {
		h.log.Error("list records failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list records failed"})
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *handler) exportRecords(c *gin.Context) {
	records, err := h.Ledger.List(c.Request.Context(), attendance.Filter{
		Code: attendance.NormalizeCode(c.Query("code")),
		Date: c.Query("date"),
	})
	if err != nil {
		h.log.Error("export records failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+exportFilename)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := attendance.WriteCSV(c.Writer, records); err != nil {
		h.log.Error("write csv failed", "error", err)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
