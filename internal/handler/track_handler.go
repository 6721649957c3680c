package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/staypoint-backend-go/internal/locationhistory"
	"github.com/jengzang/staypoint-backend-go/internal/models"
	"github.com/jengzang/staypoint-backend-go/internal/service"
	"github.com/jengzang/staypoint-backend-go/pkg/response"
)

// TrackHandler handles HTTP requests for track points
type TrackHandler struct {
	trackService   *service.TrackService
	maxUploadBytes int64
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(trackService *service.TrackService, maxUploadBytes int64) *TrackHandler {
	return &TrackHandler{
		trackService:   trackService,
		maxUploadBytes: maxUploadBytes,
	}
}

// Import handles POST /api/v1/tracks/import
// The body is a Records.json document, or a multipart form carrying it as "file".
func (h *TrackHandler) Import(c *gin.Context) {
	opts := locationhistory.Options{}
	if v := c.Query("keepAllActivities"); v != "" {
		keep, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(c, "Invalid keepAllActivities parameter")
			return
		}
		opts.KeepAllActivities = keep
	}

	upload := &uploadBody{ReadCloser: c.Request.Body}
	if h.maxUploadBytes > 0 {
		upload.ReadCloser = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	c.Request.Body = upload

	var body io.Reader = upload
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			if upload.tooLarge() {
				respondTooLarge(c)
				return
			}
			response.BadRequest(c, "Missing file field")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			response.InternalError(c, "Failed to open uploaded file")
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.trackService.Import(c.Request.Context(), body, opts)
	if err != nil {
		if upload.tooLarge() {
			respondTooLarge(c)
			return
		}
		respondError(c, err)
		return
	}

	response.Created(c, result)
}

// GetTrackPoints handles GET /api/v1/tracks/points
func (h *TrackHandler) GetTrackPoints(c *gin.Context) {
	var filter models.TrackPointFilter

	// Parse query parameters
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	// Get track points
	result, err := h.trackService.GetTrackPoints(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// uploadBody remembers the first read error of a request body. Decoders may
// replace it with their own error, so the size limit is checked here.
type uploadBody struct {
	io.ReadCloser
	err error
}

func (b *uploadBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF && b.err == nil {
		b.err = err
	}
	return n, err
}

func (b *uploadBody) tooLarge() bool {
	var maxErr *http.MaxBytesError
	return errors.As(b.err, &maxErr)
}

func respondTooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, "Upload exceeds size limit")
}
