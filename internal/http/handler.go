package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-check-service/internal/domain/stolen"
	"plate-check-service/internal/ocr"
	"plate-check-service/internal/repository"
	"plate-check-service/internal/service"
)

type Handler struct {
	checkService *service.CheckService
	log          zerolog.Logger
}

func NewHandler(checkService *service.CheckService, log zerolog.Logger) *Handler {
	return &Handler{
		checkService: checkService,
		log:          log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.index)

	api := r.Group("/api")
	{
		api.POST("/check", h.checkVehicle)
		api.POST("/add_stolen", h.addStolen)
		api.GET("/stats", h.stats)
	}
}

func (h *Handler) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (h *Handler) checkVehicle(c *gin.Context) {
	in := service.CheckInput{
		PlateNumber: c.PostForm("plate_number"),
	}

	// A missing part and a non-multipart body both mean "no image".
	if fh, err := c.FormFile("image"); err == nil {
		file, err := fh.Open()
		if err != nil {
			h.log.Error().Err(err).Str("filename", fh.Filename).Msg("failed to open uploaded image")
			c.JSON(http.StatusBadRequest, errorResponse(ocr.ErrUnreadableImage.Error()))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			h.log.Error().Err(err).Str("filename", fh.Filename).Msg("failed to read uploaded image")
			c.JSON(http.StatusBadRequest, errorResponse(ocr.ErrUnreadableImage.Error()))
			return
		}
		if data == nil {
			data = []byte{}
		}
		in.Image = data
		in.ImageName = fh.Filename
	}

	h.log.Info().
		Str("plate_number", strings.TrimSpace(in.PlateNumber)).
		Bool("has_image", in.Image != nil).
		Str("remote_addr", c.ClientIP()).
		Msg("processing plate check")

	resp, err := h.checkService.Check(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.log.Info().
		Bool("any_stolen", resp.AnyStolen).
		Int("checked_count", len(resp.Results)).
		Int("extracted_count", len(resp.ExtractedPlates)).
		Msg("plate check finished")

	c.JSON(http.StatusOK, resp)
}

type addStolenRequest struct {
	Plate string            `json:"plate"`
	Info  stolen.RecordInfo `json:"info"`
}

func (h *Handler) addStolen(c *gin.Context) {
	var req addStolenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}

	rec, err := h.checkService.AddStolen(c.Request.Context(), req.Plate, req.Info)
	if err != nil {
		h.handleError(c, err)
		return
	}

	plate := strings.TrimSpace(req.Plate)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("plate %s added", plate),
		"plate":   plate,
		"record":  rec,
	})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.checkService.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ocr.ErrUnreadableImage):
		h.log.Warn().Err(err).Msg("rejected unreadable image")
		c.JSON(http.StatusBadRequest, errorResponse(ocr.ErrUnreadableImage.Error()))
	case errors.Is(err, service.ErrNoInput):
		c.JSON(http.StatusBadRequest, errorResponse(service.ErrNoInput.Error()))
	case errors.Is(err, repository.ErrEmptyPlate):
		c.JSON(http.StatusBadRequest, errorResponse(repository.ErrEmptyPlate.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrOCRUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"error":   message,
	}
}
