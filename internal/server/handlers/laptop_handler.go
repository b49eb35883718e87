package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"laptopkita/internal/logging"
	"laptopkita/internal/server/services"
)

type LaptopHandler struct {
	svc            *services.CatalogService
	log            *logging.Logger
	maxUploadBytes int64
}

func NewLaptopHandler(svc *services.CatalogService, log *logging.Logger, maxUploadBytes int64) *LaptopHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &LaptopHandler{svc: svc, log: log, maxUploadBytes: maxUploadBytes}
}

func (h *LaptopHandler) ListLaptops(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LaptopHandler) CreateLaptop(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
		return
	}

	item, err := h.svc.Create(c.Request.Context(), services.CreateInput{
		Title:     c.PostForm("title"),
		Brand:     c.PostForm("brand"),
		Price:     c.PostForm("price"),
		UserEmail: c.PostForm("user_email"),
		Image:     content,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *LaptopHandler) DeleteLaptop(c *gin.Context) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("laptop_id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, c.Query("email")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Laptop deleted successfully"})
}

func (h *LaptopHandler) GetImage(c *gin.Context) {
	img, err := h.svc.Image(c.Request.Context(), c.Param("image_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func (h *LaptopHandler) writeError(c *gin.Context, err error) {
	var invalid *services.ValidationError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.log.WithField("path", c.FullPath()).WithError(err).Errorf("catalog request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
