package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/middleware"
	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

func actorFromContext(c *gin.Context) *models.Actor {
	return middleware.CurrentActor(c)
}

// bindJSON decodes the body into dst and writes a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst and writes a 400 on failure.
func bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return false
	}
	return true
}

// formFile opens an uploaded multipart file. Missing optional files, including
// non-multipart requests, return nil without writing a response.
func formFile(c *gin.Context, field string, required bool) (io.ReadCloser, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		missing := errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
		if missing && !required {
			return nil, true
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, field+" file is required"))
		return nil, false
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return nil, false
	}
	return file, true
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", "attachment; filename=\""+file.Name+"\"")
	c.Header("Content-Length", strconv.Itoa(len(file.Content)))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
