package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/storefront/middleware"
	"github.com/yashrajoria/storefront/services"
)

type UploadServiceAPI interface {
	Presign(ctx context.Context, folder, fileName, contentType string) (*services.PresignedUpload, error)
}

type UploadController struct {
	service UploadServiceAPI
}

func NewUploadController(s UploadServiceAPI) *UploadController {
	return &UploadController{service: s}
}

func (ctrl *UploadController) Presign(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := ctrl.service.Presign(c.Request.Context(),
		stringField(body, "folder"), stringField(body, "fileName"), stringField(body, "contentType"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, out)
}
