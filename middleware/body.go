package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/utils"
)

const bodyKey = "parsed_body"

// Body decodes the JSON object body once per request and caches it, so
// validators, param copying and handlers all see the same ordered fields.
// An empty body is an empty object.
func Body(c *gin.Context) (*utils.Body, error) {
	if v, ok := c.Get(bodyKey); ok {
		return v.(*utils.Body), nil
	}
	var raw []byte
	if c.Request != nil && c.Request.Body != nil {
		var err error
		raw, err = io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, apperrors.BadRequest("Unable to read request body")
		}
	}
	body := utils.NewBody(nil)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := body.UnmarshalJSON(raw); err != nil {
			return nil, apperrors.New(http.StatusBadRequest, "Invalid JSON body", err)
		}
	}
	c.Set(bodyKey, body)
	return body, nil
}

// ParseBody aborts with 400 on a malformed body.
func ParseBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := Body(c); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
