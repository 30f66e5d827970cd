// Package validators holds the request rules checked before the resource
// handlers run.
package validators

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/middleware"
)

// Rules maps body fields to validator tags.
type Rules map[string]string

var validate = validator.New()

const (
	objectID = "hexadecimal,len=24"
	uuidID   = "uuid"
)

// Check returns a 400 describing every field of data that breaks rules.
// Data fields without a rule are ignored here; the allowlist handles them.
func Check(data map[string]any, rules Rules) error {
	fields := make([]string, 0, len(rules))
	for f := range rules {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var problems []string
	for _, f := range fields {
		if err := validate.Var(data[f], rules[f]); err != nil {
			problems = append(problems, describe(f, err))
		}
	}
	if len(problems) > 0 {
		return apperrors.BadRequest("Invalid input data. %s", strings.Join(problems, ". "))
	}
	return nil
}

func describe(field string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", field)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s is too short, minimum %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long, maximum %s", field, fe.Param())
	case "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "lt":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "hexadecimal", "len", "uuid":
		return fmt.Sprintf("Invalid ID format: %v", fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// Body validates the request body against rules.
func Body(rules Rules) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := middleware.Body(c)
		if err == nil {
			err = Check(body.Map(), rules)
		}
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ObjectIDParam rejects a malformed document id before it reaches storage.
func ObjectIDParam(param string) gin.HandlerFunc {
	return idParam(param, objectID)
}

// UUIDParam is ObjectIDParam for relational records.
func UUIDParam(param string) gin.HandlerFunc {
	return idParam(param, uuidID)
}

func idParam(param, tag string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(param)
		if err := validate.Var(id, tag); err != nil {
			_ = c.Error(apperrors.BadRequest("Invalid ID format: %s", id))
			c.Abort()
			return
		}
		c.Next()
	}
}
