package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/apperrors"
)

// respond writes the shared response envelope.
func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": status < http.StatusBadRequest}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// respondError maps an error onto the envelope. Unexpected errors are logged
// with full detail and redacted in release mode.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	appErr := apperrors.From(err)
	message := appErr.Message
	if appErr.Code >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err))
		if gin.Mode() == gin.ReleaseMode {
			message = "something went wrong, please try again later"
		} else {
			message = appErr.Error()
		}
	}
	c.JSON(appErr.Code, gin.H{"success": false, "message": message})
}

// bindError turns a binding failure into a 400. Validation failures are
// reported per field rather than as validator's raw struct-path messages.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fieldError(fe))
		}
		respond(c, http.StatusBadRequest, strings.Join(parts, "; "), nil)
		return
	}
	respond(c, http.StatusBadRequest, err.Error(), nil)
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
