package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"lab_borrow_portal/lifecycle"
)

// statusFor 生命周期错误 → HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, lifecycle.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lifecycle.ErrTransient):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeErr(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error()}
	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		body["problems"] = ve.Problems
	}
	c.JSON(code, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
