package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
)

// Pagination is echoed on every list response so clients can page without
// issuing a separate count query.
type Pagination struct {
	TotalDocuments int64 `json:"totalDocuments"`
	CurrentPage    int32 `json:"currentPage"`
	TotalPages     int64 `json:"totalPages"`
	Limit          int32 `json:"limit"`
}

func newPagination(total int64, page, limit int32) *Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return &Pagination{TotalDocuments: total, CurrentPage: page, TotalPages: pages, Limit: limit}
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message, "data": data})
}

func respondList(c *gin.Context, message string, data any, p *Pagination) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data, "pagination": p})
}

// respondError maps domain errors onto HTTP statuses. Anything that is not
// an apperr.Error is treated as an internal failure and kept opaque.
func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := http.StatusBadRequest
		switch ae.Kind {
		case apperr.KindForbidden:
			status = http.StatusForbidden
		case apperr.KindNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "message": ae.Message, "code": ae.Code})
		return
	}
	if errors.Is(err, loandomain.ErrVersionConflict) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "the loan was modified concurrently, retry", "code": "VERSION_CONFLICT"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
}

func parsePage(c *gin.Context) (page, limit int32) {
	p, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("page", "1")), 10, 32)
	l, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "10")), 10, 32)
	if p < 1 {
		p = 1
	}
	if l < 1 || l > 100 {
		l = 10
	}
	return int32(p), int32(l)
}

func parseInt64(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.Validation("INVALID_ID", "identifier must be a positive integer")
	}
	return v, nil
}

func mustUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
		return "", false
	}
	return id, true
}
