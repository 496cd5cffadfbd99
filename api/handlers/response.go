package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/query"
	"github.com/meghashyamc/lodapi/services/explore"
	"github.com/meghashyamc/lodapi/services/search"
)

type response struct {
	Data   any      `json:"data"`
	Errors []string `json:"errors"`
}

func writeResponse(c *gin.Context, data interface{}, statusCode int, errors []string) {

	if statusCode == http.StatusNoContent {
		c.JSON(statusCode, nil)
		return

	}

	response := response{
		Data:   data,
		Errors: errors,
	}

	c.JSON(statusCode, response)
}

// writeError aborts the request with the status that matches err.
func writeError(c *gin.Context, err error) {
	c.Abort()
	writeResponse(c, nil, statusForError(err), []string{err.Error()})
}

func statusForError(err error) int {
	var backendErr *searchdb.BackendError

	switch {
	case errors.Is(err, query.ErrInvalidTerms):
		return http.StatusUnprocessableEntity
	case errors.Is(err, explore.ErrUnknownMatch):
		return http.StatusNotAcceptable
	case errors.Is(err, search.ErrUnknownEntity), errors.Is(err, searchdb.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, searchdb.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &backendErr):
		if backendErr.StatusCode >= http.StatusBadRequest && backendErr.StatusCode < http.StatusInternalServerError {
			return backendErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	TotalPages   int  `json:"total_pages"`
	HasNextPage  bool `json:"has_next_page"`
	HasPrevPage  bool `json:"has_prev_page"`
	TotalResults int  `json:"total_results"`
}

func calculatePagination(total, limit, offset int) Pagination {
	pageSize := limit
	if pageSize <= 0 {
		return Pagination{CurrentPage: 1, TotalPages: 1, TotalResults: total}
	}
	currentPage := (offset / limit) + 1
	totalPages := (total + pageSize - 1) / pageSize

	if totalPages == 0 {
		totalPages = 1
	}

	return Pagination{
		CurrentPage:  currentPage,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		HasNextPage:  currentPage < totalPages,
		HasPrevPage:  currentPage > 1,
		TotalResults: total,
	}
}
