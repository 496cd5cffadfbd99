package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/services/search"
	"github.com/meghashyamc/lodapi/validation"
)

const defaultSearchEntity = "resources"

type SearchRequest struct {
	Query    string   `form:"q" validate:"required,valid_query,max=1000"`
	Entity   string   `form:"entity" validate:"max=100"`
	Size     int      `form:"size" validate:"min=0"`
	From     int      `form:"from" validate:"min=0"`
	Fields   []string `form:"fields"`
	Includes []string `form:"includes"`
	Excludes []string `form:"excludes"`
}

func (r *SearchRequest) setDefaults(defaultSize int) {
	if len(r.Entity) == 0 {
		r.Entity = defaultSearchEntity
	}

	if r.Size == 0 {
		r.Size = defaultSize
	}
}

type SearchResponse struct {
	Results     json.RawMessage `json:"results"`
	PageDetails Pagination      `json:"page_details"`
}

func SetupSearch(router *gin.Engine, cfg *config.Config, logger logger.Logger, searchDB searchdb.DB, validator *validation.Validator) {
	service := search.New(logger, searchDB, cfg.GetIndices(), cfg.GetSearchFields())
	router.GET("/search", handleSearch(service, logger, validator, cfg.GetSearchDefaultSize(), cfg.GetSearchMaxSize()))
}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator, defaultSize int, maxSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}
		request.setDefaults(defaultSize)

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		if maxSize > 0 && request.Size > maxSize {
			logger.Warn("search size too large", "size", request.Size, "max_size", maxSize)
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{fmt.Sprintf("size must not be larger than %d", maxSize)})
			return
		}

		result, err := service.Search(c.Request.Context(), search.Request{
			Entity:   request.Entity,
			Query:    request.Query,
			Size:     request.Size,
			From:     request.From,
			Fields:   request.Fields,
			Includes: request.Includes,
			Excludes: request.Excludes,
		})
		if err != nil {
			logger.Error("search failed", "entity", request.Entity, "err", err.Error())
			writeError(c, err)
			return
		}

		total, err := searchdb.ResponseTotal(result)
		if err != nil {
			logger.Warn("search response has no usable hit total", "err", err.Error())
		}

		searchResponse := SearchResponse{
			Results:     result,
			PageDetails: calculatePagination(int(total), request.Size, request.From),
		}

		writeResponse(c, searchResponse, http.StatusOK, nil)
	}
}
