package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/query"
	"github.com/meghashyamc/lodapi/services/explore"
	"github.com/meghashyamc/lodapi/validation"
)

const exploreEntity = "resources"

type AggregationsQueryRequest struct {
	Topics []string `form:"topics" validate:"required,min=1,max=50,dive,valid_query"`
	Author string   `form:"author" validate:"max=1000"`
	Match  string   `form:"match" validate:"valid_match"`
}

// AggregationsBodyRequest carries either a single query string or a list
// of query strings.
type AggregationsBodyRequest struct {
	Query  any    `json:"query"`
	Author string `json:"author" validate:"max=1000"`
	Match  string `json:"match" validate:"valid_match"`
}

type CorrelationsRequest struct {
	Topics []string `form:"topics" validate:"required,min=1,max=50,dive,valid_query"`
	Match  string   `form:"match" validate:"valid_match"`
}

type MentionsRequest struct {
	TopicID string `form:"topic_id" validate:"required,valid_topic_id,max=2000"`
}

type CorrelationsResponse struct {
	Buckets []explore.Bucket `json:"buckets"`
}

type MentionsResponse struct {
	TopicID string `json:"topic_id"`
	Count   int64  `json:"count"`
}

func SetupExplore(router *gin.Engine, cfg *config.Config, logger logger.Logger, searchDB searchdb.DB, validator *validation.Validator) {
	service := explore.New(logger, searchDB, cfg.GetIndices()[exploreEntity])

	group := router.Group("/explore")
	group.GET("/aggregations", handleAggregationsQuery(service, logger, validator))
	group.POST("/aggregations", handleAggregationsBody(service, logger, validator))
	group.GET("/correlations", handleCorrelations(service, logger, validator))
	group.GET("/mentions", handleMentions(service, logger, validator))
}

func handleAggregationsQuery(service *explore.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := AggregationsQueryRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from aggregations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate aggregations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		var terms query.Terms = query.TermList(request.Topics)
		if len(request.Topics) == 1 {
			terms = query.SingleTerm(request.Topics[0])
		}

		result, err := service.Aggregations(c.Request.Context(), terms, request.Author, request.Match)
		if err != nil {
			logger.Error("aggregations failed", "err", err.Error())
			writeError(c, err)
			return
		}

		writeResponse(c, result, http.StatusOK, nil)
	}
}

func handleAggregationsBody(service *explore.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := AggregationsBodyRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from aggregations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate aggregations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		terms, err := query.ParseTerms(request.Query)
		if err != nil {
			logger.Warn("aggregations request has an invalid query", "err", err.Error())
			writeError(c, err)
			return
		}

		result, err := service.Aggregations(c.Request.Context(), terms, request.Author, request.Match)
		if err != nil {
			logger.Error("aggregations failed", "err", err.Error())
			writeError(c, err)
			return
		}

		writeResponse(c, result, http.StatusOK, nil)
	}
}

func handleCorrelations(service *explore.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := CorrelationsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from correlations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate correlations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		buckets, err := service.Correlations(c.Request.Context(), request.Topics, request.Match)
		if err != nil {
			logger.Error("correlations failed", "err", err.Error())
			writeError(c, err)
			return
		}

		writeResponse(c, CorrelationsResponse{Buckets: buckets}, http.StatusOK, nil)
	}
}

func handleMentions(service *explore.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := MentionsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from mentions request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate mentions request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		count, err := service.MentionCount(c.Request.Context(), request.TopicID)
		if err != nil {
			logger.Error("mention count failed", "topic_id", request.TopicID, "err", err.Error())
			writeError(c, err)
			return
		}

		writeResponse(c, MentionsResponse{TopicID: request.TopicID, Count: count}, http.StatusOK, nil)
	}
}
