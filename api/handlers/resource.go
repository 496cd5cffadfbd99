package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/services/search"
	"github.com/meghashyamc/lodapi/validation"
)

type ResourceRequest struct {
	Entity string `uri:"entity" validate:"required,max=100"`
	ID     string `uri:"id" validate:"required,valid_topic_id,max=2000"`
}

func SetupResource(router *gin.Engine, cfg *config.Config, logger logger.Logger, searchDB searchdb.DB, validator *validation.Validator) {
	service := search.New(logger, searchDB, cfg.GetIndices(), cfg.GetSearchFields())
	router.GET("/resource/:entity/:id", handleResource(service, logger, validator))
}

func handleResource(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := ResourceRequest{}
		if err := c.ShouldBindUri(&request); err != nil {
			logger.Warn("could not extract expected params from resource request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request path parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate resource request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		source, err := service.Resource(c.Request.Context(), request.Entity, request.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		writeResponse(c, source, http.StatusOK, nil)
	}
}
