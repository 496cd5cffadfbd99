package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/query"
)

var ErrUnknownEntity = errors.New("unknown entity")

type Service struct {
	logger        logger.Logger
	db            searchdb.DB
	indices       map[string]string
	defaultFields []string
}

// Request is a phrase search against the index of one entity type.
type Request struct {
	Entity   string
	Query    string
	Size     int
	From     int
	Fields   []string
	Includes []string
	Excludes []string
}

func New(logger logger.Logger, db searchdb.DB, indices map[string]string, defaultFields []string) *Service {
	return &Service{
		logger:        logger,
		db:            db,
		indices:       indices,
		defaultFields: defaultFields,
	}
}

// Index resolves an entity name to its index.
func (s *Service) Index(entity string) (string, error) {
	index, ok := s.indices[entity]
	if !ok || len(index) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return index, nil
}

func (s *Service) Search(ctx context.Context, request Request) (json.RawMessage, error) {
	index, err := s.Index(request.Entity)
	if err != nil {
		s.logger.Warn("search for unknown entity", "entity", request.Entity)
		return nil, err
	}

	fields := request.Fields
	if len(fields) == 0 {
		fields = s.defaultFields
	}

	body := query.TopicQuery(
		request.Query,
		request.Size,
		fields,
		query.SourceFilter{Includes: request.Includes, Excludes: request.Excludes},
		request.From,
	)

	result, err := s.db.Search(ctx, index, body)
	if err != nil {
		s.logger.Error("search failed", "index", index, "err", err.Error())
		return nil, err
	}

	return result, nil
}

// Resource returns the stored record of one entity.
func (s *Service) Resource(ctx context.Context, entity string, id string) (json.RawMessage, error) {
	index, err := s.Index(entity)
	if err != nil {
		s.logger.Warn("resource of unknown entity requested", "entity", entity)
		return nil, err
	}

	source, err := s.db.Get(ctx, index, id)
	if err != nil {
		if errors.Is(err, searchdb.ErrNotFound) {
			s.logger.Info("resource not found", "index", index, "id", id)
			return nil, err
		}
		s.logger.Error("could not get resource", "index", index, "id", id, "err", err.Error())
		return nil, err
	}

	return source, nil
}
