package explore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/query"
)

const (
	MatchPhrase = "phrase"
	MatchTopic  = "topic"
)

var ErrUnknownMatch = errors.New("unknown match type")

// Bucket is one cell of the topic adjacency matrix. Keys of intersections
// join both subjects with "&".
type Bucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

type Service struct {
	logger logger.Logger
	db     searchdb.DB
	index  string
}

func New(logger logger.Logger, db searchdb.DB, index string) *Service {
	return &Service{
		logger: logger,
		db:     db,
		index:  index,
	}
}

// Aggregations returns the raw backend response of an aggregation query.
// match selects free-text phrase matching or exact topic matching; an empty
// match means phrase.
func (s *Service) Aggregations(ctx context.Context, terms query.Terms, author string, match string) (json.RawMessage, error) {
	var body query.Document
	var err error

	switch match {
	case "", MatchPhrase:
		body, err = query.PhraseAggregationQuery(terms, author)
	case MatchTopic:
		body, err = query.TopicMatchAggregationQuery(terms, author)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatch, match)
	}
	if err != nil {
		s.logger.Warn("could not build aggregation query", "err", err.Error())
		return nil, err
	}

	result, err := s.db.Search(ctx, s.index, body)
	if err != nil {
		s.logger.Error("aggregation query failed", "index", s.index, "err", err.Error())
		return nil, err
	}

	return result, nil
}

// Correlations returns the adjacency matrix buckets for the subjects.
func (s *Service) Correlations(ctx context.Context, subjects []string, match string) ([]Bucket, error) {
	var body query.Document

	switch match {
	case "", MatchPhrase:
		body = query.AdjacencyMatrixPhraseQuery(subjects)
	case MatchTopic:
		body = query.AdjacencyMatrixTermQuery(subjects)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatch, match)
	}

	result, err := s.db.Search(ctx, s.index, body)
	if err != nil {
		s.logger.Error("correlation query failed", "index", s.index, "err", err.Error())
		return nil, err
	}

	var response struct {
		Aggregations map[string]struct {
			Buckets []Bucket `json:"buckets"`
		} `json:"aggregations"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		s.logger.Error("could not decode correlation response", "err", err.Error())
		return nil, fmt.Errorf("could not decode correlation response: %w", err)
	}

	buckets := response.Aggregations[query.AggTopicAdjacencyMatrix].Buckets
	if buckets == nil {
		buckets = []Bucket{}
	}

	return buckets, nil
}

// MentionCount returns how many records mention the topic.
func (s *Service) MentionCount(ctx context.Context, topicID string) (int64, error) {
	result, err := s.db.Search(ctx, s.index, query.MentionCountQuery(topicID))
	if err != nil {
		s.logger.Error("mention count query failed", "index", s.index, "topic_id", topicID, "err", err.Error())
		return 0, err
	}

	count, err := searchdb.ResponseTotal(result)
	if err != nil {
		s.logger.Error("could not decode mention count response", "err", err.Error())
		return 0, err
	}

	return count, nil
}
