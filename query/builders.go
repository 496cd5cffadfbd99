package query

// Document is a complete search request body, ready for JSON encoding.
type Document map[string]any

const aggregationResultSize = 15

// SourceFilter selects which stored fields come back with each hit.
// The zero value returns the whole source.
type SourceFilter struct {
	Includes []string
	Excludes []string
}

func (s SourceFilter) value() any {
	if len(s.Includes) == 0 && len(s.Excludes) == 0 {
		return true
	}
	source := map[string]any{}
	if len(s.Includes) > 0 {
		source["includes"] = append([]string{}, s.Includes...)
	}
	if len(s.Excludes) > 0 {
		source["excludes"] = append([]string{}, s.Excludes...)
	}
	return source
}

// TopicQuery is a paginated phrase search over the given fields.
func TopicQuery(text string, size int, fields []string, source SourceFilter, from int) Document {
	return Document{
		"size":    size,
		"from":    from,
		"_source": source.value(),
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": append([]string{}, fields...),
				"type":   "phrase",
			},
		},
	}
}

// PhraseAggregationQuery requires every term to match as a phrase and
// attaches the named aggregations. A non-empty author restricts the hits
// without affecting their score.
func PhraseAggregationQuery(terms Terms, author string) (Document, error) {
	subjects, err := resolveTerms(terms)
	if err != nil {
		return nil, err
	}

	return aggregationQuery(subjects, authorFilter(author)), nil
}

// TopicMatchAggregationQuery is PhraseAggregationQuery with an additional
// exact match of every subject against the mentioned topic names.
func TopicMatchAggregationQuery(terms Terms, author string) (Document, error) {
	subjects, err := resolveTerms(terms)
	if err != nil {
		return nil, err
	}

	filters := make([]any, 0, len(subjects)+1)
	for _, subject := range subjects {
		filters = append(filters, map[string]any{
			"term": map[string]any{
				fieldMentionName: subject,
			},
		})
	}
	filters = append(filters, authorFilter(author)...)

	return aggregationQuery(subjects, filters), nil
}

// AdjacencyMatrixPhraseQuery counts co-occurrences of the subjects using
// phrase matches. No hits are returned.
func AdjacencyMatrixPhraseQuery(subjects []string) Document {
	filters := make(map[string]any, len(subjects))
	for _, subject := range subjects {
		filters[subject] = phraseMatch(subject, adjacencyFields())
	}

	return adjacencyMatrix(filters)
}

// AdjacencyMatrixTermQuery counts co-occurrences of exact topic names.
func AdjacencyMatrixTermQuery(subjects []string) Document {
	filters := make(map[string]any, len(subjects))
	for _, subject := range subjects {
		filters[subject] = map[string]any{
			"terms": map[string]any{
				fieldMentionName: []string{subject},
			},
		}
	}

	return adjacencyMatrix(filters)
}

// MentionCountQuery only asks for the number of records mentioning topicID.
func MentionCountQuery(topicID string) Document {
	return Document{
		"size": 0,
		"query": map[string]any{
			"term": map[string]any{
				fieldMentionID: topicID,
			},
		},
	}
}

func aggregationQuery(subjects []string, filters []any) Document {
	must := make([]any, 0, len(subjects))
	for _, subject := range subjects {
		must = append(must, phraseMatch(subject, aggregationFields()))
	}

	return Document{
		"size": aggregationResultSize,
		"sort": relevanceThenNewest(),
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filters,
			},
		},
		"aggs": namedAggregations(),
	}
}

func adjacencyMatrix(filters map[string]any) Document {
	return Document{
		"size": 0,
		"aggs": map[string]any{
			AggTopicAdjacencyMatrix: map[string]any{
				"adjacency_matrix": map[string]any{
					"filters": filters,
				},
			},
		},
	}
}

func phraseMatch(text string, fields []string) map[string]any {
	return map[string]any{
		"multi_match": map[string]any{
			"query":  text,
			"fields": fields,
			"type":   "phrase",
		},
	}
}

func authorFilter(author string) []any {
	if author == "" {
		return []any{}
	}
	return []any{
		map[string]any{
			"multi_match": map[string]any{
				"fields": authorFields(),
				"query":  author,
			},
		},
	}
}
