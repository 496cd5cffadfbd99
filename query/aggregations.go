package query

const (
	AggTopAuthors         = "topAuthors"
	AggDatePublished      = "datePublished"
	AggMentions           = "mentions"
	AggGenres             = "genres"
	AggTopMentionedTopics = "topMentionedTopics"
	AggTopContributors    = "topContributors"

	// AggTopicAdjacencyMatrix names the single aggregation of the correlation queries.
	AggTopicAdjacencyMatrix = "topicAM"
)

const (
	fieldContributorID    = "contributor.@id.keyword"
	fieldContributorName  = "contributor.name.keyword"
	fieldDateParsed       = "datePublished.dateParsed"
	fieldGenre            = "genre.Text.keyword"
	fieldMentionID        = "mentions.@id.keyword"
	fieldMentionName      = "mentions.name.keyword"
	fieldResponsibilitySt = "title.responsibilityStatement.keyword"
)

// The builders below return freshly allocated values on every call; the
// shared definitions are never handed out directly.

func namedAggregations() map[string]any {
	return map[string]any{
		AggTopAuthors: map[string]any{
			"terms": map[string]any{
				"field": fieldContributorID,
				"size":  10,
			},
		},
		AggDatePublished: map[string]any{
			"date_histogram": map[string]any{
				"field":             fieldDateParsed,
				"calendar_interval": "year",
				"min_doc_count":     1,
			},
		},
		AggMentions: map[string]any{
			"terms": map[string]any{
				"field": fieldMentionID,
				"size":  10,
			},
		},
		AggGenres: map[string]any{
			"terms": map[string]any{
				"field": fieldGenre,
				"size":  20,
			},
		},
		AggTopMentionedTopics: map[string]any{
			"terms": map[string]any{
				"field":   fieldMentionID,
				"include": ".*topics.*",
				"size":    10,
			},
		},
		AggTopContributors: map[string]any{
			"terms": map[string]any{
				"field": fieldContributorID,
				"size":  10,
			},
		},
	}
}

func relevanceThenNewest() []any {
	return []any{
		"_score",
		map[string]any{
			fieldDateParsed: map[string]any{
				"order": "desc",
			},
		},
	}
}

// aggregationFields keeps the duplicated "description" entry; it is part of
// the request contract.
func aggregationFields() []string {
	return []string{
		"preferredName^2",
		"description",
		"mentions.preferredName^2",
		"isPartOf.name",
		"about.name",
		"about.keywords",
		"description",
	}
}

// adjacencyFields is aggregationFields without boosts or duplicates.
func adjacencyFields() []string {
	return []string{
		"preferredName",
		"description",
		"mentions.preferredName",
		"isPartOf.name",
		"about.name",
		"about.keywords",
	}
}

func authorFields() []string {
	return []string{
		fieldResponsibilitySt,
		fieldContributorName,
	}
}
