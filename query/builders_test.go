package query

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var aggregationBuilders = map[string]func(Terms, string) (Document, error){
	"PhraseAggregationQuery":     PhraseAggregationQuery,
	"TopicMatchAggregationQuery": TopicMatchAggregationQuery,
}

func boolClause(assert *require.Assertions, doc Document) map[string]any {
	queryClause, ok := doc["query"].(map[string]any)
	assert.True(ok, "query clause should be a map")
	boolClause, ok := queryClause["bool"].(map[string]any)
	assert.True(ok, "bool clause should be a map")
	return boolClause
}

func TestTopicQuery(t *testing.T) {
	assert := require.New(t)

	doc := TopicQuery("dresden", 20, []string{"preferredName", "description"}, SourceFilter{Excludes: []string{"hasPart"}}, 40)

	expected := Document{
		"size":    20,
		"from":    40,
		"_source": map[string]any{"excludes": []string{"hasPart"}},
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  "dresden",
				"fields": []string{"preferredName", "description"},
				"type":   "phrase",
			},
		},
	}
	assert.Equal(expected, doc)
}

func TestTopicQuerySourceFilter(t *testing.T) {
	testCases := []struct {
		name     string
		source   SourceFilter
		expected any
	}{
		{
			name:     "ZeroValueReturnsWholeSource",
			source:   SourceFilter{},
			expected: true,
		},
		{
			name:     "IncludesOnly",
			source:   SourceFilter{Includes: []string{"preferredName"}},
			expected: map[string]any{"includes": []string{"preferredName"}},
		},
		{
			name:   "IncludesAndExcludes",
			source: SourceFilter{Includes: []string{"about.*"}, Excludes: []string{"about.keywords"}},
			expected: map[string]any{
				"includes": []string{"about.*"},
				"excludes": []string{"about.keywords"},
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			doc := TopicQuery("x", 10, nil, testCase.source, 0)
			assert.Equal(testCase.expected, doc["_source"])
		})
	}
}

func TestTopicQueryDoesNotAliasCallerSlices(t *testing.T) {
	assert := require.New(t)

	fields := []string{"preferredName"}
	doc := TopicQuery("x", 10, fields, SourceFilter{}, 0)
	fields[0] = "changed"

	multiMatch := doc["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal([]string{"preferredName"}, multiMatch["fields"])
}

func TestPhraseAggregationQuery(t *testing.T) {
	assert := require.New(t)

	doc, err := PhraseAggregationQuery(TermList{"climate", "Dresden"}, "")
	assert.NoError(err)

	assert.Equal(15, doc["size"])
	assert.Equal(relevanceThenNewest(), doc["sort"])
	assert.Equal(namedAggregations(), doc["aggs"])

	clause := boolClause(assert, doc)
	must := clause["must"].([]any)
	assert.Len(must, 2)
	assert.Equal(map[string]any{
		"multi_match": map[string]any{
			"query":  "climate",
			"fields": aggregationFields(),
			"type":   "phrase",
		},
	}, must[0])
	assert.Equal("Dresden", must[1].(map[string]any)["multi_match"].(map[string]any)["query"])
	assert.Equal([]any{}, clause["filter"])
}

func TestPhraseAggregationQueryWithAuthor(t *testing.T) {
	assert := require.New(t)

	doc, err := PhraseAggregationQuery(SingleTerm("climate"), "Jane Doe")
	assert.NoError(err)

	clause := boolClause(assert, doc)
	assert.Equal([]any{
		map[string]any{
			"multi_match": map[string]any{
				"fields": []string{"title.responsibilityStatement.keyword", "contributor.name.keyword"},
				"query":  "Jane Doe",
			},
		},
	}, clause["filter"])
}

func TestAggregationQuerySingleTermEquivalence(t *testing.T) {
	for name, build := range aggregationBuilders {
		for _, term := range []string{"climate", "", "Sächsische Landesbibliothek"} {
			t.Run(name+"/"+term, func(t *testing.T) {
				assert := require.New(t)
				single, err := build(SingleTerm(term), "Jane Doe")
				assert.NoError(err)
				list, err := build(TermList{term}, "Jane Doe")
				assert.NoError(err)
				assert.Equal(list, single)
			})
		}
	}
}

func TestAggregationQueryRejectsMissingTerms(t *testing.T) {
	for name, build := range aggregationBuilders {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)
			doc, err := build(nil, "Jane Doe")
			assert.Nil(doc, "no partial document should be returned")
			assert.ErrorIs(err, ErrInvalidTerms)

			var inputTypeErr *InputTypeError
			assert.ErrorAs(err, &inputTypeErr)
		})
	}
}

func TestAggregationQueryEmptyTerms(t *testing.T) {
	for name, build := range aggregationBuilders {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)
			doc, err := build(TermList{}, "")
			assert.NoError(err)
			clause := boolClause(assert, doc)
			assert.Equal([]any{}, clause["must"])
			assert.Equal([]any{}, clause["filter"])

			var nilList TermList
			doc, err = build(nilList, "")
			assert.NoError(err)
			assert.Equal([]any{}, boolClause(assert, doc)["must"])
		})
	}
}

func TestTopicMatchAggregationQueryFilterOrder(t *testing.T) {
	assert := require.New(t)

	doc, err := TopicMatchAggregationQuery(TermList{"climate"}, "Jane Doe")
	assert.NoError(err)

	filter := boolClause(assert, doc)["filter"].([]any)
	assert.Len(filter, 2)
	assert.Equal(map[string]any{
		"term": map[string]any{"mentions.name.keyword": "climate"},
	}, filter[0])
	assert.Equal(map[string]any{
		"multi_match": map[string]any{
			"query":  "Jane Doe",
			"fields": []string{"title.responsibilityStatement.keyword", "contributor.name.keyword"},
		},
	}, filter[1])
}

func TestTopicMatchAggregationQueryKeepsPhraseMust(t *testing.T) {
	assert := require.New(t)

	phrase, err := PhraseAggregationQuery(TermList{"a", "b"}, "")
	assert.NoError(err)
	topic, err := TopicMatchAggregationQuery(TermList{"a", "b"}, "")
	assert.NoError(err)

	assert.Equal(boolClause(assert, phrase)["must"], boolClause(assert, topic)["must"])
	assert.Len(boolClause(assert, topic)["filter"], 2)
}

func TestAdjacencyMatrixPhraseQuery(t *testing.T) {
	assert := require.New(t)

	doc := AdjacencyMatrixPhraseQuery([]string{"climate", "energy", "climate"})
	assert.Equal(0, doc["size"])
	assert.NotContains(doc, "query")

	aggs := doc["aggs"].(map[string]any)
	assert.Len(aggs, 1)
	filters := aggs["topicAM"].(map[string]any)["adjacency_matrix"].(map[string]any)["filters"].(map[string]any)
	assert.Len(filters, 2, "one bucket per unique subject")

	for _, subject := range []string{"climate", "energy"} {
		assert.Equal(map[string]any{
			"multi_match": map[string]any{
				"query": subject,
				"fields": []string{
					"preferredName",
					"description",
					"mentions.preferredName",
					"isPartOf.name",
					"about.name",
					"about.keywords",
				},
				"type": "phrase",
			},
		}, filters[subject])
	}
}

func TestAdjacencyMatrixTermQuery(t *testing.T) {
	assert := require.New(t)

	doc := AdjacencyMatrixTermQuery([]string{"climate", "energy"})
	assert.Equal(0, doc["size"])

	filters := doc["aggs"].(map[string]any)["topicAM"].(map[string]any)["adjacency_matrix"].(map[string]any)["filters"].(map[string]any)
	assert.Equal(map[string]any{
		"climate": map[string]any{"terms": map[string]any{"mentions.name.keyword": []string{"climate"}}},
		"energy":  map[string]any{"terms": map[string]any{"mentions.name.keyword": []string{"energy"}}},
	}, filters)
}

func TestAdjacencyMatrixEmptySubjects(t *testing.T) {
	assert := require.New(t)

	for _, doc := range []Document{AdjacencyMatrixPhraseQuery(nil), AdjacencyMatrixTermQuery([]string{})} {
		filters := doc["aggs"].(map[string]any)["topicAM"].(map[string]any)["adjacency_matrix"].(map[string]any)["filters"]
		assert.Equal(map[string]any{}, filters)
	}
}

func TestMentionCountQuery(t *testing.T) {
	assert := require.New(t)

	topicID := "https://data.slub-dresden.de/topics/123"
	doc := MentionCountQuery(topicID)

	assert.Equal(Document{
		"size": 0,
		"query": map[string]any{
			"term": map[string]any{"mentions.@id.keyword": topicID},
		},
	}, doc)
}

func TestBuildersAreIdempotentAndIsolated(t *testing.T) {
	assert := require.New(t)

	first, err := PhraseAggregationQuery(TermList{"climate"}, "Jane Doe")
	assert.NoError(err)

	// Mutating one result must not leak into the next.
	first["aggs"].(map[string]any)["topAuthors"] = "changed"
	first["sort"].([]any)[0] = "changed"

	second, err := PhraseAggregationQuery(TermList{"climate"}, "Jane Doe")
	assert.NoError(err)
	third, err := PhraseAggregationQuery(TermList{"climate"}, "Jane Doe")
	assert.NoError(err)

	assert.Equal(second, third)
	assert.Equal(namedAggregations(), second["aggs"])
	assert.Equal("_score", second["sort"].([]any)[0])
}

func TestBuildersRoundTripThroughJSON(t *testing.T) {
	assert := require.New(t)

	phrase, err := PhraseAggregationQuery(TermList{"climate", "energy"}, "Jane Doe")
	assert.NoError(err)
	topic, err := TopicMatchAggregationQuery(SingleTerm("climate"), "")
	assert.NoError(err)

	docs := []Document{
		TopicQuery("climate", 10, aggregationFields(), SourceFilter{Excludes: []string{"hasPart"}}, 0),
		phrase,
		topic,
		AdjacencyMatrixPhraseQuery([]string{"climate", "energy"}),
		AdjacencyMatrixTermQuery([]string{"climate", "energy"}),
		MentionCountQuery("https://data.slub-dresden.de/topics/1"),
	}

	for _, doc := range docs {
		encoded, err := json.Marshal(doc)
		assert.NoError(err)

		var decoded map[string]any
		assert.NoError(json.Unmarshal(encoded, &decoded))

		reencoded, err := json.Marshal(decoded)
		assert.NoError(err)
		assert.JSONEq(string(encoded), string(reencoded))
		assert.Equal(string(encoded), string(reencoded))
	}
}

func TestBuildersConcurrentUse(t *testing.T) {
	assert := require.New(t)

	expected, err := TopicMatchAggregationQuery(TermList{"climate", "energy"}, "Jane Doe")
	assert.NoError(err)

	var wg sync.WaitGroup
	results := make([]Document, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := TopicMatchAggregationQuery(TermList{"climate", "energy"}, "Jane Doe")
			if err == nil {
				results[i] = doc
			}
		}(i)
	}
	wg.Wait()

	for _, doc := range results {
		assert.Equal(expected, doc)
	}
}
