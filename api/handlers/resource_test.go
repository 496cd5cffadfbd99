package handlers

import (
	"net/http"
	"testing"

	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/stretchr/testify/require"
)

var resourceHandlerTestCases = []testCase{
	{
		name:           "Found",
		path:           "/resource/persons/118540238",
		getResponse:    `{"preferredName":"Johann Wolfgang von Goethe","@id":"https://data.slub-dresden.de/persons/118540238"}`,
		expectedStatus: http.StatusOK,
		expectedData:   `{"preferredName":"Johann Wolfgang von Goethe","@id":"https://data.slub-dresden.de/persons/118540238"}`,
	},
	{
		name:           "UnknownEntity",
		path:           "/resource/spaceships/1",
		expectedStatus: http.StatusNotFound,
		expectedError:  "unknown entity",
	},
	{
		name:           "MissingDocument",
		path:           "/resource/persons/nope",
		backendErr:     &searchdb.NotFoundError{Index: "test-persons", ID: "nope"},
		expectedStatus: http.StatusNotFound,
		expectedError:  "document not found: test-persons/nope",
	},
	{
		name:           "BackendUnavailable",
		path:           "/resource/persons/118540238",
		backendErr:     searchdb.ErrUnavailable,
		expectedStatus: http.StatusServiceUnavailable,
	},
}

func TestResourceHandler(t *testing.T) {
	runHandlerTestCases(t, http.MethodGet, "", resourceHandlerTestCases)
}

func TestResourceHandlerUsesEntityIndex(t *testing.T) {
	assert := require.New(t)
	db := &stubDB{getResponse: []byte(`{}`)}
	router := setupTestServer(t, assert, db)

	w := makeTestHTTPRequest(router, assert, http.MethodGet, "/resource/topics/climate", nil, nil, nil)
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal([]string{"test-topics/climate"}, db.gets)
}

func TestStatusForError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "BackendNotFound", err: &searchdb.BackendError{StatusCode: http.StatusNotFound}, expected: http.StatusNotFound},
		{name: "BackendConflict", err: &searchdb.BackendError{StatusCode: http.StatusConflict}, expected: http.StatusConflict},
		{name: "BackendServerError", err: &searchdb.BackendError{StatusCode: http.StatusInternalServerError}, expected: http.StatusBadGateway},
		{name: "Unavailable", err: searchdb.ErrUnavailable, expected: http.StatusServiceUnavailable},
		{name: "NotFound", err: searchdb.ErrNotFound, expected: http.StatusNotFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, statusForError(testCase.err))
		})
	}
}
