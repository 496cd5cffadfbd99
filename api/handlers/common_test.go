// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/query"
	"github.com/meghashyamc/lodapi/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

type testCase struct {
	name           string
	requestHeaders map[string]string
	requestBody    any
	queryParams    url.Values
	path           string
	searchResponse string
	getResponse    string
	backendErr     error
	expectedStatus int
	expectedData   string
	expectedError  string
	expectedQuery  query.Document
}

type searchCall struct {
	index string
	body  query.Document
}

// stubDB answers every search with searchResponse and every get with
// getResponse, or fails with err when it is set.
type stubDB struct {
	mu             sync.Mutex
	searchResponse json.RawMessage
	getResponse    json.RawMessage
	err            error
	searches       []searchCall
	gets           []string
}

func (s *stubDB) Search(_ context.Context, index string, body query.Document) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, searchCall{index: index, body: body})
	if s.err != nil {
		return nil, s.err
	}
	return s.searchResponse, nil
}

func (s *stubDB) Get(_ context.Context, index string, id string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, index+"/"+id)
	if s.err != nil {
		return nil, s.err
	}
	return s.getResponse, nil
}

func (s *stubDB) Ping(context.Context) error { return nil }

func (s *stubDB) Close() error { return nil }

func (s *stubDB) lastSearch() (searchCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.searches) == 0 {
		return searchCall{}, false
	}
	return s.searches[len(s.searches)-1], true
}

func newTestLogger() logger.Logger {
	return logger.New(io.Discard, "debug")
}

func newStubDB(testCase testCase) *stubDB {
	db := &stubDB{err: testCase.backendErr}
	if len(testCase.searchResponse) > 0 {
		db.searchResponse = json.RawMessage(testCase.searchResponse)
	}
	if len(testCase.getResponse) > 0 {
		db.getResponse = json.RawMessage(testCase.getResponse)
	}
	return db
}

func setupTestServer(t *testing.T, assert *require.Assertions, db *stubDB) *gin.Engine {
	t.Setenv("ENV", "test")

	cfg, err := config.Load("")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")
	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupSearch(router, cfg, testLogger, db, validator)
	SetupExplore(router, cfg, testLogger, db, validator)
	SetupResource(router, cfg, testLogger, db, validator)

	return router
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBody any, queryParams url.Values) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?" + queryParams.Encode()
	}

	var req *http.Request
	switch body := requestBody.(type) {
	case nil:
		req, err = http.NewRequest(method, endpoint, nil)
	case string:
		req, err = http.NewRequest(method, endpoint, bytes.NewBufferString(body))
	default:
		var jsonBody []byte
		jsonBody, err = json.Marshal(body)
		assert.NoError(err)
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

// runHandlerTestCases sends each test case to the router and checks the
// status, the response envelope and, when given, the query sent to the
// backend.
func runHandlerTestCases(t *testing.T, method string, endpoint string, testCases []testCase) {
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			db := newStubDB(testCase)
			router := setupTestServer(t, assert, db)

			path := endpoint
			if len(testCase.path) > 0 {
				path = testCase.path
			}
			headers := testCase.requestHeaders
			if headers == nil {
				headers = defaultTestRequestHeaders
			}

			w := makeTestHTTPRequest(router, assert, method, path, headers, testCase.requestBody, testCase.queryParams)
			assert.Equal(testCase.expectedStatus, w.Code, w.Body.String())

			var envelope struct {
				Data   json.RawMessage `json:"data"`
				Errors []string        `json:"errors"`
			}
			assert.NoError(json.Unmarshal(w.Body.Bytes(), &envelope))

			if len(testCase.expectedData) > 0 {
				assert.JSONEq(testCase.expectedData, string(envelope.Data))
			}
			if len(testCase.expectedError) > 0 {
				assert.NotEmpty(envelope.Errors)
				assert.Contains(envelope.Errors[0], testCase.expectedError)
			}
			if w.Code >= http.StatusBadRequest {
				assert.Equal("null", string(envelope.Data))
			}

			if testCase.expectedQuery != nil {
				call, ok := db.lastSearch()
				assert.True(ok, "no query was sent to the backend")
				expected, err := json.Marshal(testCase.expectedQuery)
				assert.NoError(err)
				actual, err := json.Marshal(call.body)
				assert.NoError(err)
				assert.JSONEq(string(expected), string(actual))
			}
		})
	}
}
