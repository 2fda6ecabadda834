// Package testutil provides common test utilities and helpers for LiveWell tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/api"
	"github.com/BTreeMap/LiveWell/internal/flow"
	"github.com/BTreeMap/LiveWell/internal/store"
	"github.com/BTreeMap/LiveWell/internal/twiliowhatsapp"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// cleaner is implemented by *testing.T and *testing.B.
type cleaner interface {
	Cleanup(func())
}

// TestServer bundles a Server with the fakes behind it.
type TestServer struct {
	*api.Server
	Store  *store.InMemoryStore
	Sender *twiliowhatsapp.MockClient
}

// NewTestServer creates an API server backed by an in-memory store, the
// deterministic fallback planner and a mock Twilio sender. The store also
// deduplicates inbound webhooks. Extra options are
// applied after the defaults.
func NewTestServer(t TB, opts ...api.Option) *TestServer {
	t.Helper()
	st := store.NewInMemoryStore()
	if c, ok := t.(cleaner); ok {
		c.Cleanup(func() { st.Close() })
	}
	sender := twiliowhatsapp.NewMockClient()
	checkin := flow.NewCheckinService(st)

	all := append([]api.Option{api.WithSender(sender), api.WithDedup(st)}, opts...)
	return &TestServer{
		Server: api.NewServer(checkin, all...),
		Store:  st,
		Sender: sender,
	}
}

// Serve runs req through the server router and records the response.
func (ts *TestServer) Serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.Router().ServeHTTP(rr, req)
	return rr
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}

// ResultMap returns the "result" object of a decoded APIResponse.
func ResultMap(t TB, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no result object: %v", response)
	}
	return result
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// CreateFormRequest creates a form-encoded POST request, as Twilio sends.
func CreateFormRequest(t TB, target string, form url.Values) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("failed to create form request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
