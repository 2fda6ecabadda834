package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// mockTestingT records failures instead of failing the real test.
type mockTestingT struct {
	failed   bool
	fatal    bool
	messages []string
}

func (m *mockTestingT) Helper() {}

func (m *mockTestingT) Errorf(format string, args ...any) {
	m.failed = true
	m.messages = append(m.messages, fmt.Sprintf(format, args...))
}

func (m *mockTestingT) Fatalf(format string, args ...any) {
	m.failed = true
	m.fatal = true
	m.messages = append(m.messages, fmt.Sprintf(format, args...))
}

func TestNewTestServer(t *testing.T) {
	ts := NewTestServer(t)
	if ts.Server == nil || ts.Store == nil || ts.Sender == nil {
		t.Fatalf("NewTestServer returned incomplete server: %+v", ts)
	}

	rr := ts.Serve(CreateHTTPRequest(t, http.MethodGet, "/health", nil))
	AssertHTTPStatus(t, http.StatusOK, rr.Code, "heartbeat")
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{"matching status codes", 200, 200, false},
		{"different status codes", 200, 404, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "test context")
			if mockT.failed != tt.shouldFail {
				t.Errorf("expected failed=%v, got %v (%v)", tt.shouldFail, mockT.failed, mockT.messages)
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expected   string
		shouldFail bool
		fatal      bool
	}{
		{"matching status", `{"status":"ok","result":{"a":1}}`, "ok", false, false},
		{"wrong status", `{"status":"error"}`, "ok", true, false},
		{"missing status", `{"result":{}}`, "ok", true, false},
		{"invalid json", `not json`, "ok", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			rr.Body.WriteString(tt.body)
			mockT := &mockTestingT{}
			AssertJSONResponse(mockT, rr, tt.expected)
			if mockT.failed != tt.shouldFail || mockT.fatal != tt.fatal {
				t.Errorf("failed=%v fatal=%v, want %v %v", mockT.failed, mockT.fatal, tt.shouldFail, tt.fatal)
			}
		})
	}
}

func TestResultMap(t *testing.T) {
	mockT := &mockTestingT{}
	got := ResultMap(mockT, map[string]interface{}{"result": map[string]interface{}{"reply": "hi"}})
	if mockT.failed || got["reply"] != "hi" {
		t.Errorf("unexpected result %v (%v)", got, mockT.messages)
	}

	ResultMap(mockT, map[string]interface{}{"status": "ok"})
	if !mockT.fatal {
		t.Error("expected missing result to be fatal")
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/chat", map[string]string{"session_id": "a"})
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %q", req.Header.Get("Content-Type"))
	}
	var body map[string]string
	data, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatal(err)
	}
	MustUnmarshalJSON(t, data, &body)
	if body["session_id"] != "a" {
		t.Errorf("unexpected body %v", body)
	}

	empty := CreateHTTPRequest(t, http.MethodGet, "/", nil)
	if empty.ContentLength != 0 || empty.Header.Get("Content-Type") != "" {
		t.Errorf("expected empty request, got length %d", empty.ContentLength)
	}
}

func TestCreateFormRequest(t *testing.T) {
	req := CreateFormRequest(t, "/twilio/messages", url.Values{"From": {"whatsapp:+1"}, "Body": {"hi"}})
	if err := req.ParseForm(); err != nil {
		t.Fatal(err)
	}
	if req.PostForm.Get("From") != "whatsapp:+1" || req.PostForm.Get("Body") != "hi" {
		t.Errorf("unexpected form %v", req.PostForm)
	}
}

func TestMustMarshalJSON(t *testing.T) {
	data := MustMarshalJSON(t, map[string]int{"n": 1})
	if string(data) != `{"n":1}` {
		t.Errorf("unexpected JSON %s", data)
	}

	mockT := &mockTestingT{}
	MustMarshalJSON(mockT, make(chan int))
	if !mockT.fatal {
		t.Error("expected marshal failure to be fatal")
	}
}
