package event

import (
	"net/http"
	"testing"
)

func TestRequest_Clone(t *testing.T) {
	orig := &Request{
		Method:   "GET",
		Path:     "/api/users",
		Query:    "page=2",
		Headers:  http.Header{"Accept": {"application/json"}},
		Cookies:  []*http.Cookie{{Name: "session", Value: "abc"}},
		Body:     []byte("payload"),
		ClientIP: "127.0.0.1",
	}

	clone := orig.Clone()
	clone.Method = "POST"
	clone.Headers.Set("Accept", "text/html")
	clone.Cookies[0].Value = "changed"
	clone.Body[0] = 'X'

	if orig.Method != "GET" {
		t.Errorf("original method mutated: %q", orig.Method)
	}
	if got := orig.Headers.Get("Accept"); got != "application/json" {
		t.Errorf("original headers mutated: %q", got)
	}
	if orig.Cookies[0].Value != "abc" {
		t.Errorf("original cookies mutated: %q", orig.Cookies[0].Value)
	}
	if string(orig.Body) != "payload" {
		t.Errorf("original body mutated: %q", orig.Body)
	}
}

func TestResponse_Clone(t *testing.T) {
	orig := &Response{
		Status:            200,
		StatusDescription: "OK",
		Headers:           http.Header{"Set-Cookie": {"a=1", "b=2"}},
		Body:              []byte("hello"),
	}

	clone := orig.Clone()
	clone.Headers.Add("Set-Cookie", "c=3")
	clone.Body[0] = 'H'

	if got := len(orig.Headers["Set-Cookie"]); got != 2 {
		t.Errorf("original multi-valued header mutated: %d values", got)
	}
	if string(orig.Body) != "hello" {
		t.Errorf("original body mutated: %q", orig.Body)
	}
}

func TestClone_Nil(t *testing.T) {
	if (*Request)(nil).Clone() != nil {
		t.Error("nil request clone should be nil")
	}
	if (*Response)(nil).Clone() != nil {
		t.Error("nil response clone should be nil")
	}
}

func TestParseStage(t *testing.T) {
	for _, s := range Stages() {
		got, err := ParseStage(string(s))
		if err != nil {
			t.Errorf("ParseStage(%q) error = %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStage(%q) = %q", s, got)
		}
	}

	if _, err := ParseStage("viewer-req"); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestStage_RequestPhase(t *testing.T) {
	tests := []struct {
		stage Stage
		want  bool
	}{
		{StageViewerRequest, true},
		{StageOriginRequest, true},
		{StageOriginResponse, false},
		{StageViewerResponse, false},
	}
	for _, tt := range tests {
		if got := tt.stage.RequestPhase(); got != tt.want {
			t.Errorf("%s.RequestPhase() = %v, want %v", tt.stage, got, tt.want)
		}
	}
}
