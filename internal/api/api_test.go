package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/recastops/recast/pkg/pipeline"
	"github.com/recastops/recast/pkg/plugin"
	"github.com/recastops/recast/pkg/store"
)

const testRecipe = `package 'nginx'

service 'nginx' do
  action [:enable, :start]
end
`

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := quietLogger()
	runner := pipeline.NewRunner(nil, nil, nil, nil, logger)
	return NewServer(":0", runner, store.NewMemoryStore(nil), logger).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return string(b)
}

func TestHealth(t *testing.T) {
	w := do(t, testRouter(t), http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if body["version"] == "" {
		t.Error("version field is empty")
	}
}

func TestPlugins(t *testing.T) {
	w := do(t, testRouter(t), http.MethodGet, "/api/v1/plugins", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Plugins []plugin.Binding `json:"plugins"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	kinds := make(map[string]string)
	for _, b := range body.Plugins {
		kinds[b.Tag+"/"+b.Kind] = b.Kind
	}
	for _, want := range []string{"chef/parser", "puppet/parser", "terraform/parser", "ansible/generator", "terraform/generator"} {
		if _, ok := kinds[want]; !ok {
			t.Errorf("plugins listing is missing %s", want)
		}
	}
}

func TestConvert(t *testing.T) {
	body := marshal(t, map[string]any{
		"source":  "chef",
		"target":  "ansible",
		"content": testRecipe,
	})
	w := do(t, testRouter(t), http.MethodPost, "/api/v1/convert", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp convertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.GraphID == "" {
		t.Error("graph_id is empty")
	}
	if resp.GraphHash == "" {
		t.Error("graph_hash is empty")
	}
	if resp.Nodes != 3 {
		t.Errorf("nodes = %d, want 3", resp.Nodes)
	}
	if !strings.Contains(resp.Output, "ansible.builtin.package") {
		t.Errorf("output missing package task:\n%s", resp.Output)
	}
}

func TestConvertValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing source", `{"target": "ansible", "content": "package 'x'"}`},
		{"missing target", `{"source": "chef", "content": "package 'x'"}`},
		{"missing content", `{"source": "chef", "target": "ansible"}`},
		{"malformed json", `{"source": `},
	}
	router := testRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/convert", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			var env errorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if env.Error.Code != "INVALID_INPUT" {
				t.Errorf("error code = %q, want INVALID_INPUT", env.Error.Code)
			}
		})
	}
}

func TestConvertUnknownSource(t *testing.T) {
	body := marshal(t, map[string]any{
		"source":  "fortran",
		"target":  "ansible",
		"content": "x",
	})
	w := do(t, testRouter(t), http.MethodPost, "/api/v1/convert", body)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestConvertIncompatible(t *testing.T) {
	body := marshal(t, map[string]any{
		"source":  "terraform",
		"target":  "ansible",
		"content": "resource \"aws_instance\" \"web\" {\n  ami = \"ami-123\"\n}\n",
	})
	w := do(t, testRouter(t), http.MethodPost, "/api/v1/convert", body)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if env.Error.Code != "INCOMPATIBLE_IR" {
		t.Errorf("error code = %q, want INCOMPATIBLE_IR", env.Error.Code)
	}
}

func TestGraphLifecycle(t *testing.T) {
	router := testRouter(t)

	// Create
	body := marshal(t, map[string]any{"source": "chef", "content": testRecipe})
	w := do(t, router, http.MethodPost, "/api/v1/graphs", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var created createGraphResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.GraphID == "" {
		t.Fatal("create returned no graph_id")
	}
	if created.Nodes != 3 {
		t.Errorf("create nodes = %d, want 3", created.Nodes)
	}

	// Get
	w = do(t, router, http.MethodGet, "/api/v1/graphs/"+created.GraphID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var envelope map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope["graph_id"] != created.GraphID {
		t.Errorf("envelope graph_id = %v, want %s", envelope["graph_id"], created.GraphID)
	}

	// List
	w = do(t, router, http.MethodGet, "/api/v1/graphs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var listing listGraphsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Count != 1 || len(listing.Graphs) != 1 {
		t.Fatalf("listing count = %d (%d records), want 1", listing.Count, len(listing.Graphs))
	}
	if listing.Graphs[0].GraphID != created.GraphID {
		t.Errorf("listed graph_id = %s, want %s", listing.Graphs[0].GraphID, created.GraphID)
	}

	// Render
	w = do(t, router, http.MethodGet, "/api/v1/graphs/"+created.GraphID+"/render?format=dot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("render status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("render content type = %q, want text/vnd.graphviz", ct)
	}
	if !strings.Contains(w.Body.String(), "digraph") {
		t.Error("render output is not DOT")
	}

	// Delete
	w = do(t, router, http.MethodDelete, "/api/v1/graphs/"+created.GraphID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}

	// Get after delete
	w = do(t, router, http.MethodGet, "/api/v1/graphs/"+created.GraphID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if env.Error.Code != "NOT_FOUND" {
		t.Errorf("error code = %q, want NOT_FOUND", env.Error.Code)
	}
}

func TestGraphGetMissing(t *testing.T) {
	w := do(t, testRouter(t), http.MethodGet, "/api/v1/graphs/no-such-id", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGraphRenderBadFormat(t *testing.T) {
	router := testRouter(t)
	body := marshal(t, map[string]any{"source": "chef", "content": testRecipe})
	w := do(t, router, http.MethodPost, "/api/v1/graphs", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", w.Code)
	}
	var created createGraphResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	w = do(t, router, http.MethodGet, "/api/v1/graphs/"+created.GraphID+"/render?format=gif", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}
