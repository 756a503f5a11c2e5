package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazyhaar/ingestkit/ingest"
	"github.com/hazyhaar/ingestkit/partition"
	"github.com/hazyhaar/ingestkit/server"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := ingest.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")

	ing, err := ingest.New(context.Background(), cfg,
		ingest.WithMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("ingest.New: %v", err)
	}
	t.Cleanup(func() { ing.Close() })
	return server.New(ing, ":0", nil)
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestFileTypes(t *testing.T) {
	srv := newServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/filetypes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var types []struct {
		Name          string   `json:"name"`
		Extensions    []string `json:"extensions"`
		Partitionable bool     `json:"partitionable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &types); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(types) < 20 {
		t.Errorf("listed %d types, want at least the builtins", len(types))
	}
	found := false
	for _, ft := range types {
		if ft.Name == "PDF" {
			found = true
			if !ft.Partitionable {
				t.Error("PDF should be partitionable")
			}
		}
	}
	if !found {
		t.Error("PDF missing from listing")
	}
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/partition", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPartitionUpload(t *testing.T) {
	srv := newServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "report.md", "# Report\n\nA body line.\n"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var doc partition.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.FileType != "MD" {
		t.Errorf("FileType = %q, want MD", doc.FileType)
	}
	if doc.Path != "report.md" {
		t.Errorf("Path = %q, want original filename", doc.Path)
	}
	if doc.Title != "Report" {
		t.Errorf("Title = %q", doc.Title)
	}
	if len(doc.Elements) != 2 {
		t.Errorf("elements = %d, want 2", len(doc.Elements))
	}
}

func TestPartitionUploadUnknownExtension(t *testing.T) {
	srv := newServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "blob.xyz", "data"))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}

func TestStats(t *testing.T) {
	srv := newServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats["documents"] != 0 || stats["pending"] != 0 {
		t.Errorf("stats = %v, want zeros on a fresh store", stats)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}
