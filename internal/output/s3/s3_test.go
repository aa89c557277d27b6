package s3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/output"
)

// fakeS3 answers bucket HEAD/PUT and records object PUTs.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  bool
	objects map[string]string
	methods []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, r.Method+" "+r.URL.Path)

	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.bucket {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.bucket = true
		w.WriteHeader(http.StatusOK)
	case len(parts) == 2 && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		if chunked(r) {
			decoded, err := decodeChunked(body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			body = decoded
		}
		f.objects[parts[1]] = string(body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

// chunked reports whether the request body uses the aws-chunked framing that
// minio-go applies to streaming uploads over plain HTTP.
func chunked(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") ||
		strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-")
}

// decodeChunked strips aws-chunked framing: "<hex size>[;ext]\r\n<data>\r\n"
// repeated, ending with a zero-size chunk and optional trailer headers.
func decodeChunked(body []byte) ([]byte, error) {
	rd := bufio.NewReader(bytes.NewReader(body))
	var out bytes.Buffer
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("chunk header: %w", err)
		}
		sizeHex, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("chunk size %q: %w", sizeHex, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, rd, size); err != nil {
			return nil, fmt.Errorf("chunk data: %w", err)
		}
		if _, err := rd.Discard(2); err != nil {
			return nil, fmt.Errorf("chunk terminator: %w", err)
		}
	}
}

func TestDecodeChunked(t *testing.T) {
	payload := "{\"issue_id\":\"P-1\"}\n{\"issue_id\":\"P-2\"}\n"
	tests := map[string]string{
		"signed": fmt.Sprintf("%x;chunk-signature=becc8f\r\n%s\r\n0;chunk-signature=a1b2\r\n\r\n", len(payload), payload),
		"unsigned trailer": fmt.Sprintf("%x\r\n%s\r\n0\r\nx-amz-checksum-crc32c:AAAAAA==\r\n\r\n", len(payload), payload),
	}
	for name, wire := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := decodeChunked([]byte(wire))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != payload {
				t.Errorf("decoded = %q, want %q", got, payload)
			}
		})
	}
}

func newFake(t *testing.T, bucketExists bool) (*fakeS3, Config) {
	f := &fakeS3{bucket: bucketExists, objects: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "exports",
		AccessKey: "minio",
		SecretKey: "minio123",
		Prefix:    "triage/",
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{Endpoint: "localhost:9000"}, "", output.Full)
	if !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestObjectName(t *testing.T) {
	_, cfg := newFake(t, true)
	out, err := New(cfg, "run-1", output.Full)
	if err != nil {
		t.Fatal(err)
	}
	if out.Object() != "triage/run-1.ndjson" {
		t.Errorf("Object = %q", out.Object())
	}
}

func TestCloseUploadsNDJSON(t *testing.T) {
	f, cfg := newFake(t, true)
	out, err := New(cfg, "run-1", output.Minimal)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	out.Write(ctx, model.MatchResult{IssueID: "P-1", BestMatches: []model.MatchCandidate{}})
	out.Write(ctx, model.MatchResult{IssueID: "P-2"})
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v (requests %v)", err, f.methods)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects["triage/run-1.ndjson"]
	if !ok {
		t.Fatalf("object not uploaded; requests %v", f.methods)
	}
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"P-1"`) || !strings.Contains(lines[1], `"P-2"`) {
		t.Errorf("body = %q", body)
	}
}

func TestCloseCreatesMissingBucket(t *testing.T) {
	f, cfg := newFake(t, false)
	out, err := New(cfg, "run-2", output.Full)
	if err != nil {
		t.Fatal(err)
	}
	out.Write(context.Background(), model.MatchResult{IssueID: "P-1"})
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v (requests %v)", err, f.methods)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.bucket {
		t.Error("bucket was not created")
	}
	if _, ok := f.objects["triage/run-2.ndjson"]; !ok {
		t.Errorf("object not uploaded; requests %v", f.methods)
	}
}

func TestCloseEmptyUploadsNothing(t *testing.T) {
	f, cfg := newFake(t, true)
	out, err := New(cfg, "run-3", output.Full)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.methods) != 0 {
		t.Errorf("expected no requests, got %v", f.methods)
	}
}
