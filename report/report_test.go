package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/migrate"
)

func sampleReport() *migrate.Report {
	return &migrate.Report{
		RunID:   "run-1",
		Root:    cg.Ref(cg.Service, "s1"),
		Success: true,
		Errors:  []migrate.ImportError{},
		Skips: []migrate.SkipDetail{
			{Reason: "environment not migrated: e9", Origin: cg.Ref(cg.Infrastructure, "i9"), Type: cg.Infrastructure},
		},
		Migrated:   []migrate.MigratedEntity{},
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, []byte("}\n")))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["runId"])
	assert.Equal(t, true, decoded["success"])

	_, err = Encode(nil)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestWriteStdout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), "-", sampleReport(), Options{Stdout: &buf}))
	assert.Contains(t, buf.String(), `"runId": "run-1"`)
	assert.Contains(t, buf.String(), "environment not migrated: e9")
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()

	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "report.json")
		require.NoError(t, Write(context.Background(), path, sampleReport(), Options{}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"runId": "run-1"`)
	})

	t.Run("directory gets run id", func(t *testing.T) {
		require.NoError(t, Write(context.Background(), dir, sampleReport(), Options{}))
		_, err := os.Stat(filepath.Join(dir, "run-1.json"))
		assert.NoError(t, err)
	})
}

func TestParseS3(t *testing.T) {
	bucket, key, err := ParseS3("s3://reports/ngmigrate/run.json")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "ngmigrate/run.json", key)

	bucket, key, err = ParseS3("s3://reports")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Empty(t, key)

	_, _, err = ParseS3("s3:///key")
	assert.True(t, errors.IsInvalidRequestError(err))

	_, _, err = ParseS3("/tmp/report.json")
	assert.True(t, errors.IsInvalidRequestError(err))
}

// recordingTransport captures S3 requests in memory.
type recordingTransport struct {
	mu     sync.Mutex
	status int
	puts   map[string]recordedPut
}

type recordedPut struct {
	body        []byte
	contentType string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if req.Method == http.MethodPut {
		body, _ := io.ReadAll(req.Body)
		rt.puts[strings.TrimPrefix(req.URL.Path, "/")] = recordedPut{body: body, contentType: req.Header.Get("Content-Type")}
	}
	status := rt.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     http.Header{"ETag": {"\"etag\""}},
		Request:    req,
	}, nil
}

func newTestS3Sink(t *testing.T, rt http.RoundTripper, key string) *S3Sink {
	t.Helper()
	sink, err := NewS3Sink(context.Background(), S3Config{
		Region:    "us-east-1",
		Bucket:    "reports",
		Key:       key,
		Endpoint:  "https://mock.s3.local",
		PathStyle: true,
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.Credentials = credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.RetryMaxAttempts = 1
	})
	require.NoError(t, err)
	return sink
}

func TestS3Sink(t *testing.T) {
	t.Run("explicit key", func(t *testing.T) {
		rt := &recordingTransport{puts: map[string]recordedPut{}}
		sink := newTestS3Sink(t, rt, "ngmigrate/latest.json")
		require.NoError(t, sink.Put(context.Background(), sampleReport()))

		put, ok := rt.puts["reports/ngmigrate/latest.json"]
		require.True(t, ok, "object not uploaded: %v", rt.puts)
		assert.Equal(t, "application/json", put.contentType)
		assert.Contains(t, string(put.body), `"runId": "run-1"`)
	})

	t.Run("prefix key uses run id", func(t *testing.T) {
		rt := &recordingTransport{puts: map[string]recordedPut{}}
		sink := newTestS3Sink(t, rt, "runs/")
		assert.Equal(t, "runs/run-1.json", sink.Key(sampleReport()))
		require.NoError(t, sink.Put(context.Background(), sampleReport()))
		_, ok := rt.puts["reports/runs/run-1.json"]
		assert.True(t, ok)
	})

	t.Run("upload failure", func(t *testing.T) {
		rt := &recordingTransport{puts: map[string]recordedPut{}, status: http.StatusForbidden}
		sink := newTestS3Sink(t, rt, "")
		err := sink.Put(context.Background(), sampleReport())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "s3://reports/run-1.json")
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := NewS3Sink(context.Background(), S3Config{Region: "us-east-1"})
		assert.True(t, errors.IsInvalidRequestError(err))
	})
}
