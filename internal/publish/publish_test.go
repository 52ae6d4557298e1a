package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/config"
	"cleanarch/internal/report"
)

type object struct {
	data        []byte
	contentType string
}

type fakeBackend struct {
	buckets map[string]string
	objects map[string]object
	putErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{buckets: map[string]string{}, objects: map[string]object{}}
}

func (f *fakeBackend) EnsureBucket(_ context.Context, bucket, region string) error {
	if _, ok := f.buckets[bucket]; !ok {
		f.buckets[bucket] = region
	}
	return nil
}

func (f *fakeBackend) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[bucket+"/"+key] = object{data: data, contentType: contentType}
	return nil
}

func testReport() *cleanarch.Report {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return &cleanarch.Report{RunID: "run-42", Module: "m", StartedAt: now, FinishedAt: now}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "cleanarch/run-1.json", ObjectKey("cleanarch", "run-1", report.FormatJSON))
	assert.Equal(t, "run-1.md", ObjectKey("", "run-1", report.FormatMarkdown))
	assert.Equal(t, "a/b/run-1.txt", ObjectKey("a/b/", "run-1", report.FormatText))
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	p, err := NewWithBackend(ctx, backend, "reports", "eu-west-1", "cleanarch")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", backend.buckets["reports"])

	key, err := p.Publish(ctx, testReport(), report.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "cleanarch/run-42.json", key)

	obj, ok := backend.objects["reports/cleanarch/run-42.json"]
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.contentType)

	var got cleanarch.Report
	require.NoError(t, json.Unmarshal(obj.data, &got))
	assert.Equal(t, "run-42", got.RunID)
}

func TestPublishUploadError(t *testing.T) {
	backend := newFakeBackend()
	backend.putErr = errors.New("connection refused")
	p, err := NewWithBackend(context.Background(), backend, "reports", "", "")
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), testReport(), report.FormatMarkdown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), config.PublishConfig{Enabled: true, Bucket: "b"})
	assert.Error(t, err)
}
