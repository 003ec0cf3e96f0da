package sync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store/memory"
)

type putCall struct {
	key         string
	body        []byte
	contentType string
	meta        map[string]string
}

// fakeS3 records PutObject calls.
type fakeS3 struct {
	calls []putCall
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, putCall{
		key:         aws.ToString(in.Key),
		body:        body,
		contentType: aws.ToString(in.ContentType),
		meta:        in.Metadata,
	})
	return &s3.PutObjectOutput{}, nil
}

func exportSnapshot(t *testing.T) []byte {
	t.Helper()
	ms := memory.New()
	seedForm(t, ms, "fm-1", model.StateDraft)
	seedForm(t, ms, "fm-2", model.StatePublished)
	seedForm(t, ms, "fm-3", model.StatePublished)

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}
	return buf.Bytes()
}

func TestS3Destination_DefaultKeyAndMetadata(t *testing.T) {
	client := &fakeS3{}
	dest := newS3Destination(client, S3Config{Bucket: "forms"})
	data := exportSnapshot(t)

	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("PutObject calls = %d, want 1", len(client.calls))
	}
	call := client.calls[0]
	if call.key != DefaultS3Key {
		t.Errorf("key = %q, want %q", call.key, DefaultS3Key)
	}
	if !bytes.Equal(call.body, data) {
		t.Error("uploaded body differs from snapshot")
	}
	if call.contentType != "application/x-ndjson" {
		t.Errorf("content type = %q", call.contentType)
	}
	want := map[string]string{
		"snapshot-version": "1",
		"form-count":       "3",
		"forms-draft":      "1",
		"forms-published":  "2",
	}
	for k, v := range want {
		if call.meta[k] != v {
			t.Errorf("metadata %s = %q, want %q", k, call.meta[k], v)
		}
	}
	if _, ok := call.meta["forms-archived"]; ok {
		t.Error("metadata carries a count for a state with no forms")
	}
	if call.meta["exported-at"] == "" {
		t.Error("metadata missing exported-at")
	}
}

func TestS3Destination_History(t *testing.T) {
	client := &fakeS3{}
	dest := newS3Destination(client, S3Config{Bucket: "forms", Key: "backups/all.jsonl", History: true})

	if err := dest.Write(context.Background(), exportSnapshot(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("PutObject calls = %d, want 2", len(client.calls))
	}
	if client.calls[0].key != "backups/all.jsonl" {
		t.Errorf("latest key = %q", client.calls[0].key)
	}
	hist := client.calls[1].key
	if !strings.HasPrefix(hist, "backups/all/") || !strings.HasSuffix(hist, "Z.jsonl") {
		t.Errorf("history key = %q", hist)
	}
}

func TestS3Destination_RejectsHeaderlessData(t *testing.T) {
	client := &fakeS3{}
	dest := newS3Destination(client, S3Config{Bucket: "forms"})

	for _, data := range []string{"", "not json\n", `{"type":"form","data":{}}` + "\n"} {
		if err := dest.Write(context.Background(), []byte(data)); err == nil {
			t.Errorf("Write(%q) succeeded", data)
		}
	}
	if len(client.calls) != 0 {
		t.Errorf("PutObject calls = %d, want 0", len(client.calls))
	}
}

func TestS3Destination_PutError(t *testing.T) {
	client := &fakeS3{err: errors.New("access denied")}
	dest := newS3Destination(client, S3Config{Bucket: "forms"})

	err := dest.Write(context.Background(), exportSnapshot(t))
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("Write error = %v", err)
	}
}

func TestNewS3Destination_RequiresBucket(t *testing.T) {
	if _, err := NewS3Destination(context.Background(), S3Config{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}
