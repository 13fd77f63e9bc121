package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	"sector_dashboard/internal/config"
	"sector_dashboard/internal/models"
)

// memS3 is an in-memory bucket that pages list results two at a time.
type memS3 struct {
	objects map[string][]byte
	fail    error
}

func newMemS3() *memS3 { return &memS3{objects: make(map[string][]byte)} }

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := min(start+2, len(keys))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func archives(t *testing.T) map[string]Archive {
	t.Helper()
	fsa, err := NewFSArchive(filepath.Join(t.TempDir(), "saved_reports"))
	if err != nil {
		t.Fatalf("NewFSArchive failed: %v", err)
	}
	return map[string]Archive{
		"fs": fsa,
		"s3": newS3Archive(newMemS3(), "research", "reports"),
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleReport()
			key, err := a.Save(ctx, want)
			if err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if key != "Tata Consultancy_2024-05-01.json" {
				t.Errorf("key = %q", key)
			}
			got, err := a.Load(ctx, key)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}

			// Saving the same company and date replaces the snapshot.
			want.Conclusion = "Sell on strength"
			if _, err := a.Save(ctx, want); err != nil {
				t.Fatal(err)
			}
			got, _ = a.Load(ctx, key)
			if got.Conclusion != "Sell on strength" {
				t.Errorf("snapshot not replaced: %q", got.Conclusion)
			}
		})
	}
}

func TestArchiveListNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			for _, d := range []string{"2024-01-15", "2024-03-01", "2023-12-31"} {
				r := sampleReport()
				r.CompanyName, r.Date = "Infosys", d
				if _, err := a.Save(ctx, r); err != nil {
					t.Fatal(err)
				}
			}
			got, err := a.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			want := []string{"Infosys_2024-03-01.json", "Infosys_2024-01-15.json", "Infosys_2023-12-31.json"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("List mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArchiveErrors(t *testing.T) {
	ctx := context.Background()
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Load(ctx, "Nobody_2024-01-01.json"); !errors.Is(err, models.ErrNotFound) {
				t.Errorf("missing report: got %v", err)
			}
			for _, key := range []string{"", "../sectors.json", "a/b.json", "notes.txt"} {
				if _, err := a.Load(ctx, key); !errors.Is(err, models.ErrInvalidArgument) {
					t.Errorf("Load(%q): expected ErrInvalidArgument, got %v", key, err)
				}
			}
			r := sampleReport()
			r.Date = ""
			if _, err := a.Save(ctx, r); !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("Save without date: got %v", err)
			}
			keys, _ := a.List(ctx)
			if len(keys) != 0 {
				t.Errorf("nothing should be saved, got %v", keys)
			}
		})
	}
}

func TestFSArchiveFormat(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFSArchive(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Save(context.Background(), sampleReport()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Tata Consultancy_2024-05-01.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "{\n    \"report_date\": \"2024-05-01\",") {
		t.Errorf("unexpected layout:\n%s", data)
	}
	// Stray files are not reports.
	os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0o644)
	keys, _ := a.List(context.Background())
	if len(keys) != 1 {
		t.Errorf("List = %v", keys)
	}
}

func TestS3ArchiveFailures(t *testing.T) {
	m := newMemS3()
	m.fail = errors.New("access denied")
	a := newS3Archive(m, "research", "reports/")
	if _, err := a.Save(context.Background(), sampleReport()); !errors.Is(err, models.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}

	m.fail = nil
	m.objects["reports/nested/x.json"] = []byte("{}")
	m.objects["reports/bad.json"] = []byte("not json")
	keys, err := a.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"bad.json"}, keys); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
	if _, err := a.Load(context.Background(), "bad.json"); !errors.Is(err, models.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestOpenArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	a, err := OpenArchive(context.Background(), config.ReportsConfig{Driver: "fs", Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*FSArchive); !ok {
		t.Errorf("got %T", a)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("archive dir not created: %v", err)
	}
	if _, err := OpenArchive(context.Background(), config.ReportsConfig{Driver: "s3"}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("s3 without bucket: got %v", err)
	}
	if _, err := OpenArchive(context.Background(), config.ReportsConfig{Driver: "ftp"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
