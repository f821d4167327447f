package catalog

import (
	"context"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"nagare/internal/source"
)

func TestBucketDiscovery_Scan(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("OpenBucket failed: %v", err)
	}
	defer func() { _ = bucket.Close() }()

	for _, key := range []string{"videos/b.webm", "videos/a.mp4", "videos/notes.txt", "videos/sub/c.mkv", "other/d.mp4"} {
		if err := bucket.WriteAll(ctx, key, []byte{0}, nil); err != nil {
			t.Fatalf("WriteAll failed: %v", err)
		}
	}

	discovery := NewBucketDiscovery(bucket, "videos/", "")
	resources, err := discovery.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []struct{ name, key string }{
		{"a", "videos/a.mp4"},
		{"b", "videos/b.webm"},
		{"sub-c", "videos/sub/c.mkv"},
	}
	if len(resources) != len(want) {
		t.Fatalf("Expected %d resources, got %+v", len(want), resources)
	}
	for i, w := range want {
		if resources[i].Name != w.name || resources[i].Key != w.key {
			t.Errorf("Expected %s (%s), got %s (%s)", w.name, w.key, resources[i].Name, resources[i].Key)
		}
		if !resources[i].Discovered || resources[i].Type != source.TypeFile {
			t.Errorf("Unexpected resource: %+v", resources[i])
		}
	}
}

func TestNameFromKey(t *testing.T) {
	testCases := map[string]string{
		"1.mp4":               "1",
		"movies/big buck.mp4": "movies-big-buck",
		"a.b.webm":            "a.b",
		"/abs/path.mkv":       "abs-path",
		"日本語.mp4":             "---",
	}

	for key, want := range testCases {
		if got := NameFromKey(key); got != want {
			t.Errorf("NameFromKey(%q): expected %q, got %q", key, want, got)
		}
	}
}
