//go:build integration

package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nagare/internal/config"
	"nagare/internal/testutils"
)

// TestIntegrationServeFromMinio はS3互換ストレージからのRange配信を確認する
func TestIntegrationServeFromMinio(t *testing.T) {
	if testing.Short() {
		t.Skip("統合テストはshortモードではスキップします")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	env := testutils.StartMinioContainer(t, ctx, "videos")
	defer func() {
		if err := env.Close(ctx); err != nil {
			t.Logf("minioコンテナの停止に失敗: %v", err)
		}
	}()

	bucket, err := env.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("バケットを開けません: %v", err)
	}
	defer bucket.Close()

	data := testutils.GenerateTestData(t, 5*1024*1024)
	if err := bucket.WriteAll(ctx, "movies/sample.mp4", data, nil); err != nil {
		t.Fatalf("アップロードに失敗: %v", err)
	}

	cfg := config.Default()
	cfg.Storage.BucketURL = env.BucketURL
	cfg.Storage.Discovery.Enabled = true
	cfg.Storage.Discovery.Prefix = "movies/"
	cfg.Storage.Discovery.Interval = 0
	cfg.Videos = nil

	srv, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("サーバーの作成に失敗: %v", err)
	}
	defer srv.Shutdown()

	// 自動検出で sample が登録される
	if _, err := srv.Catalog().Discover(ctx); err != nil {
		t.Fatalf("動画の検出に失敗: %v", err)
	}
	if _, ok := srv.Catalog().Lookup("sample"); !ok {
		t.Fatal("sample が検出されていません")
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	testCases := []struct {
		name        string
		rangeHeader string
		wantStatus  int
		start, end  int
	}{
		{"全体", "", http.StatusOK, 0, len(data)},
		{"先頭", "bytes=0-1048575", http.StatusPartialContent, 0, 1048576},
		{"途中から", fmt.Sprintf("bytes=%d-", len(data)/2), http.StatusPartialContent, len(data) / 2, len(data)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/videos/sample", nil)
			if err != nil {
				t.Fatal(err)
			}
			if tc.rangeHeader != "" {
				req.Header.Set("Range", tc.rangeHeader)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("リクエストに失敗: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			testutils.CompareReaderToData(t, resp.Body, data[tc.start:tc.end])
		})
	}
}
