package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"gocloud.dev/blob"

	"nagare/internal/source"
)

// BucketDiscovery はバケット内の動画ファイルを検出する
type BucketDiscovery struct {
	bucket     *blob.Bucket
	prefix     string
	sourceType source.Type
}

// NewBucketDiscovery は新しいBucketDiscoveryを作成する
// prefix 以下のキーのうち動画の拡張子を持つものを対象とする
func NewBucketDiscovery(bucket *blob.Bucket, prefix string, sourceType source.Type) *BucketDiscovery {
	if sourceType == "" {
		sourceType = source.TypeFile
	}
	return &BucketDiscovery{
		bucket:     bucket,
		prefix:     prefix,
		sourceType: sourceType,
	}
}

// Scan はバケットを走査して動画一覧を返す
func (d *BucketDiscovery) Scan(ctx context.Context) ([]Resource, error) {
	var resources []Resource

	it := d.bucket.List(&blob.ListOptions{Prefix: d.prefix})
	for {
		obj, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("バケットの走査に失敗: %w", err)
		}

		if obj.IsDir || !source.IsVideo(obj.Key) {
			continue
		}

		resources = append(resources, Resource{
			Name:       NameFromKey(strings.TrimPrefix(obj.Key, d.prefix)),
			Key:        obj.Key,
			Type:       d.sourceType,
			Discovered: true,
		})
	}

	// キー順で安定させる
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Key < resources[j].Key
	})

	return resources, nil
}

// NameFromKey はキーからURL用の名前を作る
// 拡張子を除き、使えない文字は '-' に置き換える
func NameFromKey(key string) string {
	base := strings.TrimSuffix(key, path.Ext(key))
	base = strings.Trim(base, "/")

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// MockDiscovery はテスト用の検出実装
type MockDiscovery struct {
	mu        sync.Mutex
	resources []Resource
	err       error
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(keys ...string) *MockDiscovery {
	m := &MockDiscovery{}
	for _, key := range keys {
		m.AddKey(key)
	}
	return m
}

// AddKey は検出対象のキーを追加する
func (m *MockDiscovery) AddKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources = append(m.resources, Resource{
		Name:       NameFromKey(key),
		Key:        key,
		Type:       source.TypeFile,
		Discovered: true,
	})
}

// RemoveKey は検出対象のキーを削除する
func (m *MockDiscovery) RemoveKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, res := range m.resources {
		if res.Key == key {
			m.resources = append(m.resources[:i], m.resources[i+1:]...)
			return
		}
	}
}

// SetError はScanが返すエラーを設定する
func (m *MockDiscovery) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Scan は登録済みのキーを返す
func (m *MockDiscovery) Scan(_ context.Context) ([]Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]Resource(nil), m.resources...), nil
}
