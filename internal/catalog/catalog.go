package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocloud.dev/blob"

	"nagare/internal/source"
	"nagare/internal/transcode"
)

// DefaultScanInterval は自動検出のデフォルト間隔
const DefaultScanInterval = 30 * time.Second

// ErrNotFound は名前に対応する動画がないことを表す
var ErrNotFound = errors.New("catalog: video not found")

// Options はCatalogの設定
type Options struct {
	Bucket       *blob.Bucket          // 動画の読み出し元
	Factory      *source.Factory       // nil の場合は source.NewFactory()
	Transcoder   *transcode.Transcoder // トランスコード用（nil なら無効）
	Discovery    Discovery             // nil の場合は自動検出しない
	ScanInterval time.Duration         // 0 以下の場合は再スキャンしない
}

// Catalog は名前から動画を引く台帳
type Catalog struct {
	opts      Options
	factory   *source.Factory
	resources map[string]*Resource
	mu        sync.RWMutex

	// 制御用
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// New は新しいCatalogを作成する
func New(opts Options) *Catalog {
	factory := opts.Factory
	if factory == nil {
		factory = source.NewFactory()
	}
	return &Catalog{
		opts:      opts,
		factory:   factory,
		resources: make(map[string]*Resource),
		stopCh:    make(chan struct{}),
	}
}

// Start は初回の検出を行い、定期スキャンを開始する
func (c *Catalog) Start(ctx context.Context) error {
	if c.opts.Discovery == nil {
		return nil
	}

	if _, err := c.Discover(ctx); err != nil {
		return fmt.Errorf("初期スキャンに失敗: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.ScanInterval > 0 && !c.running {
		c.running = true
		c.wg.Add(1)
		go c.backgroundScan(ctx, c.stopCh)
	}

	return nil
}

// Stop は定期スキャンを停止する
func (c *Catalog) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stopCh)
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// Add は動画を静的エントリとして登録する
func (c *Catalog) Add(res Resource) error {
	if !ValidName(res.Name) {
		return fmt.Errorf("無効な名前: %q", res.Name)
	}
	if res.Key == "" {
		return fmt.Errorf("動画 %s のキーが空です", res.Name)
	}
	if res.Type == "" {
		res.Type = source.TypeFile
	}
	if !c.supports(res.Type) {
		return fmt.Errorf("動画 %s: サポートされていないソースタイプ: %s", res.Name, res.Type)
	}
	if res.Type == source.TypeTranscode && c.opts.Transcoder == nil {
		return fmt.Errorf("動画 %s: トランスコードが無効です", res.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.resources[res.Name]; ok && !existing.Discovered {
		return fmt.Errorf("動画 %s は既に追加されています", res.Name)
	}

	res.Discovered = false
	res.AddedAt = time.Now()
	c.resources[res.Name] = &res

	return nil
}

// Remove は動画を削除する
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.resources[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(c.resources, name)
	return nil
}

// Lookup は名前に対応する動画を返す
func (c *Catalog) Lookup(name string) (Resource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res, ok := c.resources[name]
	if !ok {
		return Resource{}, false
	}
	return *res, true
}

// List は登録されている動画を名前順で返す
func (c *Catalog) List() []Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := make([]Resource, 0, len(c.resources))
	for _, res := range c.resources {
		list = append(list, *res)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Len は登録されている動画の数を返す
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.resources)
}

// Source は動画を読み出すソースを作成する
func (c *Catalog) Source(res Resource) (source.Source, error) {
	return c.factory.Create(res.Type, source.Config{
		Bucket:      c.opts.Bucket,
		Key:         res.Key,
		ContentType: res.ContentType,
		Transcoder:  c.opts.Transcoder,
	})
}

// Discover はバケットを再スキャンし、検出結果で台帳を更新する
// 検出された動画の名前一覧を返す
func (c *Catalog) Discover(ctx context.Context) ([]string, error) {
	if c.opts.Discovery == nil {
		return nil, nil
	}

	// ストレージへのアクセスはロックの外で行う
	found, err := c.opts.Discovery.Scan(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(found))
	names := make([]string, 0, len(found))
	for _, res := range found {
		if !ValidName(res.Name) {
			log.Warnf("動画名に使えないキーをスキップ: %s", res.Key)
			continue
		}
		if seen[res.Name] {
			// 拡張子違いの同名ファイルはキー順で先のものを使う
			continue
		}
		seen[res.Name] = true
		names = append(names, res.Name)

		existing, ok := c.resources[res.Name]
		if ok && (!existing.Discovered || existing.Key == res.Key) {
			continue
		}

		res.Discovered = true
		res.AddedAt = time.Now()
		c.resources[res.Name] = &res
		log.Infof("動画を検出: %s (%s)", res.Name, res.Key)
	}

	// 存在しなくなった検出エントリを削除
	for name, res := range c.resources {
		if res.Discovered && !seen[name] {
			delete(c.resources, name)
			log.Infof("動画を削除: %s (%s)", name, res.Key)
		}
	}

	return names, nil
}

func (c *Catalog) supports(sourceType source.Type) bool {
	for _, t := range c.factory.SupportedTypes() {
		if t == sourceType {
			return true
		}
	}
	return false
}

// backgroundScan は定期的な再スキャンを実行する
func (c *Catalog) backgroundScan(ctx context.Context, stopCh <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Discover(ctx); err != nil {
				log.Errorf("動画の再スキャンに失敗: %v", err)
			}
		}
	}
}
