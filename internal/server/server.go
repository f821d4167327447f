package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gocloud.dev/blob"

	"nagare/internal/catalog"
	"nagare/internal/config"
	"nagare/internal/generated"
	"nagare/internal/source"
	"nagare/internal/transcode"
)

// legacyStreamName は /stream で配信する動画の名前
const legacyStreamName = "stream"

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	catalog    *catalog.Catalog
	handler    *NagareHandler
	engine     *gin.Engine
	httpServer *http.Server

	// Open で開いた場合のみ設定される
	bucket *blob.Bucket
}

// Open は設定に従ってバケットと動画カタログを準備し、Serverを作成する
func Open(ctx context.Context, cfg *config.Config) (*Server, error) {
	bucket, err := openBucket(ctx, cfg.Storage.BucketURL)
	if err != nil {
		return nil, err
	}

	cat, err := NewCatalog(ctx, cfg, bucket)
	if err != nil {
		_ = bucket.Close()
		return nil, err
	}

	srv, err := New(cfg, cat)
	if err != nil {
		_ = bucket.Close()
		return nil, err
	}
	srv.bucket = bucket

	return srv, nil
}

// NewCatalog は設定の動画を登録したカタログを作成する
func NewCatalog(ctx context.Context, cfg *config.Config, bucket *blob.Bucket) (*catalog.Catalog, error) {
	transcoder := transcode.New(transcode.Options{
		Binary:      cfg.Transcode.FFmpegBinary,
		Profile:     cfg.Transcode.Profile,
		IdleTimeout: cfg.Transcode.IdleTimeout,
	})

	if cfg.UsesTranscode() {
		// ffmpegがなくても通常の配信は続けられるため警告のみ
		if err := transcode.ValidateFFmpeg(ctx, cfg.Transcode.FFmpegBinary); err != nil {
			log.Warnf("トランスコードを利用できません: %v", err)
		}
	}

	var discovery catalog.Discovery
	if cfg.Storage.Discovery.Enabled {
		discovery = catalog.NewBucketDiscovery(bucket, cfg.Storage.Discovery.Prefix, source.TypeFile)
	}

	cat := catalog.New(catalog.Options{
		Bucket:       bucket,
		Transcoder:   transcoder,
		Discovery:    discovery,
		ScanInterval: cfg.Storage.Discovery.Interval,
	})

	for _, v := range cfg.Videos {
		sourceType := source.TypeFile
		if v.Transcode {
			sourceType = source.TypeTranscode
		}

		err := cat.Add(catalog.Resource{
			Name:        v.Name,
			Key:         v.Key,
			ContentType: v.ContentType,
			Type:        sourceType,
		})
		if err != nil {
			return nil, fmt.Errorf("動画の登録に失敗: %w", err)
		}
	}

	return cat, nil
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, cat *catalog.Catalog) (*Server, error) {
	handler := NewNagareHandler(cfg, cat)

	engine, err := newEngine(handler)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:  cfg,
		catalog: cat,
		handler: handler,
		engine:  engine,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// newEngine はルーティングとミドルウェアを設定したGinエンジンを作成する
func newEngine(handler *NagareHandler) (*gin.Engine, error) {
	swagger, err := generated.GetSwagger()
	if err != nil {
		return nil, err
	}
	validator, err := openAPIValidator(swagger)
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), validator)

	// プレイヤーページ
	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
	})
	engine.StaticFS("/assets", GetAssetsFS())

	// OpenAPI定義
	engine.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", generated.RawSpec())
	})

	// 旧来のURL。既定の動画 stream を直接配信する
	engine.GET("/"+legacyStreamName, func(c *gin.Context) {
		handler.serveVideo(c, legacyStreamName, nil, false)
	})
	engine.HEAD("/"+legacyStreamName, func(c *gin.Context) {
		handler.serveVideo(c, legacyStreamName, nil, true)
	})

	generated.RegisterHandlersWithOptions(engine, handler, generated.GinServerOptions{
		ErrorHandler: handleParamError,
	})

	return engine, nil
}

// Handler はHTTPハンドラーを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Catalog は動画カタログを返す
func (s *Server) Catalog() *catalog.Catalog {
	return s.catalog
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// 動画の自動検出を開始
	if err := s.catalog.Start(ctx); err != nil {
		return fmt.Errorf("動画カタログの開始に失敗: %w", err)
	}

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Infof("HTTPサーバーを起動しています: %s (動画 %d 件)", s.config.ServerAddress(), s.catalog.Len())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Infof("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		_ = s.catalog.Stop()
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 配信中のストリームは ShutdownTimeout まで完了を待つ
func (s *Server) Shutdown() error {
	log.Info("サーバーをシャットダウンしています...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("サーバーのシャットダウンに失敗: %w", err))
	}
	if err := s.catalog.Stop(); err != nil {
		errs = append(errs, err)
	}
	if s.bucket != nil {
		if err := s.bucket.Close(); err != nil {
			errs = append(errs, fmt.Errorf("バケットのクローズに失敗: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info("サーバーが正常にシャットダウンされました")
	return nil
}
