// Package main はnagareサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"nagare/internal/config"
	"nagare/internal/logging"
	"nagare/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", os.Getenv(config.EnvConfigPath), "設定ファイルのパス (YAML)")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		bucketURL  = flag.String("bucket", "", "動画を置くバケットのURL (例: file:///srv/videos, s3://bucket)")
		discover   = flag.Bool("discover", false, "バケット内の動画を自動検出する")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("nagare")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *bucketURL != "" {
		cfg.Storage.BucketURL = *bucketURL
	}
	if *discover {
		cfg.Storage.Discovery.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("ログの設定に失敗しました: %v", err)
	}

	ctx := context.Background()

	srv, err := server.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("サーバーの作成に失敗しました: %v", err)
	}

	// サーバーを起動
	log.Infof("nagare サーバーを起動します: %s (%s)", cfg.ServerAddress(), cfg.Storage.BucketURL)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
