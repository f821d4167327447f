package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"nagare/internal/transcode"
)

// 環境変数名
const (
	EnvConfigPath = "NAGARE_CONFIG"
	EnvBucketURL  = "NAGARE_BUCKET_URL"
	EnvChunkSize  = "NAGARE_CHUNK_SIZE"
	EnvLogLevel   = "NAGARE_LOG_LEVEL"
	EnvFFmpeg     = "NAGARE_FFMPEG"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Stream    StreamConfig    `yaml:"stream"`
	Transcode TranscodeConfig `yaml:"transcode"`
	Log       LogConfig       `yaml:"log"`
	Videos    []VideoConfig   `yaml:"videos"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // 書き込みタイムアウト
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // シャットダウン待ち時間
}

// StorageConfig は動画の保存先の設定
type StorageConfig struct {
	BucketURL string          `yaml:"bucket_url"` // file:///path, s3://bucket, gs://bucket, mem://
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// DiscoveryConfig は動画の自動検出の設定
type DiscoveryConfig struct {
	Enabled  bool          `yaml:"enabled"`  // 自動検出を行うか
	Prefix   string        `yaml:"prefix"`   // 検出対象のキーの接頭辞
	Interval time.Duration `yaml:"interval"` // 再スキャン間隔（0 で初回のみ）
}

// StreamConfig はバイト配信の設定
type StreamConfig struct {
	ChunkSize         int           `yaml:"chunk_size"`           // 1チャンクの最大バイト数
	MaxBytesPerSecond int64         `yaml:"max_bytes_per_second"` // 1ストリームの帯域上限（0 で無制限）
	StatTimeout       time.Duration `yaml:"stat_timeout"`         // メタデータ取得のタイムアウト
}

// RangePolicy はシーク不可能なソースへのRange要求の扱い
type RangePolicy string

// RangePolicy の定数定義
const (
	RangePolicyFull   RangePolicy = "full"   // Rangeを無視して先頭から配信する
	RangePolicyReject RangePolicy = "reject" // 416で拒否する
)

// TranscodeConfig はトランスコードの設定
type TranscodeConfig struct {
	FFmpegBinary string            `yaml:"ffmpeg_binary"` // ffmpegの実行ファイル
	Profile      transcode.Profile `yaml:",inline"`       // エンコード設定
	IdleTimeout  time.Duration     `yaml:"idle_timeout"`  // 出力が途絶えたときの停止までの時間
	RangePolicy  RangePolicy       `yaml:"range_policy"`  // Range要求の扱い
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// VideoConfig は静的に登録する動画の設定
type VideoConfig struct {
	Name        string `yaml:"name"`         // URL上の名前
	Key         string `yaml:"key"`          // バケット内のキー
	ContentType string `yaml:"content_type"` // MIMEタイプ（空なら推定）
	Transcode   bool   `yaml:"transcode"`    // ffmpegで変換して配信するか
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // ストリーミング用にタイムアウト無効化
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			BucketURL: defaultBucketURL(),
			Discovery: DiscoveryConfig{
				Enabled:  false,
				Interval: 30 * time.Second,
			},
		},
		Stream: StreamConfig{
			ChunkSize:         8 * 1024,
			MaxBytesPerSecond: 0,
			StatTimeout:       5 * time.Second,
		},
		Transcode: TranscodeConfig{
			FFmpegBinary: transcode.DefaultBinary,
			Profile:      transcode.DefaultProfile(),
			IdleTimeout:  transcode.DefaultIdleTimeout,
			RangePolicy:  RangePolicyFull,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Videos: []VideoConfig{
			{Name: "stream", Key: "1.mp4"},
		},
	}
}

// Load は設定を読み込む
// デフォルト値、NAGARE_CONFIG のYAMLファイル、環境変数の順に上書きする
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile は指定されたYAMLファイルから設定を読み込む
// path が空の場合はファイルを読まない
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Storage.BucketURL = getEnvOrDefault(EnvBucketURL, c.Storage.BucketURL)
	c.Stream.ChunkSize = getEnvAsIntOrDefault(EnvChunkSize, c.Stream.ChunkSize)
	c.Log.Level = getEnvOrDefault(EnvLogLevel, c.Log.Level)
	c.Transcode.FFmpegBinary = getEnvOrDefault(EnvFFmpeg, c.Transcode.FFmpegBinary)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("タイムアウトに負の値は指定できません")
	}

	// ストレージ設定の検証
	if c.Storage.BucketURL == "" {
		return fmt.Errorf("bucket_url が設定されていません")
	}
	if c.Storage.Discovery.Interval < 0 {
		return fmt.Errorf("無効な再スキャン間隔: %v", c.Storage.Discovery.Interval)
	}

	// 配信設定の検証
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("無効なチャンクサイズ: %d", c.Stream.ChunkSize)
	}
	if c.Stream.MaxBytesPerSecond < 0 {
		return fmt.Errorf("無効な帯域上限: %d", c.Stream.MaxBytesPerSecond)
	}
	if c.Stream.StatTimeout <= 0 {
		return fmt.Errorf("無効なstat_timeout: %v", c.Stream.StatTimeout)
	}

	// トランスコード設定の検証
	if err := c.Transcode.Profile.Validate(); err != nil {
		return err
	}
	switch c.Transcode.RangePolicy {
	case RangePolicyFull, RangePolicyReject:
	default:
		return fmt.Errorf("無効なrange_policy: %s", c.Transcode.RangePolicy)
	}

	// ログ設定の検証
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("無効なログレベル: %s", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("無効なログ形式: %s", c.Log.Format)
	}

	// 動画設定の検証
	names := make(map[string]bool, len(c.Videos))
	for i, v := range c.Videos {
		if v.Name == "" {
			return fmt.Errorf("動画[%d]の名前が設定されていません", i)
		}
		if v.Key == "" {
			return fmt.Errorf("動画 %s のキーが設定されていません", v.Name)
		}
		if names[v.Name] {
			return fmt.Errorf("動画名が重複しています: %s", v.Name)
		}
		names[v.Name] = true
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// UsesTranscode はトランスコード対象の動画があるかを返す
func (c *Config) UsesTranscode() bool {
	for _, v := range c.Videos {
		if v.Transcode {
			return true
		}
	}
	return false
}

// defaultBucketURL はカレントディレクトリを指すfileblobのURLを返す
func defaultBucketURL() string {
	dir, err := filepath.Abs(".")
	if err != nil {
		return "file://."
	}
	return "file://" + filepath.ToSlash(dir)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warnf("環境変数 %s の値 %q は整数ではないため無視します", key, value)
	}
	return defaultValue
}
