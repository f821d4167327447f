package source

import (
	"fmt"
	"slices"

	"gocloud.dev/blob"

	"nagare/internal/transcode"
)

// Type はソースの種類
type Type string

const (
	// TypeFile はバケット上のファイルをそのまま配信する
	TypeFile Type = "file"
	// TypeTranscode はファイルをffmpegで変換しながら配信する
	TypeTranscode Type = "transcode"
)

// Config はソース作成設定
type Config struct {
	Bucket      *blob.Bucket          // 読み出し元のバケット
	Key         string                // オブジェクトのキー
	ContentType string                // MIMEタイプの明示指定
	Transcoder  *transcode.Transcoder // TypeTranscode の場合に必要
}

// Creator はソース作成関数の型
type Creator func(config Config) (Source, error)

// Factory はソース作成ファクトリー
type Factory struct {
	creators map[Type]Creator
}

// NewFactory は標準のソース種別を登録したファクトリーを作成する
func NewFactory() *Factory {
	f := &Factory{
		creators: make(map[Type]Creator),
	}

	f.Register(TypeFile, NewFileSourceFromConfig)
	f.Register(TypeTranscode, NewTranscodeSourceFromConfig)

	return f
}

// Register はソース作成関数を登録する
func (f *Factory) Register(sourceType Type, creator Creator) {
	f.creators[sourceType] = creator
}

// Create はソースを作成する
func (f *Factory) Create(sourceType Type, config Config) (Source, error) {
	creator, exists := f.creators[sourceType]
	if !exists {
		return nil, fmt.Errorf("サポートされていないソースタイプ: %s", sourceType)
	}

	return creator(config)
}

// SupportedTypes はサポートされているソースタイプを名前順で返す
func (f *Factory) SupportedTypes() []Type {
	types := make([]Type, 0, len(f.creators))
	for sourceType := range f.creators {
		types = append(types, sourceType)
	}
	slices.Sort(types)
	return types
}

// NewFileSourceFromConfig は設定からBlobSourceを作成する
func NewFileSourceFromConfig(config Config) (Source, error) {
	if config.Bucket == nil {
		return nil, fmt.Errorf("ファイルソースの作成にはバケットが必要です")
	}
	if config.Key == "" {
		return nil, fmt.Errorf("ファイルソースの作成にはキーが必要です")
	}

	return NewBlobSource(config.Bucket, config.Key, config.ContentType), nil
}

// NewTranscodeSourceFromConfig は設定からTranscodeSourceを作成する
func NewTranscodeSourceFromConfig(config Config) (Source, error) {
	if config.Transcoder == nil {
		return nil, fmt.Errorf("トランスコードソースの作成にはTranscoderが必要です")
	}

	// 入力側のMIMEタイプは出力に影響しないため推定に任せる
	input, err := NewFileSourceFromConfig(Config{Bucket: config.Bucket, Key: config.Key})
	if err != nil {
		return nil, err
	}

	return NewTranscodeSource(input, config.Transcoder), nil
}
