// Package source は配信対象のバイト列（動画ファイル）を抽象化する
//
// Source は Stat でメタデータを、OpenAt で任意位置からのリーダーを返す。
// BlobSource は gocloud.dev/blob のバケット（file://, mem://, s3://, gs://）
// 上のオブジェクトを、TranscodeSource はffmpegの変換出力を提供する。
package source
