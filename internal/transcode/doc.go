// Package transcode はffmpegによる入力の逐次変換を担う
//
// # 責務
// - エンコード設定（Profile）からffmpeg引数を組み立てる
// - ffmpegプロセスの起動・出力の読み出し・停止
//
// # 仕様
//   - 入力は pipe:0 から読み、出力は pipe:1 へ書き出す
//   - 出力は長さ不明の連続ストリームで、バイト単位のシークはできない
//   - 出力が IdleTimeout 以上途絶えるとプロセスを停止する
//   - Process.Close はどの状態から呼んでもプロセスを確実に回収する
//
// # 前提要件
//   - ffmpeg: Ubuntu/Debian: sudo apt install ffmpeg
//     Red Hat/Fedora: sudo dnf install ffmpeg
package transcode
