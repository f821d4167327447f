// Package catalog は配信可能な動画の一覧を管理する
//
// # 責務
// - 設定で指定された動画（静的エントリ）の登録
// - バケット内の動画ファイルの自動検出と定期的な再スキャン
// - 名前からソース（source.Source）を組み立てる
//
// # 仕様
//   - 静的エントリは再スキャンで削除されない
//   - 同名の場合は静的エントリが検出結果より優先される
//   - Thread-safe な操作をサポート
package catalog
