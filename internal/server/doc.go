// Package server は、HTTPサーバーと動画配信エンドポイントを管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// Rangeリクエストに対応した動画の配信、プレイヤーページの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - OpenAPI定義に基づくリクエストの検証とハンドラーの登録
//   - /videos/{name} でのRangeヘッダーの解釈とバイト配信
//   - 動画一覧・システム状態のJSON API
//   - 埋め込みの静的ファイル（プレイヤーページ）の配信
//
// 仕様:
//   - Ginを使用
//   - ステータスとヘッダーはソースを開けた後にだけ送信する
//   - チャンクごとに書き込みとフラッシュを行い、クライアントの速度に合わせる
//   - クライアントの切断で配信を止め、ソースを解放する
package server
