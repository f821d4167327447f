// Package stream はRangeヘッダーの交渉とチャンク単位のバイト配信を担う
//
// # 責務
// - Rangeヘッダー（bytes=<start>-<end>）の解析と検証
// - リソース長に対する配信計画（Plan）の決定（200 / 206 / 416）
// - 計画に従ったバイト窓のチャンク配信
//
// # 仕様
//   - Negotiate は副作用のない純粋関数
//   - 構文エラーと範囲外は同じ ErrRangeNotSatisfiable になる
//   - Stream はチャンクを1つずつ読み出し、前のチャンクの書き込みが
//     完了するまで次を読まない（バックプレッシャー）
//   - メモリ使用量はチャンクサイズに比例し、配信長には依存しない
//   - ソースはどの終了経路でも必ずクローズされる
package stream
