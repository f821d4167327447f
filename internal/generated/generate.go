// Package generated はOpenAPI定義から生成したサーバーインターフェースとモデルを提供する
package generated

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen --config=oapi-codegen.yaml openapi.yaml
