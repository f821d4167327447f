package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"nagare/internal/generated"
)

// HeaderRequestID はリクエストIDのヘッダー名
const HeaderRequestID = "X-Request-Id"

const requestIDKey = "request_id"

// requestLogger はリクエストごとにIDを振り、完了時にログを出力する
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"range":      c.GetHeader("Range"),
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
		})

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("リクエスト完了")
		case status >= http.StatusBadRequest:
			entry.Warn("リクエスト完了")
		default:
			entry.Info("リクエスト完了")
		}
	}
}

// requestLog はリクエストIDを付けたログエントリを返す
func requestLog(c *gin.Context) *log.Entry {
	return log.WithField(requestIDKey, c.GetString(requestIDKey))
}

// openAPIValidator はOpenAPI定義に従ってリクエストを検証する
// 定義にないパス（プレイヤーページ等）は検証しない
func openAPIValidator(doc *openapi3.T) (gin.HandlerFunc, error) {
	// サーバー名の照合を行わない
	doc.Servers = nil

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("OpenAPIルーターの作成に失敗: %w", err)
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			// パスの名前が不正な動画は存在しない動画として扱う
			var reqErr *openapi3filter.RequestError
			if errors.As(err, &reqErr) && reqErr.Parameter != nil && reqErr.Parameter.In == openapi3.ParameterInPath {
				c.AbortWithStatusJSON(http.StatusNotFound, generated.ErrorResponse{
					Error:     "video_not_found",
					Message:   "指定された動画が見つかりません",
					Timestamp: time.Now(),
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, generated.ErrorResponse{
				Error:     "invalid_request",
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
			return
		}

		c.Next()
	}, nil
}

// handleParamError は生成コードのパラメータ変換エラーを処理する
func handleParamError(c *gin.Context, err error, statusCode int) {
	c.JSON(statusCode, generated.ErrorResponse{
		Error:     "invalid_parameter",
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}
