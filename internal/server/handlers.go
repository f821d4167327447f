package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"nagare/internal/catalog"
	"nagare/internal/config"
	"nagare/internal/generated"
	"nagare/internal/source"
	"nagare/internal/stream"
)

// NagareHandler は生成されたServerInterfaceを実装する
type NagareHandler struct {
	config   *config.Config
	catalog  *catalog.Catalog
	streamer *stream.Streamer
	active   atomic.Int64
}

// NewNagareHandler は新しいNagareHandlerを作成する
func NewNagareHandler(cfg *config.Config, cat *catalog.Catalog) *NagareHandler {
	return &NagareHandler{
		config:   cfg,
		catalog:  cat,
		streamer: stream.NewStreamer(cfg.Stream.ChunkSize, cfg.Stream.MaxBytesPerSecond),
	}
}

// ActiveStreams は配信中のストリーム数を返す
func (h *NagareHandler) ActiveStreams() int64 {
	return h.active.Load()
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *NagareHandler) HealthCheck(c *gin.Context) {
	response := generated.HealthResponse{
		Status:    generated.Healthy,
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *NagareHandler) GetStatus(c *gin.Context) {
	response := generated.StatusResponse{
		Status: generated.Running,
		Server: generated.ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		Videos:        h.catalog.Len(),
		ActiveStreams: h.active.Load(),
		Timestamp:     time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// ListVideos は動画一覧取得エンドポイントの実装
func (h *NagareHandler) ListVideos(c *gin.Context) {
	resources := h.catalog.List()
	videos := make([]generated.VideoInfo, 0, len(resources))

	for _, res := range resources {
		info := generated.VideoInfo{
			Name:       res.Name,
			Url:        "/videos/" + res.Name,
			Transcoded: res.Type == source.TypeTranscode,
			Discovered: res.Discovered,
		}

		// メタデータが取れない動画も一覧には含める
		if meta, err := h.stat(c.Request.Context(), res); err == nil {
			info.ContentType = &meta.ContentType
			info.Seekable = &meta.Seekable
			if meta.Size >= 0 {
				info.Size = &meta.Size
			}
		} else {
			requestLog(c).Warnf("動画 %s のメタデータ取得に失敗: %v", res.Name, err)
		}

		videos = append(videos, info)
	}

	c.JSON(http.StatusOK, generated.VideosResponse{Videos: videos})
}

// GetVideo は動画配信エンドポイントの実装
func (h *NagareHandler) GetVideo(c *gin.Context, name generated.VideoName, params generated.GetVideoParams) {
	h.serveVideo(c, name, params.T, false)
}

// HeadVideo は動画のヘッダー取得エンドポイントの実装
func (h *NagareHandler) HeadVideo(c *gin.Context, name generated.VideoName, params generated.HeadVideoParams) {
	h.serveVideo(c, name, params.T, true)
}

// serveVideo はRangeヘッダーを解釈して動画を配信する
//
// ステータスとヘッダーはソースを開けた後にだけ送信する。
// それ以降のエラーは応答を変更できないため、ログに残して接続を終える。
func (h *NagareHandler) serveVideo(c *gin.Context, name string, seek *float64, headOnly bool) {
	ctx := c.Request.Context()
	logger := requestLog(c).WithField("video", name)

	res, found := h.catalog.Lookup(name)
	if !found {
		writeError(c, http.StatusNotFound, "video_not_found", "指定された動画が見つかりません")
		return
	}

	src, err := h.catalog.Source(res)
	if err != nil {
		logger.Errorf("ソースの作成に失敗: %v", err)
		writeError(c, http.StatusInternalServerError, "source_unavailable", "動画を開けません")
		return
	}
	if seek != nil {
		if ts, ok := src.(*source.TranscodeSource); ok {
			src = ts.WithSeek(*seek)
		}
	}

	info, err := h.statSource(ctx, src)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			logger.Warnf("動画ファイルが見つかりません: %v", err)
			writeError(c, http.StatusNotFound, "video_not_found", "動画ファイルが見つかりません")
			return
		}
		logger.Errorf("メタデータの取得に失敗: %v", err)
		writeError(c, http.StatusInternalServerError, "source_unavailable", "動画を開けません")
		return
	}

	plan, err := h.plan(c.GetHeader(stream.HeaderRange), info)
	if err != nil {
		var rangeErr *stream.RangeError
		if errors.As(err, &rangeErr) {
			logger.Debugf("Rangeを満たせません: %v", err)
			if cr := rangeErr.ContentRange(); cr != "" {
				c.Header(stream.HeaderContentRange, cr)
			}
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			c.Writer.WriteHeaderNow()
			return
		}
		logger.Errorf("配信計画の作成に失敗: %v", err)
		writeError(c, http.StatusInternalServerError, "internal_error", "配信計画を作成できません")
		return
	}

	if headOnly {
		plan.ApplyHeader(c.Writer.Header())
		c.Status(plan.Status)
		c.Writer.WriteHeaderNow()
		return
	}

	st, err := h.streamer.Open(ctx, src, plan)
	if err != nil {
		logger.Errorf("ソースを開けません: %v", err)
		writeError(c, http.StatusInternalServerError, "source_unavailable", "動画を開けません")
		return
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warnf("ソースのクローズに失敗: %v", err)
		}
	}()

	plan.ApplyHeader(c.Writer.Header())
	c.Status(plan.Status)
	c.Writer.WriteHeaderNow()

	h.active.Add(1)
	defer h.active.Add(-1)

	written, err := st.Copy(ctx, c.Writer)
	switch {
	case err != nil && ctx.Err() != nil:
		logger.Debugf("クライアントが切断しました (%d bytes)", written)
	case err != nil:
		logger.Errorf("配信中にエラーが発生しました (%d bytes): %v", written, err)
	case st.Truncated():
		logger.Warnf("ソースが計画より短いため配信を打ち切りました (%d/%d bytes)", written, plan.ContentLength)
	}
}

// plan はソースの性質に応じて配信計画を決める
func (h *NagareHandler) plan(rangeHeader string, info source.Info) (stream.Plan, error) {
	if info.Seekable {
		return stream.Negotiate(rangeHeader, info.Size, info.ContentType)
	}

	// シーク不可能なソースは先頭から全体を流す
	if rangeHeader != "" && h.config.Transcode.RangePolicy == config.RangePolicyReject {
		return stream.Plan{}, &stream.RangeError{
			Header: rangeHeader,
			Size:   -1,
			Reason: "シーク不可能なソースです",
		}
	}
	return stream.Sequential(info.ContentType), nil
}

func (h *NagareHandler) stat(ctx context.Context, res catalog.Resource) (source.Info, error) {
	src, err := h.catalog.Source(res)
	if err != nil {
		return source.Info{}, err
	}
	return h.statSource(ctx, src)
}

// statSource はタイムアウト付きでメタデータを取得する
func (h *NagareHandler) statSource(ctx context.Context, src source.Source) (source.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Stream.StatTimeout)
	defer cancel()
	return src.Stat(ctx)
}

// writeError はJSONのエラー応答を書き込む
func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, generated.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}
