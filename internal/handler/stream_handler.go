package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/chirp/internal/middleware"
	"github.com/hitoshi/chirp/internal/model"
	"github.com/hitoshi/chirp/internal/realtime"
)

// streamEventName はSSEのイベント名。全コマンドで共通。
const streamEventName = "tweets"

// heartbeatInterval は接続維持用コメント行の送信間隔。
// プロキシのアイドルタイムアウトによる切断を防ぐ。
const heartbeatInterval = 30 * time.Second

// StreamHandler はServer-Sent Eventsによるライブ配信エンドポイント。
// 認可ゲートの内側にマウントされ、接続確立時点で認証済みであること。
type StreamHandler struct {
	hub *realtime.Hub
}

// NewStreamHandler はStreamHandlerを生成する。
func NewStreamHandler(hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Stream はライブ接続を確立し、切断までイベントを配信し続ける。
// 接続確立以降の変更のみが流れる。過去イベントの再送は行わない。
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("streaming unsupported by response writer")
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	conn := h.hub.Register(identity)
	defer h.hub.Unregister(conn)

	// 接続確立を即時に通知する
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-conn.Events():
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Warn("failed to write event, closing connection",
					slog.Int64("user_id", identity.UserID),
					slog.String("error", err.Error()),
				)
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent はイベントをSSEワイヤーフォーマットで書き込む。
func writeSSEEvent(w http.ResponseWriter, event realtime.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", streamEventName, payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
