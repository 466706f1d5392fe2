// Package realtime は認証済みライブ接続へのイベント配信を提供する。
package realtime

import (
	"log/slog"
	"sync"

	"github.com/hitoshi/chirp/internal/model"
)

// イベントバッファのサイズ。満杯の接続へのイベントは破棄される。
const connectionBufferSize = 16

// Event はライブ接続に配信される変更通知。
type Event struct {
	Command string `json:"command"`
	Data    any    `json:"data"`
}

// Broadcaster はイベントを全ライブ接続に配信するインターフェース。
type Broadcaster interface {
	Broadcast(event Event)
}

// Recorder はブロードキャストのメトリクスを記録するインターフェース。
type Recorder interface {
	RecordBroadcastSent(command string)
	RecordBroadcastDropped()
	SetLiveConnections(count int)
}

// noopRecorder はメトリクス未設定時のフォールバック。
type noopRecorder struct{}

func (noopRecorder) RecordBroadcastSent(command string) {}
func (noopRecorder) RecordBroadcastDropped()            {}
func (noopRecorder) SetLiveConnections(count int)       {}

// Connection は単一のライブ接続を表す。
// イベントはバッファ付きチャネル経由で受け取る。
type Connection struct {
	identity model.Identity
	events   chan Event
}

// Events はこの接続に配信されたイベントのチャネルを返す。
func (c *Connection) Events() <-chan Event {
	return c.events
}

// Identity はこの接続の認証済みユーザーを返す。
func (c *Connection) Identity() model.Identity {
	return c.identity
}

// Hub は全ライブ接続を管理し、イベントを配信する。
type Hub struct {
	recorder Recorder

	mu    sync.RWMutex
	conns map[*Connection]struct{}
}

// NewHub は新しいHubを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewHub(recorder Recorder) *Hub {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Hub{
		recorder: recorder,
		conns:    make(map[*Connection]struct{}),
	}
}

// Register は新しいライブ接続を登録する。
// 登録以降に発生したイベントのみが配信される。過去のイベントの再送は行わない。
func (h *Hub) Register(identity model.Identity) *Connection {
	conn := &Connection{
		identity: identity,
		events:   make(chan Event, connectionBufferSize),
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()

	h.recorder.SetLiveConnections(count)
	slog.Info("live connection registered",
		slog.Int64("user_id", identity.UserID),
		slog.Int("connections", count),
	)

	return conn
}

// Unregister は接続を登録解除し、イベントチャネルを閉じる。
// 二重呼び出しは無視される。
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if _, exists := h.conns[conn]; !exists {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn)
	count := len(h.conns)
	// closeはBroadcastの送信と書き込みロックで排他する
	close(conn.events)
	h.mu.Unlock()

	h.recorder.SetLiveConnections(count)
	slog.Info("live connection unregistered",
		slog.Int64("user_id", conn.identity.UserID),
		slog.Int("connections", count),
	)
}

// Broadcast はイベントを現在登録中の全接続に配信する。
// 配信は非ブロッキングで行い、バッファ満杯の接続へのイベントは破棄する。
// 呼び出し時点で登録されていた各接続に対して、イベントは最大1回だけ配信される。
//
// 読み取りロックを保持したまま送信する。送信は非ブロッキングなので
// ロック保持時間は接続数に比例した定数時間であり、Unregisterのcloseと
// ロックで排他することで切断中の接続への送信を防ぐ。
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.conns {
		select {
		case conn.events <- event:
			h.recorder.RecordBroadcastSent(event.Command)
		default:
			h.recorder.RecordBroadcastDropped()
			slog.Warn("broadcast dropped for slow connection",
				slog.Int64("user_id", conn.identity.UserID),
				slog.String("command", event.Command),
			)
		}
	}
}

// ConnectionCount は現在登録中の接続数を返す。
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// compile-time interface check
var _ Broadcaster = (*Hub)(nil)
