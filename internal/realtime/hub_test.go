package realtime

import (
	"sync"
	"testing"

	"github.com/hitoshi/chirp/internal/model"
)

func identity(id int64) model.Identity {
	return model.Identity{UserID: id, Username: "user"}
}

func TestHub_Broadcast_DeliversToAllRegistered(t *testing.T) {
	hub := NewHub(nil)

	connA := hub.Register(identity(1))
	connB := hub.Register(identity(2))
	defer hub.Unregister(connA)
	defer hub.Unregister(connB)

	hub.Broadcast(Event{Command: "create", Data: "payload"})

	for name, conn := range map[string]*Connection{"A": connA, "B": connB} {
		select {
		case ev := <-conn.Events():
			if ev.Command != "create" {
				t.Errorf("conn %s: command = %q, want %q", name, ev.Command, "create")
			}
		default:
			t.Errorf("conn %s: expected event, got none", name)
		}
	}
}

func TestHub_Broadcast_ExactlyOncePerConnection(t *testing.T) {
	hub := NewHub(nil)

	conn := hub.Register(identity(1))
	defer hub.Unregister(conn)

	hub.Broadcast(Event{Command: "update"})

	select {
	case <-conn.Events():
	default:
		t.Fatal("expected one event")
	}

	select {
	case ev := <-conn.Events():
		t.Fatalf("expected no second event, got %+v", ev)
	default:
	}
}

func TestHub_LateConnection_NoReplay(t *testing.T) {
	hub := NewHub(nil)

	hub.Broadcast(Event{Command: "create"})

	conn := hub.Register(identity(1))
	defer hub.Unregister(conn)

	select {
	case ev := <-conn.Events():
		t.Fatalf("late connection should not receive past events, got %+v", ev)
	default:
	}
}

func TestHub_Unregister_StopsDelivery(t *testing.T) {
	hub := NewHub(nil)

	conn := hub.Register(identity(1))
	hub.Unregister(conn)

	hub.Broadcast(Event{Command: "delete"})

	// チャネルはクローズ済みで、イベントは配信されない
	if ev, ok := <-conn.Events(); ok {
		t.Fatalf("expected closed channel, got %+v", ev)
	}

	if count := hub.ConnectionCount(); count != 0 {
		t.Errorf("ConnectionCount() = %d, want 0", count)
	}
}

func TestHub_Unregister_Idempotent(t *testing.T) {
	hub := NewHub(nil)

	conn := hub.Register(identity(1))
	hub.Unregister(conn)
	hub.Unregister(conn) // 二重呼び出しでパニックしない
}

func TestHub_ConcurrentBroadcastAndUnregister(t *testing.T) {
	// 変更の配信中にクライアントが切断しても、クローズ済みチャネルへの
	// 送信でパニックしないこと。-race付きで検出する。
	hub := NewHub(nil)

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		conn := hub.Register(identity(int64(i)))

		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Broadcast(Event{Command: "create"})
		}()
		go func(c *Connection) {
			defer wg.Done()
			hub.Unregister(c)
		}(conn)
	}
	wg.Wait()

	if count := hub.ConnectionCount(); count != 0 {
		t.Errorf("ConnectionCount() = %d, want 0", count)
	}
}

func TestHub_SlowConsumer_DropsWithoutBlocking(t *testing.T) {
	hub := NewHub(nil)

	slow := hub.Register(identity(1))
	defer hub.Unregister(slow)

	// バッファを溢れさせる。Broadcastはブロックせずに戻る必要がある。
	for i := 0; i < connectionBufferSize+5; i++ {
		hub.Broadcast(Event{Command: "create"})
	}

	received := 0
	for {
		select {
		case <-slow.Events():
			received++
			continue
		default:
		}
		break
	}

	if received != connectionBufferSize {
		t.Errorf("received = %d, want %d (buffered events only)", received, connectionBufferSize)
	}
}
