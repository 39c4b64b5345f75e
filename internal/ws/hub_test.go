package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/codecraftwt/loan-backend-sub000/internal/notify"
)

func TestHubSubscribeAndPublish(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe(UserChannel("user-1"), client)
	hub.Publish(UserChannel("user-1"), []byte(`{"event":"notification"}`))

	select {
	case msg := <-client.out:
		if string(msg) != `{"event":"notification"}` {
			t.Fatalf("unexpected payload: %s", string(msg))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
	}

	hub.UnsubscribeAll(client)
}

func TestHubDoesNotCrossUserChannels(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe(UserChannel("user-1"), client)
	hub.Publish(UserChannel("user-2"), []byte(`{"event":"notification"}`))

	select {
	case msg := <-client.out:
		t.Fatalf("received another user's message: %s", string(msg))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPublishDuringDisconnect(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)
	hub.Subscribe(UserChannel("user-1"), client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			hub.Publish(UserChannel("user-1"), []byte(`{"event":"notification"}`))
		}
	}()

	// Tear the client down while the publisher is still running.
	hub.UnsubscribeAll(client)
	client.shutdown()
	<-done

	// Late sends and repeated shutdowns against a closed client are no-ops.
	client.send([]byte(`{"event":"notification"}`))
	client.shutdown()
}

type stubFeed struct {
	items []notify.Notification
	calls []int64
}

func (f *stubFeed) ListSince(_ context.Context, lastID int64, _ int32) ([]notify.Notification, error) {
	f.calls = append(f.calls, lastID)
	out := []notify.Notification{}
	for _, item := range f.items {
		if item.ID > lastID {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestNotifierTickAdvancesCursor(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)
	hub.Subscribe(UserChannel("user-1"), client)

	loanID := "loan-7"
	feed := &stubFeed{items: []notify.Notification{
		{ID: 1, UserID: "user-1", Kind: "loan_created", Title: "New loan", Body: "a loan was registered", LoanID: &loanID, CreatedAt: time.Now()},
		{ID: 2, UserID: "user-2", Kind: "loan_created", Title: "New loan", Body: "a loan was registered", CreatedAt: time.Now()},
	}}
	n := NewNotifier(feed, hub, time.Second)

	if err := n.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	select {
	case msg := <-client.out:
		var envelope struct {
			Event string `json:"event"`
			Data  struct {
				ID   int64  `json:"id"`
				Kind string `json:"kind"`
			} `json:"data"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if envelope.Event != "notification" || envelope.Data.ID != 1 || envelope.Data.Kind != "loan_created" {
			t.Fatalf("unexpected envelope: %s", string(msg))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
	}

	// Second tick resumes past the delivered rows.
	if err := n.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(feed.calls) != 2 || feed.calls[1] != 2 {
		t.Fatalf("cursor should advance to the highest seen id, calls %v", feed.calls)
	}
	select {
	case msg := <-client.out:
		t.Fatalf("rows must not be redelivered: %s", string(msg))
	case <-time.After(50 * time.Millisecond):
	}
}
