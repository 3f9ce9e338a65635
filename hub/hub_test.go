package hub_test

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailored-agentic-units/storageproxy/hub"
	"github.com/tailored-agentic-units/storageproxy/messaging"
)

// Helper function to create a test hub
func createTestHub(t *testing.T) hub.Hub {
	ctx := context.Background()
	cfg := hub.DefaultConfig()
	cfg.Name = "test-hub"
	return hub.New(ctx, cfg)
}

func echoHandler(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
	return messaging.NewResponse(msg, msg.Payload).Build(), nil
}

func TestHub_Register(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	if err := h.Register("ledger.storage", echoHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	metrics := h.Metrics()
	if metrics.Responders != 1 {
		t.Errorf("Responders = %d, want 1", metrics.Responders)
	}
	if topics := h.Topics(); !slices.Equal(topics, []string{"ledger.storage"}) {
		t.Errorf("Topics() = %v, want [ledger.storage]", topics)
	}
}

func TestHub_Register_Duplicate(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	if err := h.Register("t", echoHandler); err != nil {
		t.Fatalf("First Register() error = %v", err)
	}

	err := h.Register("t", echoHandler)
	if !errors.Is(err, hub.ErrTopicExists) {
		t.Errorf("Register() error = %v, want ErrTopicExists", err)
	}
}

func TestHub_Register_NilHandler(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	if err := h.Register("t", nil); err == nil {
		t.Error("Register() should fail for nil handler")
	}
}

func TestHub_Unregister(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	h.Register("t", echoHandler)

	if err := h.Unregister("t"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if metrics := h.Metrics(); metrics.Responders != 0 {
		t.Errorf("Responders after unregister = %d, want 0", metrics.Responders)
	}

	_, err := h.Request(context.Background(), messaging.NewRequest("t", nil).Build())
	if !errors.Is(err, hub.ErrTopicNotFound) {
		t.Errorf("Request() after unregister error = %v, want ErrTopicNotFound", err)
	}
}

func TestHub_Unregister_NotFound(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	if err := h.Unregister("nonexistent"); !errors.Is(err, hub.ErrTopicNotFound) {
		t.Errorf("Unregister() error = %v, want ErrTopicNotFound", err)
	}
}

func TestHub_Request(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	h.Register("ledger.storage", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		return messaging.NewResponse(msg, []byte(`{"code":0}`)).Build(), nil
	})

	req := messaging.NewRequest("ledger.storage", []byte(`{"op":"select"}`)).Build()
	response, err := h.Request(context.Background(), req)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	if string(response.Payload) != `{"code":0}` {
		t.Errorf("Payload = %s, want {\"code\":0}", response.Payload)
	}
	if response.ReplyTo != req.ID {
		t.Errorf("ReplyTo = %s, want %s", response.ReplyTo, req.ID)
	}
}

func TestHub_Request_Concurrent(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	h.Register("t", echoHandler)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			payload := []byte{byte('a' + i)}
			resp, err := h.Request(context.Background(), messaging.NewRequest("t", payload).Build())
			if err == nil && resp.Payload[0] != payload[0] {
				err = errors.New("reply delivered to the wrong request")
			}
			errs <- err
		}(i)
	}

	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Request() error = %v", err)
		}
	}
}

func TestHub_Request_Timeout(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	block := make(chan struct{})
	defer close(block)

	h.Register("t", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		<-block
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := h.Request(ctx, messaging.NewRequest("t", nil).Build())
	if err == nil {
		t.Error("Request() should timeout when no response received")
	}
}

func TestHub_Request_DefaultTimeout(t *testing.T) {
	cfg := hub.DefaultConfig()
	cfg.DefaultTimeout = 50 * time.Millisecond
	h := hub.New(context.Background(), cfg)
	defer h.Shutdown(5 * time.Second)

	block := make(chan struct{})
	defer close(block)

	h.Register("t", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		<-block
		return nil, nil
	})

	_, err := h.Request(context.Background(), messaging.NewRequest("t", nil).Build())
	if !errors.Is(err, hub.ErrTimeout) {
		t.Errorf("Request() error = %v, want ErrTimeout", err)
	}
}

func TestHub_Request_TopicNotFound(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	_, err := h.Request(context.Background(), messaging.NewRequest("nonexistent", nil).Build())
	if !errors.Is(err, hub.ErrTopicNotFound) {
		t.Errorf("Request() error = %v, want ErrTopicNotFound", err)
	}
}

func TestHub_HandlerError(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	h.Register("t", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		return nil, errors.New("executor offline")
	})

	_, err := h.Request(context.Background(), messaging.NewRequest("t", nil).Build())
	if !errors.Is(err, hub.ErrHandlerFailed) {
		t.Fatalf("Request() error = %v, want ErrHandlerFailed", err)
	}

	if metrics := h.Metrics(); metrics.HandlerErrors != 1 {
		t.Errorf("HandlerErrors = %d, want 1", metrics.HandlerErrors)
	}
}

func TestHub_MismatchedReply(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	h.Register("t", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		other := messaging.NewRequest("t", nil).Build()
		return messaging.NewResponse(other, []byte("{}")).Build(), nil
	})

	_, err := h.Request(context.Background(), messaging.NewRequest("t", nil).Build())
	if !errors.Is(err, hub.ErrMismatchedReply) {
		t.Errorf("Request() error = %v, want ErrMismatchedReply", err)
	}
}

func TestHub_NilReply(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	h.Register("t", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		return nil, nil
	})

	_, err := h.Request(context.Background(), messaging.NewRequest("t", nil).Build())
	if !errors.Is(err, hub.ErrHandlerFailed) {
		t.Errorf("Request() error = %v, want ErrHandlerFailed", err)
	}
}

func TestHub_Publish(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	received := make(chan string, 1)
	h.Register("ledger.events", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		received <- string(msg.Payload)
		return nil, nil
	})

	err := h.Publish(context.Background(), messaging.NewNotification("ledger.events", []byte(`"committed"`)).Build())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `"committed"` {
			t.Errorf("received = %s, want \"committed\"", got)
		}
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestHub_Publish_NoResponder(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	if err := h.Publish(context.Background(), messaging.NewNotification("nobody", nil).Build()); err != nil {
		t.Errorf("Publish() error = %v, want nil", err)
	}
}

func TestHub_Metrics(t *testing.T) {
	h := createTestHub(t)
	defer h.Shutdown(5 * time.Second)

	metrics := h.Metrics()
	if metrics.Responders != 0 || metrics.MessagesSent != 0 || metrics.MessagesRecv != 0 {
		t.Errorf("Initial metrics = %+v, want zero", metrics)
	}

	h.Register("a", echoHandler)
	h.Register("b", echoHandler)

	if _, err := h.Request(context.Background(), messaging.NewRequest("a", nil).Build()); err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	metrics = h.Metrics()
	if metrics.Responders != 2 {
		t.Errorf("Responders = %d, want 2", metrics.Responders)
	}
	if metrics.MessagesSent != 1 {
		t.Errorf("MessagesSent = %d, want 1", metrics.MessagesSent)
	}
	if metrics.MessagesRecv != 1 {
		t.Errorf("MessagesRecv = %d, want 1", metrics.MessagesRecv)
	}
}

func TestHub_Shutdown(t *testing.T) {
	h := createTestHub(t)
	h.Register("t", echoHandler)

	if err := h.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	_, err := h.Request(context.Background(), messaging.NewRequest("t", nil).Build())
	if !errors.Is(err, hub.ErrHubClosed) {
		t.Errorf("Request() after shutdown error = %v, want ErrHubClosed", err)
	}
	if err := h.Register("u", echoHandler); !errors.Is(err, hub.ErrHubClosed) {
		t.Errorf("Register() after shutdown error = %v, want ErrHubClosed", err)
	}
}

func TestHub_Shutdown_DrainsHandlers(t *testing.T) {
	h := createTestHub(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	h.Register("ledger.events", func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		close(started)
		<-release
		finished.Store(true)
		return nil, nil
	})

	if err := h.Publish(context.Background(), messaging.NewNotification("ledger.events", nil).Build()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("handler did not start")
	}

	if err := h.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("Shutdown() = nil while a handler is running, want timeout")
	}

	close(release)
	if err := h.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !finished.Load() {
		t.Error("Shutdown() returned before the handler finished")
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := hub.DefaultConfig()
	cfg.Merge(&hub.Config{DefaultTimeout: time.Second})

	if cfg.DefaultTimeout != time.Second {
		t.Errorf("DefaultTimeout = %v, want 1s", cfg.DefaultTimeout)
	}
	if cfg.ChannelBufferSize != 100 {
		t.Errorf("ChannelBufferSize = %d, want 100", cfg.ChannelBufferSize)
	}
	if cfg.Name != "default" {
		t.Errorf("Name = %s, want default", cfg.Name)
	}
}
