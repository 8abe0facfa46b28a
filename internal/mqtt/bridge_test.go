package mqtt

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/handroid/handroid/internal/config"
)

type recordingChatter struct {
	got chan string
}

func (c *recordingChatter) Chat(_ context.Context, msg string) string {
	c.got <- msg
	return "done"
}

func testBridge(chatter Chatter) *Bridge {
	cfg := config.MQTTConfig{
		BrokerURL:   "mqtt://broker.local:1883",
		ClientID:    "handroid-test",
		TopicPrefix: "handroid",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, chatter, logger)
}

func TestTopics(t *testing.T) {
	b := testBridge(nil)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"instruction", b.instructionTopic(), "handroid/instruction"},
		{"reply", b.replyTopic(), "handroid/reply"},
		{"availability", b.availabilityTopic(), "handroid/availability"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s topic = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestOnMessageRoutesInstruction(t *testing.T) {
	chatter := &recordingChatter{got: make(chan string, 1)}
	b := testBridge(chatter)

	b.onMessage(context.Background(), "handroid/instruction", []byte("  open the camera \n"))

	select {
	case msg := <-chatter.got:
		if msg != "open the camera" {
			t.Errorf("instruction = %q, want trimmed payload", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("instruction never reached the chatter")
	}
}

func TestOnMessageIgnoresOtherTopics(t *testing.T) {
	chatter := &recordingChatter{got: make(chan string, 1)}
	b := testBridge(chatter)

	b.onMessage(context.Background(), "handroid/reply", []byte("echo"))
	b.onMessage(context.Background(), "other/instruction", []byte("echo"))

	select {
	case msg := <-chatter.got:
		t.Errorf("unexpected chat dispatch: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOnMessageIgnoresEmptyInstruction(t *testing.T) {
	chatter := &recordingChatter{got: make(chan string, 1)}
	b := testBridge(chatter)

	b.onMessage(context.Background(), "handroid/instruction", []byte("   \n"))

	select {
	case msg := <-chatter.got:
		t.Errorf("unexpected chat dispatch: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopWithoutStart(t *testing.T) {
	b := testBridge(nil)
	if err := b.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start = %v, want nil", err)
	}
}

func TestStartRejectsBadBrokerURL(t *testing.T) {
	b := testBridge(nil)
	b.cfg.BrokerURL = "://not-a-url"

	if err := b.Start(context.Background()); err == nil {
		t.Error("Start with malformed broker URL should fail")
	}
}
