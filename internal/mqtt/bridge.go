package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/handroid/handroid/internal/config"
)

// Chatter runs one instruction through the agent loop. The concrete
// implementation is wired in main.go to avoid coupling this package
// to the agent internals.
type Chatter interface {
	Chat(ctx context.Context, userMessage string) string
}

// Bridge manages the MQTT connection and routes instruction payloads
// through the agent loop.
type Bridge struct {
	cfg     config.MQTTConfig
	chatter Chatter
	logger  *slog.Logger
	cm      *autopaho.ConnectionManager
}

// New creates a Bridge but does not connect. Call [Bridge.Start] to
// begin the connection and message routing.
func New(cfg config.MQTTConfig, chatter Chatter, logger *slog.Logger) *Bridge {
	return &Bridge{
		cfg:     cfg,
		chatter: chatter,
		logger:  logger,
	}
}

// Start connects to the MQTT broker and routes instructions until ctx
// is cancelled. On every (re-)connect it re-subscribes to the
// instruction topic and publishes a birth message.
func (b *Bridge) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(b.cfg.BrokerURL)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	availTopic := b.availabilityTopic()

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: b.cfg.Username,
		ConnectPassword: []byte(b.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   availTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			b.logger.Info("mqtt connected to broker", "broker", b.cfg.BrokerURL)
			b.subscribe(ctx, cm)
			b.publishAvailability(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			b.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: b.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					b.onMessage(ctx, pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				},
			},
		},
	}

	// Enable TLS for mqtts:// or ssl:// schemes.
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	b.cm = cm

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// Log but don't fail — autopaho keeps retrying in the background.
		b.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	<-ctx.Done()
	return nil
}

// Stop gracefully disconnects by publishing an "offline" availability
// message before closing the MQTT connection.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.cm == nil {
		return nil
	}
	b.publishAvailability(ctx, b.cm, "offline")
	return b.cm.Disconnect(ctx)
}

// AwaitConnection blocks until the broker connection is established or
// ctx expires.
func (b *Bridge) AwaitConnection(ctx context.Context) error {
	if b.cm == nil {
		return fmt.Errorf("mqtt bridge not started")
	}
	return b.cm.AwaitConnection(ctx)
}

// --- Topic helpers ---

func (b *Bridge) instructionTopic() string {
	return b.cfg.TopicPrefix + "/instruction"
}

func (b *Bridge) replyTopic() string {
	return b.cfg.TopicPrefix + "/reply"
}

func (b *Bridge) availabilityTopic() string {
	return b.cfg.TopicPrefix + "/availability"
}

// --- Connection callbacks ---

func (b *Bridge) subscribe(ctx context.Context, cm *autopaho.ConnectionManager) {
	topic := b.instructionTopic()
	if _, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: 1},
		},
	}); err != nil {
		b.logger.Warn("mqtt subscribe failed", "topic", topic, "error", err)
		return
	}
	b.logger.Debug("mqtt subscribed", "topic", topic)
}

func (b *Bridge) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   b.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		b.logger.Warn("mqtt availability publish failed", "status", status, "error", err)
	} else {
		b.logger.Info("mqtt availability published", "status", status)
	}
}

// --- Instruction routing ---

// onMessage dispatches an inbound publish. Instructions run in their
// own goroutine: a tool loop can take minutes and the paho receive
// callback must not block the connection.
func (b *Bridge) onMessage(ctx context.Context, topic string, payload []byte) {
	if topic != b.instructionTopic() {
		b.logger.Debug("mqtt message on unexpected topic", "topic", topic)
		return
	}

	instruction := strings.TrimSpace(string(payload))
	if instruction == "" {
		b.logger.Debug("mqtt empty instruction ignored")
		return
	}

	go func() {
		reply := b.chatter.Chat(ctx, instruction)
		b.publishReply(ctx, reply)
	}()
}

func (b *Bridge) publishReply(ctx context.Context, reply string) {
	if b.cm == nil {
		return
	}
	if _, err := b.cm.Publish(ctx, &paho.Publish{
		Topic:   b.replyTopic(),
		Payload: []byte(reply),
		QoS:     1,
	}); err != nil {
		b.logger.Warn("mqtt reply publish failed", "error", err)
	} else {
		b.logger.Debug("mqtt reply published", "bytes", len(reply))
	}
}
