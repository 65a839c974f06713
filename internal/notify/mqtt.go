package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

const (
	qosAtLeastOnce  = 1
	defaultQueue    = 64
	publishTimeout  = 5 * time.Second
	disconnectQuiet = 250
)

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTTConfig struct {
	Broker   string
	Username string
	Password string
	SiteID   string
}

// Connect dials the broker and returns a connected client.
func Connect(cfg MQTTConfig, logger *slog.Logger) (mqtt.Client, error) {
	clientID := "facelocker-" + uuid.NewString()

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		logger.Info("connected to mqtt broker", slog.String("broker", cfg.Broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", slog.Any("error", err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// Publisher sends events from a buffered queue on a single goroutine. When the
// queue is full, or the publisher is closed, the event is dropped and logged.
type Publisher struct {
	client Client
	topic  string
	logger *slog.Logger
	queue  chan domain.RecognitionEvent
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex // guards closed and sends on queue
	closed bool
}

func NewPublisher(client Client, siteID string, logger *slog.Logger) *Publisher {
	p := &Publisher{
		client: client,
		topic:  Topic(siteID),
		logger: logger,
		queue:  make(chan domain.RecognitionEvent, defaultQueue),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Publisher) Notify(_ context.Context, event domain.RecognitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Warn("recognition event dropped, publisher closed",
			slog.String("request_id", event.RequestID),
			slog.String("user_id", event.OwnerID),
		)
		return
	}

	select {
	case p.queue <- event:
	default:
		p.logger.Warn("recognition event dropped, queue full",
			slog.String("request_id", event.RequestID),
			slog.String("user_id", event.OwnerID),
		)
	}
}

// Close drains the queue and disconnects from the broker.
func (p *Publisher) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		p.wg.Wait()
		p.client.Disconnect(disconnectQuiet)
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.queue {
		if err := p.publish(event); err != nil {
			p.logger.Warn("failed to publish recognition event",
				slog.String("topic", p.topic),
				slog.String("request_id", event.RequestID),
				slog.Any("error", err),
			)
		}
	}
}

func (p *Publisher) publish(event domain.RecognitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := p.client.Publish(p.topic, qosAtLeastOnce, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out after %s", p.topic, publishTimeout)
	}
	return token.Error()
}
