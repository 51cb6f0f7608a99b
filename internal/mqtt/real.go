package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/security-sensor/internal/metrics"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topics   Topics
}

// RealPublisher publishes to an actual MQTT broker and listens for
// acknowledgments on the ack topic.
type RealPublisher struct {
	client paho.Client
	opts   Options
	logger *zap.Logger
	onAck  AckHandler
}

// NewRealPublisher creates a publisher for the given broker. It does not
// connect; call Connect once the acknowledgment handler exists.
func NewRealPublisher(opts Options, logger *zap.Logger) (*RealPublisher, error) {
	p := &RealPublisher{opts: opts, logger: logger}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(opts.Topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			metrics.MQTTConnected.Set(0)
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(clientOpts)
	return p, nil
}

// Connect dials the broker. onAck, if non-nil, is called from the paho
// callback goroutine for each message on the ack topic. The subscription is
// renewed on every reconnect.
func (p *RealPublisher) Connect(onAck AckHandler) error {
	p.onAck = onAck
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.client.Disconnect(0)
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	metrics.MQTTConnected.Set(1)
	p.logger.Info("mqtt connected", zap.String("broker", p.opts.Broker))
	if p.onAck == nil {
		return
	}

	topic := p.opts.Topics.Ack
	token := c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		p.onAck(ParseAck(m.Payload()))
	})
	// Waiting inside the handler would stall paho's connection setup.
	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() == nil {
			p.logger.Info("subscribed", zap.String("topic", topic))
			return
		}
		p.logger.Error("subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
	}()
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishAlert sends an alert with QoS 1 (at-least-once), not retained.
func (p *RealPublisher) PublishAlert(alert Alert) error {
	payload, err := FormatAlertPayload(alert)
	if err != nil {
		return fmt.Errorf("format alert payload: %w", err)
	}
	return p.publish(p.opts.Topics.Alert, 1, false, payload)
}

// PublishFrame sends a bitmap with QoS 0. A lost frame is superseded by
// the next one.
func (p *RealPublisher) PublishFrame(frame []byte) error {
	return p.publish(p.opts.Topics.Stream, 0, false, frame)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.opts.Topics.System, 1, event.Retained, payload)
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	metrics.MQTTConnected.Set(0)
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
