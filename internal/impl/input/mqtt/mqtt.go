// Package mqtt implements the "mqtt" input type tag: a subscriber built
// on github.com/eclipse/paho.mqtt.golang, mapping broker disconnects
// onto errs.Disconnection. PUBACK (QoS 1/2) is deferred to the Ack
// returned from Read, matching the runtime's at-least-once contract.
package mqtt

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "mqtt" input's configuration fragment.
type Config struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

type inbound struct {
	batch message.Batch
	ack   message.Ack
}

// Input subscribes to Topic and surfaces each received message as one
// payload per batch, acked via the broker's own QoS PUBACK on Ack().
type Input struct {
	cfg Config

	client   mqtt.Client
	messages chan inbound
	lost     chan error
}

// New constructs an mqtt Input from cfg.
func New(cfg Config) (*Input, error) {
	if cfg.Broker == "" {
		return nil, errs.Config("mqtt input: broker is required")
	}
	if cfg.Topic == "" {
		return nil, errs.Config("mqtt input: topic is required")
	}
	return &Input{cfg: cfg, messages: make(chan inbound, 256), lost: make(chan error, 1)}, nil
}

// Connect dials the broker and subscribes to the configured topic.
func (in *Input) Connect(ctx context.Context) error {
	clientID := in.cfg.ClientID
	if clientID == "" {
		// A reconnect must not collide with the previous session under the
		// same client ID, so a fresh one is minted whenever none is pinned.
		clientID = "arkflow-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(in.cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(false).  // reconnect is owned by the runtime's reconnect loop
		SetAutoAckDisabled(true). // PUBACK is sent only when the batch's Ack fires
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			select {
			case in.lost <- err:
			default:
			}
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return errs.Disconnection(errTimeoutConnecting)
	}
	if err := token.Error(); err != nil {
		return errs.Connection(err, "mqtt input: connect to %s", in.cfg.Broker)
	}

	subToken := client.Subscribe(in.cfg.Topic, in.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
		select {
		case in.messages <- inbound{
			batch: message.NewBinary([][]byte{m.Payload()}),
			ack:   message.AckFunc(m.Ack),
		}:
		default:
			// Slow consumer: drop rather than block the client's internal
			// delivery goroutine indefinitely.
		}
	})
	if !subToken.WaitTimeout(10 * time.Second) {
		client.Disconnect(250)
		return errs.Disconnection(errTimeoutConnecting)
	}
	if err := subToken.Error(); err != nil {
		client.Disconnect(250)
		return errs.Connection(err, "mqtt input: subscribe to %s", in.cfg.Topic)
	}

	in.client = client
	return nil
}

// Read returns the next received message, or an errs.Disconnection if
// the broker connection was lost.
func (in *Input) Read(ctx context.Context) (message.Batch, message.Ack, error) {
	select {
	case m := <-in.messages:
		return m.batch, m.ack, nil
	case err := <-in.lost:
		return message.Batch{}, nil, errs.Disconnection(err)
	case <-ctx.Done():
		return message.Batch{}, nil, ctx.Err()
	}
}

// Close disconnects from the broker.
func (in *Input) Close(context.Context) error {
	if in.client != nil && in.client.IsConnected() {
		in.client.Disconnect(250)
	}
	return nil
}

type timeoutErr string

func (e timeoutErr) Error() string { return string(e) }

const errTimeoutConnecting = timeoutErr("mqtt: timed out waiting for broker")

func init() {
	registry.Inputs.MustRegister("mqtt", func(raw component.Decoder) (component.Input, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("mqtt input: %v", err)
		}
		return New(cfg)
	})
}
