// internal/mqtt/bridge.go
package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	cfg "github.com/tamzrod/parmair-bridge/internal/config"
	"github.com/tamzrod/parmair-bridge/internal/poller"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

const (
	publishTimeout = 5 * time.Second
	writeTimeout   = 30 * time.Second
	stateCheck     = time.Second
	connectRetry   = 10 * time.Second
)

// Device is the coordinator surface the bridge uses.
type Device interface {
	Snapshot() *poller.Snapshot
	Subscribe() (<-chan *poller.Snapshot, func())
	State() status.ConnectionState
	Write(ctx context.Context, key string, value float64) error
}

var _ Device = (*poller.Coordinator)(nil)

// Bridge publishes snapshots and availability and routes command topics
// to the write path.
type Bridge struct {
	client paho.Client
	dev    Device
	prefix string
	qos    byte
}

func New(c cfg.MQTTConfig, dev Device) *Bridge {
	b := &Bridge{
		dev:    dev,
		prefix: c.TopicPrefix,
		qos:    byte(c.QoS),
	}

	b.client = paho.NewClient(b.clientOptions(c))
	return b
}

// clientOptions keeps retrying the first connect as well as reconnecting
// after a drop, so a broker that comes up late is picked up.
func (b *Bridge) clientOptions(c cfg.MQTTConfig) *paho.ClientOptions {
	clientID := c.ClientID
	if clientID == "" {
		clientID = cfg.DefaultMQTTClientPrefix + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(clientID).
		SetUsername(c.Username).
		SetPassword(c.Password).
		SetKeepAlive(30*time.Second).
		SetWill(AvailabilityTopic(b.prefix), Offline, b.qos, true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetry).
		SetAutoReconnect(true).
		SetResumeSubs(true).
		SetOrderMatters(false)

	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		klog.InfoS("MQTT connection lost", "err", err)
	})
	return opts
}

func (b *Bridge) onConnect(client paho.Client) {
	klog.InfoS("MQTT connected", "prefix", b.prefix)
	b.publish(AvailabilityTopic(b.prefix), Availability(b.dev.State()))
	if s := b.dev.Snapshot(); s.OK {
		b.publishState(s)
	}

	token := client.Subscribe(CommandFilter(b.prefix), b.qos, b.onCommand)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		klog.ErrorS(token.Error(), "MQTT subscribe failed", "filter", CommandFilter(b.prefix))
	}
}

func (b *Bridge) onCommand(_ paho.Client, msg paho.Message) {
	key, err := CommandKey(b.prefix, msg.Topic())
	if err != nil {
		return
	}
	if err := b.command(key, msg.Payload()); err != nil {
		klog.InfoS("MQTT command rejected", "key", key, "payload", string(msg.Payload()), "err", err)
	}
}

func (b *Bridge) command(key string, payload []byte) error {
	value, err := ParseValue(key, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return b.dev.Write(ctx, key, value)
}

// Run connects and publishes until ctx is done, then marks the device
// offline and disconnects. An unreachable broker is retried until ctx
// is done.
func (b *Bridge) Run(ctx context.Context) error {
	token := b.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return err
		}
	case <-ctx.Done():
		b.client.Disconnect(250)
		return nil
	}

	snaps, cancel := b.dev.Subscribe()
	defer cancel()

	ticker := time.NewTicker(stateCheck)
	defer ticker.Stop()

	last := Availability(b.dev.State())
	for {
		select {
		case <-ctx.Done():
			b.publish(AvailabilityTopic(b.prefix), Offline)
			b.client.Disconnect(250)
			return nil
		case s, ok := <-snaps:
			if !ok {
				return nil
			}
			b.publishState(s)
		case <-ticker.C:
		}

		// the onConnect handler publishes the initial availability
		if now := Availability(b.dev.State()); now != last {
			last = now
			b.publish(AvailabilityTopic(b.prefix), now)
		}
	}
}

func (b *Bridge) publishState(s *poller.Snapshot) {
	payload, err := StatePayload(s)
	if err != nil {
		klog.ErrorS(err, "Failed to encode state")
		return
	}
	b.publish(StateTopic(b.prefix), payload)
}

func (b *Bridge) publish(topic string, payload any) {
	if !b.client.IsConnected() {
		return
	}
	token := b.client.Publish(topic, b.qos, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		klog.V(2).InfoS("MQTT publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		klog.V(2).InfoS("MQTT publish failed", "topic", topic, "err", err)
	}
}
