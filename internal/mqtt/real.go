package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned by PublishReport while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt: not connected")

// backlogLimit bounds the system events kept while offline.
const backlogLimit = 64

// RealPublisher publishes to an actual MQTT broker. The connection is made in
// the background and re-established automatically; system events published
// while offline are buffered and replayed on connect.
type RealPublisher struct {
	client    paho.Client
	connected atomic.Bool
	lost      atomic.Bool

	mu      sync.Mutex // guards backlog and last; connected only changes while held
	backlog *backlog
	last    paho.Token
}

// NewRealPublisher creates a publisher for the given broker and starts
// connecting. It does not wait for the connection.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := &RealPublisher{backlog: newBacklog(backlogLimit)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	pending := p.markConnected()

	if len(pending) > 0 {
		log.Printf("mqtt: connected, replaying %d queued events", len(pending))
	} else {
		log.Printf("mqtt: connected")
	}
	for _, m := range pending {
		go watch(c.Publish(m.topic, m.qos, m.retained, m.payload), m.topic)
	}

	if p.lost.Swap(false) {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		go watch(c.Publish(TopicSystem, 1, false, payload), EventReconnected)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected.Store(false)
	p.mu.Unlock()
	p.lost.Store(true)
	log.Printf("mqtt: connection lost: %v", err)
}

// markConnected marks the connection up and takes the backlog for replay.
func (p *RealPublisher) markConnected() []bufferedMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected.Store(true)
	return p.backlog.drain()
}

// queueOffline keeps m for replay if the broker is down and reports whether
// it did. The check and the push happen under the same lock as markConnected,
// so nothing is queued after the backlog has been replayed.
func (p *RealPublisher) queueOffline(m bufferedMsg) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected.Load() {
		return false
	}
	p.backlog.push(m)
	return true
}

// watch logs the outcome of a QoS 1 publish without holding up the caller.
func watch(token paho.Token, what string) {
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: publish %s timeout", what)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish %s: %v", what, err)
	}
}

// PublishReport sends a report at QoS 0. It does not wait for the network.
func (p *RealPublisher) PublishReport(event ReportEvent) error {
	if !p.connected.Load() {
		return ErrNotConnected
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(TopicReport, 0, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	default:
	}
	return nil
}

// PublishSystem sends a system lifecycle event at QoS 1, or buffers it while
// disconnected.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if p.queueOffline(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}) {
		return nil
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	token := p.client.Publish(TopicSystem, 1, event.Retained, payload)
	p.mu.Lock()
	p.last = token
	p.mu.Unlock()
	go watch(token, event.Event)
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.connected.Load()
}

// Close waits briefly for the last system event, then disconnects.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last != nil {
		last.WaitTimeout(2 * time.Second)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
