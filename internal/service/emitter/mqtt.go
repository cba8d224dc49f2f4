// Package emitter mirrors persisted analytics rows onto an MQTT broker.
package emitter

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	TopicVisitors = "visitors"
	TopicSections = "sections"
	TopicCashier  = "cashier"
	TopicDwell    = "dwell"

	publishTimeout = 2 * time.Second
)

// MQTTSink implements repository.AnalyticsSink by publishing every row as JSON
// under <base>/<kind>.
type MQTTSink struct {
	client mqtt.Client
	base   string
	qos    byte
	logger *logger.Logger

	mu        sync.Mutex
	published map[string]uint64
	errors    uint64
}

// NewMQTTSink wraps an existing client.
func NewMQTTSink(client mqtt.Client, baseTopic string, logger *logger.Logger) *MQTTSink {
	return &MQTTSink{
		client:    client,
		base:      strings.TrimSuffix(baseTopic, "/"),
		qos:       1,
		logger:    logger,
		published: make(map[string]uint64),
	}
}

// Connect dials the broker with auto-reconnect and returns a ready sink.
func Connect(broker, baseTopic string, logger *logger.Logger) (*MQTTSink, error) {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("retail-analytics-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("MQTT connection established: %s", broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warning("MQTT connection lost, will auto-reconnect: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return NewMQTTSink(client, baseTopic, logger), nil
}

// Topic returns the full topic for a record kind.
func (s *MQTTSink) Topic(kind string) string {
	return s.base + "/" + kind
}

func (s *MQTTSink) publish(kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		s.fail()
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	topic := s.Topic(kind)
	token := s.client.Publish(topic, s.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		s.fail()
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		s.fail()
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}

	s.mu.Lock()
	s.published[topic]++
	s.mu.Unlock()
	return nil
}

func (s *MQTTSink) fail() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

func (s *MQTTSink) InsertVisitor(rec *models.VisitorRecord) error {
	return s.publish(TopicVisitors, rec)
}

func (s *MQTTSink) InsertSection(rec *models.SectionRecord) error {
	return s.publish(TopicSections, rec)
}

func (s *MQTTSink) InsertCashier(rec *models.CashierRecord) error {
	return s.publish(TopicCashier, rec)
}

func (s *MQTTSink) InsertDwell(rec *models.DwellRecord) error {
	return s.publish(TopicDwell, rec)
}

// Stats returns published counts per topic and the number of failed publishes.
func (s *MQTTSink) Stats() (map[string]uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	published := make(map[string]uint64, len(s.published))
	for k, v := range s.published {
		published[k] = v
	}
	return published, s.errors
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
		s.logger.Info("MQTT disconnected")
	}
}
