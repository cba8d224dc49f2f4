package emitter

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic   string
	payload []byte
}

// fakeClient records publishes; every other mqtt.Client method is unused.
type fakeClient struct {
	mqtt.Client
	err  error
	sent []message
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, message{topic: topic, payload: payload.([]byte)})
	return newToken(c.err)
}

func (c *fakeClient) IsConnected() bool { return false }

func TestMQTTSink_PublishesJSONPerKind(t *testing.T) {
	client := &fakeClient{}
	sink := NewMQTTSink(client, "retail/analytics/", logger.NewNop())

	ts := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sink.InsertVisitor(&models.VisitorRecord{Count: 4, Timestamp: ts, Date: "2025-06-15", Hour: 10}))
	require.NoError(t, sink.InsertCashier(&models.CashierRecord{QueueLength: 3, IsBusy: true}))
	require.NoError(t, sink.InsertSection(&models.SectionRecord{SectionName: "Electronics"}))
	require.NoError(t, sink.InsertDwell(&models.DwellRecord{SessionID: "s1", Duration: 4.5}))

	require.Len(t, client.sent, 4)
	assert.Equal(t, "retail/analytics/visitors", client.sent[0].topic)
	assert.Equal(t, "retail/analytics/cashier", client.sent[1].topic)
	assert.Equal(t, "retail/analytics/sections", client.sent[2].topic)
	assert.Equal(t, "retail/analytics/dwell", client.sent[3].topic)

	var visitor map[string]any
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &visitor))
	assert.Equal(t, 4.0, visitor["visitor_count"])
	assert.Equal(t, "2025-06-15", visitor["date"])

	var cashier map[string]any
	require.NoError(t, json.Unmarshal(client.sent[1].payload, &cashier))
	assert.Equal(t, true, cashier["is_busy"])

	published, failed := sink.Stats()
	assert.Equal(t, uint64(1), published["retail/analytics/dwell"])
	assert.Zero(t, failed)
}

func TestMQTTSink_PublishError(t *testing.T) {
	boom := errors.New("not connected")
	sink := NewMQTTSink(&fakeClient{err: boom}, "retail", logger.NewNop())

	err := sink.InsertDwell(&models.DwellRecord{})

	assert.ErrorIs(t, err, boom)
	_, failed := sink.Stats()
	assert.Equal(t, uint64(1), failed)
}
