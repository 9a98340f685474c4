package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_PublishEvent(t *testing.T) {
	t.Parallel()

	fw := &fakeWriter{}
	p := &Producer{w: fw}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	err := p.PublishEvent(context.Background(), TopicContacts, "7", Event{
		Type:      ContactCreated,
		UserID:    7,
		ContactID: 3,
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, fw.msgs, 1)

	msg := fw.msgs[0]
	assert.Equal(t, TopicContacts, msg.Topic)
	assert.Equal(t, []byte("7"), msg.Key)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ContactCreated, got["type"])
	assert.Equal(t, float64(3), got["contact_id"])
	assert.NotContains(t, got, "email")

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestProducer_PublishEvent_Errors(t *testing.T) {
	t.Parallel()

	p := &Producer{w: &fakeWriter{err: errors.New("broker down")}}
	assert.Error(t, p.PublishEvent(context.Background(), TopicUsers, "1", Event{Type: UserLoggedIn}))

	assert.Error(t, p.PublishEvent(context.Background(), TopicUsers, "1", make(chan int)))
}

func TestProducer_RenamesTopics(t *testing.T) {
	t.Parallel()

	fw := &fakeWriter{}
	p := &Producer{w: fw, topics: map[string]string{TopicUsers: "prod.users"}}

	require.NoError(t, p.PublishEvent(context.Background(), TopicUsers, "1", Event{Type: UserRegistered}))
	require.NoError(t, p.PublishEvent(context.Background(), TopicContacts, "1", Event{Type: ContactDeleted}))
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, "prod.users", fw.msgs[0].Topic)
	assert.Equal(t, TopicContacts, fw.msgs[1].Topic)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var p Publisher = Nop{}
	assert.NoError(t, p.PublishEvent(context.Background(), TopicUsers, "1", Event{}))
	assert.NoError(t, p.Close())
}
