package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitter_PublishesJSONWithRequestID(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, TopicSessionOffered)
	require.NoError(t, err)

	emitter := NewEmitter(pubSub, discard())
	emitter.Emit(WithRequestID(ctx, "req-1"), TopicSessionOffered, SessionOffered{
		SessionID: "s1", Teacher: "alice", Title: "Go basics", CreditsRequired: 5, Reward: 5,
	})

	select {
	case msg := <-messages:
		msg.Ack()
		var got SessionOffered
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "alice", got.Teacher)
		assert.Equal(t, "req-1", msg.Metadata.Get("request_id"))
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(topic string, messages ...*message.Message) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestEmitter_SwallowsPublishErrors(t *testing.T) {
	publisher := &failingPublisher{}
	emitter := NewEmitter(publisher, discard())

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), TopicUserRegistered, UserRegistered{Username: "bob"})
	})
	assert.Equal(t, 1, publisher.calls)
}

func TestEmitter_NilPublisher(t *testing.T) {
	var emitter *Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), TopicUserRegistered, UserRegistered{Username: "bob"})
	})
}

func TestNewPublisher_DefaultsToInProcess(t *testing.T) {
	publisher, err := NewPublisher(nil, discard())
	require.NoError(t, err)
	defer publisher.Close()

	_, ok := publisher.(*gochannel.GoChannel)
	assert.True(t, ok)
}
