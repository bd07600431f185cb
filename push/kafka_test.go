package push

import (
	"context"
	"encoding/json"
	"testing"

	"chat-service/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSenderPublishesKeyedByToken(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSender{writer: w, log: logger.Nop()}

	err := s.Send(context.Background(), Notification{
		Token: "device-1",
		Title: "Alice",
		Body:  "Image shared",
		Data:  map[string]string{"chatId": "c1"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "device-1", string(w.msgs[0].Key))

	var decoded Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "Image shared", decoded.Body)
	assert.Equal(t, "c1", decoded.Data["chatId"])
}

func TestKafkaSenderSkipsMissingToken(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSender{writer: w, log: logger.Nop()}

	require.NoError(t, s.Send(context.Background(), Notification{Token: "  ", Title: "x"}))
	assert.Empty(t, w.msgs)
}
