package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONKeepsIntegers(t *testing.T) {
	type event struct {
		Document map[string]any `json:"document"`
	}
	got, err := DecodeJSON[event]([]byte(`{"document":{"id":9007199254740993}}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), got.Document["id"])

	_, err = DecodeJSON[event]([]byte(`{"document":`))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{{Key: "books", Value: map[string]int{"n": 1}}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "books", string(msgs[0].Key))
	assert.JSONEq(t, `{"n":1}`, string(msgs[0].Value))

	_, err = encode([]Event{{Key: "bad", Value: func() {}}})
	assert.Error(t, err)
}

func TestCodec(t *testing.T) {
	assert.Equal(t, kafka.Zstd, codec("ZSTD"))
	assert.Equal(t, kafka.Lz4, codec("unknown"))
	assert.Equal(t, kafka.Compression(0), codec("none"))
}

type recordingCommitter struct {
	committed []kafka.Message
}

func (r *recordingCommitter) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func TestWrapMessage(t *testing.T) {
	raw := kafka.Message{Key: []byte("books"), Value: []byte("{}"), Partition: 2, Offset: 41}
	cm := &recordingCommitter{}

	auto := wrapMessage(raw, cm, false)
	assert.Equal(t, "books", string(auto.Key))
	assert.Equal(t, 2, auto.Partition)
	assert.Equal(t, int64(41), auto.Offset)
	assert.Nil(t, auto.Ack)

	manual := wrapMessage(raw, cm, true)
	require.NotNil(t, manual.Ack)
	assert.Empty(t, cm.committed, "wrapping must not commit")
	require.NoError(t, manual.Ack(context.Background()))
	require.Len(t, cm.committed, 1)
	assert.Equal(t, int64(41), cm.committed[0].Offset)
}
