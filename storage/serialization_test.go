package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/core"
)

func TestVectorRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &core.VectorRecord{
		Id:     "doc.pdf_0",
		Text:   "Machine learning is a subset of AI.",
		Vector: []float32{0.1, -0.2, 0.3},
		Metadata: map[string]string{
			core.MetaSourceFile: "/tmp/doc.pdf",
			core.MetaFileName:   "doc.pdf",
			core.MetaStartIdx:   "0",
		},
		InsertedAt: now,
		UpdatedAt:  now.Add(time.Second),
	}

	decoded, err := UnmarshalVectorRecord(MarshalVectorRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record.Id, decoded.Id)
	assert.Equal(t, record.Text, decoded.Text)
	assert.Equal(t, record.Vector, decoded.Vector)
	assert.Equal(t, record.Metadata, decoded.Metadata)
	assert.True(t, record.InsertedAt.Equal(decoded.InsertedAt))
	assert.True(t, record.UpdatedAt.Equal(decoded.UpdatedAt))
}

func TestMarshalVectorRecord_Deterministic(t *testing.T) {
	record := &core.VectorRecord{
		Id:       "x",
		Text:     "y",
		Vector:   []float32{1},
		Metadata: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
	}
	first := MarshalVectorRecord(record)
	for range 10 {
		assert.Equal(t, first, MarshalVectorRecord(record))
	}
}

func TestFlowRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	f := &core.Flow{
		ID:             "f1",
		Subject:        "doc.pdf",
		Status:         core.FlowStatusChunked,
		StepsCompleted: []string{core.StepParsing, core.StepChunking},
		CurrentStep:    core.StepParsing,
		StartedAt:      now,
		UpdatedAt:      now,
	}

	decoded, err := UnmarshalFlow(MarshalFlow(f))
	require.NoError(t, err)
	assert.Equal(t, f.ID, decoded.ID)
	assert.Equal(t, f.Status, decoded.Status)
	assert.Equal(t, f.StepsCompleted, decoded.StepsCompleted)
	assert.Equal(t, f.CurrentStep, decoded.CurrentStep)
	assert.True(t, f.StartedAt.Equal(decoded.StartedAt))
}

func TestUnmarshal_Truncated(t *testing.T) {
	data := MarshalVectorRecord(&core.VectorRecord{Id: "x", Text: "hello", Vector: []float32{1, 2}})

	_, err := UnmarshalVectorRecord(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalFlow([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
