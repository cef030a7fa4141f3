package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/storage"
)

func TestFlowRepository_SaveAndGet(t *testing.T) {
	_, flows, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := core.Flow{
		ID:             "f1",
		Subject:        "doc.pdf",
		Status:         core.FlowStatusStarted,
		StepsCompleted: []string{},
		CurrentStep:    core.StepParsing,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, flows.SaveFlow(ctx, f))

	f.Status = core.FlowStatusParsed
	f.StepsCompleted = append(f.StepsCompleted, core.StepParsing)
	require.NoError(t, flows.SaveFlow(ctx, f))

	got, err := flows.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, core.FlowStatusParsed, got.Status)
	assert.Equal(t, []string{core.StepParsing}, got.StepsCompleted)
	assert.True(t, now.Equal(got.StartedAt))
}

func TestFlowRepository_GetMissing(t *testing.T) {
	_, flows, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	_, err = flows.GetFlow(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFlowRepository_ListFlowsOrdered(t *testing.T) {
	_, flows, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, flows.SaveFlow(ctx, core.Flow{ID: "late", StartedAt: base.Add(time.Minute)}))
	require.NoError(t, flows.SaveFlow(ctx, core.Flow{ID: "early", StartedAt: base}))

	list, err := flows.ListFlows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "late", list[1].ID)
}

func TestFlowRepository_ClosedBackend(t *testing.T) {
	_, flows, backend, err := NewMemoryStores()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	err = flows.SaveFlow(context.Background(), core.Flow{ID: "f1"})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
