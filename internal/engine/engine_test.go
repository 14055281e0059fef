// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vttkit/sheetsync/internal/config"
	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/internal/mock"
	"github.com/vttkit/sheetsync/internal/notify"
	"github.com/vttkit/sheetsync/internal/protocol"
	"github.com/vttkit/sheetsync/internal/store"
	"github.com/vttkit/sheetsync/internal/validators"
	"github.com/vttkit/sheetsync/models"
)

// fakeTransport is a channel-driven protocol.Client stub. Tests push results
// straight into the engine's dispatch to keep transitions deterministic; the
// fake only records outbound requests and hands out sequential op ids.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	nextOp    int

	saves   []models.SaveRequest
	updates []models.UpdateRequest
	deletes []models.DeleteRequest
	loads   []string
	lists   int

	results chan models.Result
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		connected: true,
		results:   make(chan models.Result, 16),
	}
}

func (f *fakeTransport) nextOpID() (models.OpID, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextOp++
	return models.OpID(fmt.Sprintf("op-%d", f.nextOp)), nil
}

func (f *fakeTransport) lastOpID() models.OpID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.OpID(fmt.Sprintf("op-%d", f.nextOp))
}

func (f *fakeTransport) SetToken(string) {}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Save(_ context.Context, req models.SaveRequest) (models.OpID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opID, err := f.nextOpID()
	if err == nil {
		f.saves = append(f.saves, req)
	}
	return opID, err
}

func (f *fakeTransport) Update(_ context.Context, req models.UpdateRequest) (models.OpID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opID, err := f.nextOpID()
	if err == nil {
		f.updates = append(f.updates, req)
	}
	return opID, err
}

func (f *fakeTransport) Delete(_ context.Context, req models.DeleteRequest) (models.OpID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opID, err := f.nextOpID()
	if err == nil {
		f.deletes = append(f.deletes, req)
	}
	return opID, err
}

func (f *fakeTransport) Load(_ context.Context, entityID string) (models.OpID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opID, err := f.nextOpID()
	if err == nil {
		f.loads = append(f.loads, entityID)
	}
	return opID, err
}

func (f *fakeTransport) List(context.Context) (models.OpID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opID, err := f.nextOpID()
	if err == nil {
		f.lists++
	}
	return opID, err
}

func (f *fakeTransport) Results() <-chan models.Result { return f.results }

func (f *fakeTransport) Close() error {
	close(f.results)
	return nil
}

var _ protocol.Client = (*fakeTransport)(nil)

func testSyncConfig() config.EngineSync {
	return config.EngineSync{
		PendingTimeout: 30 * time.Millisecond,
		ConflictWindow: 30 * time.Millisecond,
	}
}

func newTestEngine(t *testing.T, notifier *mock.MockNotifier) (*Engine, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	e := NewEngine(
		store.NewEntityStore(logger.Nop()),
		transport,
		validators.NewMutationValidator(),
		notifierOrNop(notifier),
		nil,
		testSyncConfig(),
		logger.Nop(),
	)
	return e, transport
}

// notifierOrNop avoids handing NewEngine a typed nil interface.
func notifierOrNop(n *mock.MockNotifier) notify.Notifier {
	if n == nil {
		return notify.Nop()
	}
	return n
}

func ariaPayload() models.Payload {
	return models.Payload{"name": "Aria", "class": "Rogue", "hp": float64(24)}
}

func waitStatus(t *testing.T, e *Engine, id string, want models.SyncStatus) models.Entity {
	t.Helper()
	var got models.Entity
	require.Eventually(t, func() bool {
		entity, ok := e.Get(id)
		if !ok {
			return false
		}
		got = entity
		return entity.Status == want
	}, 2*time.Second, 5*time.Millisecond, "entity %s never reached status %s", id, want)
	return got
}

func TestEngine_Create_RoundTrip(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	ctx := context.Background()

	tempID, err := e.Create(ctx, ariaPayload())
	require.NoError(t, err)
	assert.True(t, models.IsTempID(tempID))

	// optimistic copy is visible immediately
	entity, ok := e.Get(tempID)
	require.True(t, ok)
	assert.Equal(t, models.StatusSyncing, entity.Status)
	assert.Equal(t, "Aria", entity.Payload["name"])
	assert.True(t, e.Pending(tempID))

	require.Len(t, transport.saves, 1)
	assert.Equal(t, tempID, transport.saves[0].TempID)

	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultSave,
		EntityID: tempID,
		Save:     &models.SaveResult{AssignedID: "c-42", Version: 1},
	})

	// temp id replaced by the server-assigned one
	_, ok = e.Get(tempID)
	assert.False(t, ok)

	confirmed, ok := e.Get("c-42")
	require.True(t, ok)
	assert.Equal(t, models.StatusSynced, confirmed.Status)
	assert.Equal(t, int64(1), confirmed.Version)
	assert.Equal(t, "Aria", confirmed.Payload["name"])
	assert.False(t, e.Pending(tempID))
	assert.False(t, e.Pending("c-42"))
}

func TestEngine_Create_ValidationError(t *testing.T) {
	e, transport := newTestEngine(t, nil)

	_, err := e.Create(context.Background(), models.Payload{"class": "Rogue"})
	require.Error(t, err)
	assert.ErrorIs(t, err, validators.ErrEmptyName)

	// no state change, nothing dispatched
	assert.Empty(t, e.List())
	assert.Empty(t, transport.saves)
}

func TestEngine_Create_OfflineStaysLocal(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	transport.connected = false

	tempID, err := e.Create(context.Background(), ariaPayload())
	require.NoError(t, err)

	entity, ok := e.Get(tempID)
	require.True(t, ok)
	assert.Equal(t, models.StatusLocal, entity.Status)
	assert.False(t, e.Pending(tempID))
	assert.Empty(t, transport.saves)
}

func TestEngine_Create_ExpiryKeepsEntityInErrorState(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)

	failed := make(chan struct{})
	notifier.EXPECT().
		OperationFailed(gomock.Any(), models.MutationCreate, gomock.Any()).
		Do(func(string, models.MutationKind, error) { close(failed) })

	e, _ := newTestEngine(t, notifier)

	tempID, err := e.Create(context.Background(), ariaPayload())
	require.NoError(t, err)

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("pending create never expired")
	}

	// the optimistic entity stays visible for retry or discard
	entity := waitStatus(t, e, tempID, models.StatusError)
	assert.Equal(t, "Aria", entity.Payload["name"])
	assert.False(t, e.Pending(tempID))
}

func TestEngine_Update_Success(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(10)}, 1))

	entity, _ := e.Get("c-42")
	assert.Equal(t, models.StatusSyncing, entity.Status)
	assert.Equal(t, float64(10), entity.Payload["hp"], "optimistic patch applied")
	assert.Equal(t, "Aria", entity.Payload["name"], "untouched fields survive")
	assert.True(t, e.Pending("c-42"))

	require.Len(t, transport.updates, 1)
	assert.Equal(t, int64(1), transport.updates[0].ExpectedVersion)

	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update:   &models.UpdateResult{NewVersion: 2},
	})

	entity, _ = e.Get("c-42")
	assert.Equal(t, models.StatusSynced, entity.Status)
	assert.Equal(t, int64(2), entity.Version)
	assert.False(t, e.Pending("c-42"))
}

func TestEngine_Update_RollbackOnExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)

	failed := make(chan struct{})
	notifier.EXPECT().
		OperationFailed("c-42", models.MutationUpdate, gomock.Any()).
		Do(func(string, models.MutationKind, error) { close(failed) })

	e, _ := newTestEngine(t, notifier)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(99)}, 1))

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("pending update never expired")
	}

	entity := waitStatus(t, e, "c-42", models.StatusError)
	assert.Equal(t, float64(24), entity.Payload["hp"], "pre-update payload restored")
	assert.Equal(t, int64(1), entity.Version)
	assert.False(t, e.Pending("c-42"))
}

func TestEngine_Update_NotFound(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	err := e.Update(context.Background(), "ghost", models.Payload{"hp": float64(1)}, 1)
	assert.ErrorIs(t, err, store.ErrEntityNotFound)
}

func TestEngine_Delete_Success(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 3, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Delete(ctx, "c-42"))

	// optimistic removal, UI reacts instantly
	_, ok := e.Get("c-42")
	assert.False(t, ok)
	assert.True(t, e.Pending("c-42"))
	require.Len(t, transport.deletes, 1)

	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultDelete,
		EntityID: "c-42",
		Delete:   &models.DeleteResult{},
	})

	_, ok = e.Get("c-42")
	assert.False(t, ok)
	assert.False(t, e.Pending("c-42"))
}

func TestEngine_Delete_RollbackOnExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)

	failed := make(chan struct{})
	notifier.EXPECT().
		OperationFailed("c-42", models.MutationDelete, gomock.Any()).
		Do(func(string, models.MutationKind, error) { close(failed) })

	e, _ := newTestEngine(t, notifier)

	original := models.Entity{
		ID: "c-42", Version: 3, Payload: ariaPayload(), Status: models.StatusSynced,
	}
	e.entities.Upsert(original)

	require.NoError(t, e.Delete(context.Background(), "c-42"))

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("pending delete never expired")
	}

	// the exact snapshot is re-inserted, version included
	entity := waitStatus(t, e, "c-42", models.StatusError)
	assert.Equal(t, int64(3), entity.Version)
	assert.Equal(t, original.Payload, entity.Payload)
}

func TestEngine_Delete_OfflineRollsBackImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	notifier.EXPECT().OperationFailed("c-42", models.MutationDelete, protocol.ErrNotConnected)

	e, transport := newTestEngine(t, notifier)
	transport.sendErr = protocol.ErrNotConnected

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 3, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Delete(context.Background(), "c-42"))

	// restored synchronously, no timeout involved
	entity, ok := e.Get("c-42")
	require.True(t, ok)
	assert.Equal(t, models.StatusError, entity.Status)
	assert.Equal(t, int64(3), entity.Version)
	assert.False(t, e.Pending("c-42"))
}

func TestEngine_Delete_TempIDIsLocalOnly(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	transport.connected = false

	tempID, err := e.Create(context.Background(), ariaPayload())
	require.NoError(t, err)

	require.NoError(t, e.Delete(context.Background(), tempID))

	_, ok := e.Get(tempID)
	assert.False(t, ok)
	assert.Empty(t, transport.deletes, "never-synced entities are deleted locally only")
}

func TestEngine_ConflictResolution(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	notifier.EXPECT().ConflictDetected(models.VersionConflict{
		EntityID:       "c-42",
		ClaimedVersion: 3,
		CurrentVersion: 5,
	})

	e, transport := newTestEngine(t, notifier)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 3, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(10)}, 3))
	updateOp := transport.lastOpID()

	e.dispatch(ctx, models.Result{
		OpID:     updateOp,
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update: &models.UpdateResult{Conflict: &models.VersionConflict{
			EntityID:       "c-42",
			ClaimedVersion: 3,
			CurrentVersion: 5,
		}},
	})

	// the stale pending op is cleared and a refetch goes out
	assert.False(t, e.Pending("c-42"))
	require.Equal(t, []string{"c-42"}, transport.loads)

	authoritative := models.Entity{
		ID:      "c-42",
		Version: 5,
		Payload: models.Payload{"name": "Aria", "class": "Rogue", "hp": float64(50)},
	}
	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultLoad,
		EntityID: "c-42",
		Load:     &models.LoadResult{Entity: authoritative},
	})

	// server copy wins outright, no field-level merge with the attempted partial
	entity, ok := e.Get("c-42")
	require.True(t, ok)
	assert.Equal(t, models.StatusSynced, entity.Status)
	assert.Equal(t, int64(5), entity.Version)
	assert.Equal(t, float64(50), entity.Payload["hp"])
}

func TestEngine_ConflictWindowElapses(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	notifier.EXPECT().ConflictDetected(gomock.Any())

	e, transport := newTestEngine(t, notifier)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 3, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(10)}, 3))

	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update: &models.UpdateResult{Conflict: &models.VersionConflict{
			EntityID: "c-42", ClaimedVersion: 3, CurrentVersion: 5,
		}},
	})

	// no authoritative copy ever arrives
	waitStatus(t, e, "c-42", models.StatusError)
}

func TestEngine_MutationDuringReconcileWindowWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	notifier.EXPECT().ConflictDetected(gomock.Any())

	e, transport := newTestEngine(t, notifier)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 3, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(10)}, 3))
	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update: &models.UpdateResult{Conflict: &models.VersionConflict{
			EntityID: "c-42", ClaimedVersion: 3, CurrentVersion: 5,
		}},
	})
	loadOp := transport.lastOpID()

	// the user edits again while the refetch is still outstanding
	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(77)}, 3))
	updateOp := transport.lastOpID()
	require.NotEqual(t, loadOp, updateOp)

	e.dispatch(ctx, models.Result{
		OpID:     loadOp,
		Kind:     models.ResultLoad,
		EntityID: "c-42",
		Load: &models.LoadResult{Entity: models.Entity{
			ID:      "c-42",
			Version: 5,
			Payload: models.Payload{"name": "Aria", "class": "Rogue", "hp": float64(50)},
		}},
	})

	// the late authoritative copy must not clobber the in-flight edit or
	// mark the entity synced while its operation is still pending
	entity, ok := e.Get("c-42")
	require.True(t, ok)
	assert.Equal(t, models.StatusSyncing, entity.Status)
	assert.Equal(t, float64(77), entity.Payload["hp"])
	assert.True(t, e.Pending("c-42"))

	e.dispatch(ctx, models.Result{
		OpID:     updateOp,
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update:   &models.UpdateResult{NewVersion: 6},
	})

	entity, _ = e.Get("c-42")
	assert.Equal(t, models.StatusSynced, entity.Status)
	assert.Equal(t, int64(6), entity.Version)

	// the dropped reconcile's window timer must not flip the entity to error
	time.Sleep(2 * testSyncConfig().ConflictWindow)
	entity, _ = e.Get("c-42")
	assert.Equal(t, models.StatusSynced, entity.Status)
}

func TestEngine_MissingResultBodyRollsBack(t *testing.T) {
	t.Run("save", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mock.NewMockNotifier(ctrl)
		notifier.EXPECT().OperationFailed(gomock.Any(), models.MutationCreate, ErrMalformedResult)

		e, transport := newTestEngine(t, notifier)
		ctx := context.Background()

		tempID, err := e.Create(ctx, ariaPayload())
		require.NoError(t, err)

		// success envelope with no body
		e.dispatch(ctx, models.Result{
			OpID:     transport.lastOpID(),
			Kind:     models.ResultSave,
			EntityID: tempID,
		})

		entity, ok := e.Get(tempID)
		require.True(t, ok)
		assert.Equal(t, models.StatusError, entity.Status)
		assert.False(t, e.Pending(tempID))
	})

	t.Run("update", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mock.NewMockNotifier(ctrl)
		notifier.EXPECT().OperationFailed("c-42", models.MutationUpdate, ErrMalformedResult)

		e, transport := newTestEngine(t, notifier)
		ctx := context.Background()

		e.entities.Upsert(models.Entity{
			ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
		})
		require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(99)}, 1))

		e.dispatch(ctx, models.Result{
			OpID:     transport.lastOpID(),
			Kind:     models.ResultUpdate,
			EntityID: "c-42",
		})

		entity, _ := e.Get("c-42")
		assert.Equal(t, models.StatusError, entity.Status)
		assert.Equal(t, float64(24), entity.Payload["hp"], "pre-update payload restored")
		assert.False(t, e.Pending("c-42"))
	})
}

func TestEngine_StaleResponseIgnored(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(10)}, 1))
	staleOp := transport.lastOpID()

	// a second update supersedes the first before its result arrives
	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(11)}, 1))
	currentOp := transport.lastOpID()
	require.NotEqual(t, staleOp, currentOp)

	e.dispatch(ctx, models.Result{
		OpID:     staleOp,
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update:   &models.UpdateResult{NewVersion: 2},
	})

	// the stale confirmation must not resolve the current operation
	entity, _ := e.Get("c-42")
	assert.Equal(t, models.StatusSyncing, entity.Status)
	assert.True(t, e.Pending("c-42"))

	e.dispatch(ctx, models.Result{
		OpID:     currentOp,
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update:   &models.UpdateResult{NewVersion: 3},
	})

	entity, _ = e.Get("c-42")
	assert.Equal(t, models.StatusSynced, entity.Status)
	assert.Equal(t, int64(3), entity.Version)
}

func TestEngine_SinglePendingOpPerEntity(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(1)}, 1))
	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(2)}, 1))
	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(3)}, 1))

	e.mu.Lock()
	assert.Len(t, e.pending, 1)
	e.mu.Unlock()
}

func TestEngine_IdempotentConfirm(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(10)}, 1))

	res := models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update:   &models.UpdateResult{NewVersion: 2},
	}
	e.dispatch(ctx, res)
	e.dispatch(ctx, res) // duplicate confirmation

	entity, _ := e.Get("c-42")
	assert.Equal(t, models.StatusSynced, entity.Status)
	assert.Equal(t, int64(2), entity.Version)
	assert.Empty(t, transport.loads, "duplicate must not trigger any follow-up request")
}

func TestEngine_ServerRejectionRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	notifier.EXPECT().OperationFailed("c-42", models.MutationUpdate, protocol.ErrRejected)

	e, transport := newTestEngine(t, notifier)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(99)}, 1))

	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Err:      protocol.ErrRejected,
	})

	// applied immediately on receipt, no waiting for the deadline
	entity, _ := e.Get("c-42")
	assert.Equal(t, models.StatusError, entity.Status)
	assert.Equal(t, float64(24), entity.Payload["hp"])
	assert.False(t, e.Pending("c-42"))
}

func TestEngine_Retry_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	notifier.EXPECT().OperationFailed("c-42", models.MutationUpdate, protocol.ErrRejected)
	notifier.EXPECT().EntityRecovered("c-42")

	e, transport := newTestEngine(t, notifier)
	ctx := context.Background()

	e.entities.Upsert(models.Entity{
		ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})

	require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(10)}, 1))
	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Err:      protocol.ErrRejected,
	})

	require.NoError(t, e.Retry(ctx, "c-42"))

	entity, _ := e.Get("c-42")
	assert.Equal(t, models.StatusSyncing, entity.Status)
	assert.Equal(t, float64(10), entity.Payload["hp"], "the failed partial is re-applied")
	require.Len(t, transport.updates, 2)

	e.dispatch(ctx, models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultUpdate,
		EntityID: "c-42",
		Update:   &models.UpdateResult{NewVersion: 2},
	})

	entity, _ = e.Get("c-42")
	assert.Equal(t, models.StatusSynced, entity.Status)
}

func TestEngine_Retry_NothingToRetry(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	assert.ErrorIs(t, e.Retry(context.Background(), "ghost"), ErrNothingToRetry)
}

func TestEngine_Retry_LocalCreateAfterReconnect(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	transport.connected = false

	tempID, err := e.Create(context.Background(), ariaPayload())
	require.NoError(t, err)

	transport.mu.Lock()
	transport.connected = true
	transport.mu.Unlock()

	require.NoError(t, e.Retry(context.Background(), tempID))

	entity, _ := e.Get(tempID)
	assert.Equal(t, models.StatusSyncing, entity.Status)
	require.Len(t, transport.saves, 1)
	assert.Equal(t, tempID, transport.saves[0].TempID)
}

func TestEngine_Retry_OfflineCreateStaysLocal(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	transport.connected = false

	tempID, err := e.Create(context.Background(), ariaPayload())
	require.NoError(t, err)

	// retrying while still offline must not degrade the entity
	require.NoError(t, e.Retry(context.Background(), tempID))

	entity, ok := e.Get(tempID)
	require.True(t, ok)
	assert.Equal(t, models.StatusLocal, entity.Status)
	assert.False(t, e.Pending(tempID))
	assert.Empty(t, transport.saves)
}

func TestEngine_Discard(t *testing.T) {
	t.Run("never-synced create is removed", func(t *testing.T) {
		e, transport := newTestEngine(t, nil)
		transport.connected = false

		tempID, err := e.Create(context.Background(), ariaPayload())
		require.NoError(t, err)

		require.NoError(t, e.Discard(tempID))
		_, ok := e.Get(tempID)
		assert.False(t, ok)
	})

	t.Run("rolled-back update returns to synced", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mock.NewMockNotifier(ctrl)
		notifier.EXPECT().OperationFailed(gomock.Any(), gomock.Any(), gomock.Any())

		e, transport := newTestEngine(t, notifier)
		ctx := context.Background()

		e.entities.Upsert(models.Entity{
			ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
		})
		require.NoError(t, e.Update(ctx, "c-42", models.Payload{"hp": float64(99)}, 1))
		e.dispatch(ctx, models.Result{
			OpID:     transport.lastOpID(),
			Kind:     models.ResultUpdate,
			EntityID: "c-42",
			Err:      protocol.ErrRejected,
		})

		require.NoError(t, e.Discard("c-42"))

		entity, _ := e.Get("c-42")
		assert.Equal(t, models.StatusSynced, entity.Status)
		assert.Equal(t, float64(24), entity.Payload["hp"])
		assert.ErrorIs(t, e.Retry(ctx, "c-42"), ErrNothingToRetry)
	})

	t.Run("synced entity cannot be discarded", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)
		e.entities.Upsert(models.Entity{
			ID: "c-42", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
		})

		assert.ErrorIs(t, e.Discard("c-42"), ErrNothingToRetry)
	})
}

func TestEngine_ListReconciliation(t *testing.T) {
	e, transport := newTestEngine(t, nil)
	ctx := context.Background()

	// synced entity that the server still has
	e.entities.Upsert(models.Entity{
		ID: "c-1", Version: 1, Payload: models.Payload{"name": "Aria"}, Status: models.StatusSynced,
	})
	// synced entity deleted elsewhere
	e.entities.Upsert(models.Entity{
		ID: "c-gone", Version: 2, Payload: models.Payload{"name": "Vax"}, Status: models.StatusSynced,
	})
	// unsynced local edit awaiting retry must not be clobbered or removed
	e.entities.Upsert(models.Entity{
		ID: "c-err", Version: 1, Payload: models.Payload{"name": "Pike"}, Status: models.StatusError,
	})
	// in-flight update must not be clobbered
	e.entities.Upsert(models.Entity{
		ID: "c-busy", Version: 1, Payload: ariaPayload(), Status: models.StatusSynced,
	})
	require.NoError(t, e.Update(ctx, "c-busy", models.Payload{"hp": float64(1)}, 1))

	require.NoError(t, e.Refresh(ctx))
	assert.Equal(t, 1, transport.lists)

	e.dispatch(ctx, models.Result{
		OpID: transport.lastOpID(),
		Kind: models.ResultList,
		List: &models.ListResult{Entities: []models.Entity{
			{ID: "c-1", Version: 4, Payload: models.Payload{"name": "Aria", "hp": float64(7)}},
			{ID: "c-new", Version: 1, Payload: models.Payload{"name": "Percy"}},
			{ID: "c-err", Version: 9, Payload: models.Payload{"name": "Server Pike"}},
			{ID: "c-busy", Version: 9, Payload: models.Payload{"name": "Server Aria"}},
		}},
	})

	adopted, _ := e.Get("c-1")
	assert.Equal(t, int64(4), adopted.Version)
	assert.Equal(t, models.StatusSynced, adopted.Status)

	_, ok := e.Get("c-new")
	assert.True(t, ok, "new server entities are adopted")

	_, ok = e.Get("c-gone")
	assert.False(t, ok, "entities deleted elsewhere are removed")

	errEntity, _ := e.Get("c-err")
	assert.Equal(t, "Pike", errEntity.Payload["name"], "local error state is preserved")

	busy, _ := e.Get("c-busy")
	assert.Equal(t, models.StatusSyncing, busy.Status, "in-flight entity untouched")
	assert.NotEqual(t, "Server Aria", busy.Payload["name"])
}

func TestEngine_Preload(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshots := mock.NewMockSnapshotRepository(ctrl)

	cached := []models.Entity{
		{ID: "c-1", Version: 2, Payload: models.Payload{"name": "Aria"}, Status: models.StatusSynced},
		{ID: "c-2", Version: 1, Payload: models.Payload{"name": "Vax"}, Status: models.StatusSynced},
	}
	snapshots.EXPECT().LoadAll(gomock.Any()).Return(cached, nil)

	transport := newFakeTransport()
	e := NewEngine(
		store.NewEntityStore(logger.Nop()),
		transport,
		validators.NewMutationValidator(),
		nil,
		snapshots,
		testSyncConfig(),
		logger.Nop(),
	)

	// an entity already in the store must not be overwritten
	e.entities.Upsert(models.Entity{
		ID: "c-2", Version: 5, Payload: models.Payload{"name": "Fresh Vax"}, Status: models.StatusSynced,
	})

	require.NoError(t, e.Preload(context.Background()))

	seeded, _ := e.Get("c-1")
	assert.Equal(t, int64(2), seeded.Version)

	kept, _ := e.Get("c-2")
	assert.Equal(t, int64(5), kept.Version)
}

func TestEngine_Run(t *testing.T) {
	e, transport := newTestEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	tempID, err := e.Create(ctx, ariaPayload())
	require.NoError(t, err)

	transport.results <- models.Result{
		OpID:     transport.lastOpID(),
		Kind:     models.ResultSave,
		EntityID: tempID,
		Save:     &models.SaveResult{AssignedID: "c-42", Version: 1},
	}

	waitStatus(t, e, "c-42", models.StatusSynced)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
