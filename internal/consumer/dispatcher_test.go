package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"task-ledger/internal/domain"
	"task-ledger/internal/envelope"
	"task-ledger/internal/ledger"
	"task-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stores struct {
	txs         *testutil.TransactionStore
	projections *testutil.ProjectionStore
}

func newDispatcher(t *testing.T, validate bool) (*Dispatcher, stores) {
	t.Helper()
	s := stores{txs: &testutil.TransactionStore{}, projections: testutil.NewProjectionStore()}
	var schemas *envelope.Registry
	if validate {
		reg, err := envelope.LoadRegistry()
		require.NoError(t, err)
		schemas = reg
	}
	handlers := InitRegistry(ledger.NewWriter(s.txs, 10), ledger.NewProjectionWriter(s.projections))
	return NewDispatcher(handlers, schemas), s
}

// rawEnvelope encodes an envelope without going through the codec, so tests
// can produce messages the tracker itself would refuse to send.
func rawEnvelope(t *testing.T, name domain.EventName, version int, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := envelope.Encode(envelope.Envelope{
		EventID:       uuid.New(),
		EventVersion:  version,
		EventName:     name,
		EventTime:     time.Now().UTC().Format(time.RFC3339),
		EventProducer: "tracker-test",
		Data:          payload,
	})
	require.NoError(t, err)
	return raw
}

func createdData(status domain.TaskStatus) domain.TaskCreatedData {
	data := domain.TaskCreatedData{
		PublicID:  uuid.New(),
		Name:      "Fix bug",
		JiraID:    "JIRA-1",
		Status:    status,
		Owner:     uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Version:   1,
	}
	if status != domain.StatusCreated {
		assignee := uuid.New()
		data.Assignee = &assignee
	}
	return data
}

func TestDispatcherDropsUndecodableMessages(t *testing.T) {
	d, s := newDispatcher(t, true)

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `not json`},
		{"empty", ``},
		{"missing event_name", `{"event_id":"x","event_version":2,"data":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := d.Handle(context.Background(), []byte(tt.raw))
			assert.NoError(t, err)
			assert.Equal(t, OutcomeDropped, outcome)
			assert.True(t, outcome.Acked())
		})
	}
	assert.Empty(t, s.txs.Txs)
	assert.Empty(t, s.projections.Tasks)
}

func TestDispatcherIgnoresUnknownEvents(t *testing.T) {
	d, s := newDispatcher(t, true)

	for _, raw := range [][]byte{
		rawEnvelope(t, domain.EventTaskCreated, 1, createdData(domain.StatusAssigned)),
		rawEnvelope(t, "Task.Deleted", 2, map[string]string{"public_id": uuid.NewString()}),
	} {
		outcome, err := d.Handle(context.Background(), raw)
		assert.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
	}
	assert.Empty(t, s.txs.Txs)
}

func TestDispatcherTaskCreatedRecordsTransactionOnce(t *testing.T) {
	d, s := newDispatcher(t, true)
	data := createdData(domain.StatusAssigned)

	// Two copies of the same change carry different event ids.
	for range 2 {
		outcome, err := d.Handle(context.Background(), rawEnvelope(t, domain.EventTaskCreated, 3, data))
		require.NoError(t, err)
		assert.Equal(t, OutcomeHandled, outcome)
	}

	require.Len(t, s.txs.Txs, 1)
	assert.Equal(t, data.PublicID, s.txs.Txs[0].TaskPublicID)
	assert.Equal(t, *data.Assignee, *s.txs.Txs[0].AssigneeID)

	projected := s.projections.Tasks[data.PublicID]
	assert.Equal(t, domain.StatusAssigned, projected.Status)
	assert.Equal(t, "Fix bug", projected.Name)
}

func TestDispatcherTaskCreatedWithoutAssignmentSkipsTransaction(t *testing.T) {
	d, s := newDispatcher(t, true)
	data := createdData(domain.StatusCreated)

	outcome, err := d.Handle(context.Background(), rawEnvelope(t, domain.EventTaskCreated, 3, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeHandled, outcome)
	assert.Empty(t, s.txs.Txs)
	assert.Equal(t, domain.StatusCreated, s.projections.Tasks[data.PublicID].Status)
}

func TestDispatcherDropsSchemaViolations(t *testing.T) {
	d, s := newDispatcher(t, true)
	data := createdData(domain.StatusAssigned)
	data.Name = "[urgent] Fix bug"

	outcome, err := d.Handle(context.Background(), rawEnvelope(t, domain.EventTaskCreated, 3, data))
	assert.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Empty(t, s.txs.Txs)
}

func TestDispatcherDropsUnusableDataWithoutValidation(t *testing.T) {
	d, _ := newDispatcher(t, false)

	outcome, err := d.Handle(context.Background(), rawEnvelope(t, domain.EventTaskAssigned, 3, "not an object"))
	assert.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)

	outcome, err = d.Handle(context.Background(), rawEnvelope(t, domain.EventTaskCreated, 3, domain.TaskCreatedData{Status: domain.StatusAssigned}))
	assert.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestDispatcherReturnsStorageFailures(t *testing.T) {
	d, s := newDispatcher(t, true)
	s.txs.Err = errors.New("db down")

	outcome, err := d.Handle(context.Background(), rawEnvelope(t, domain.EventTaskCreated, 3, createdData(domain.StatusAssigned)))
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.False(t, outcome.Acked())
	assert.Empty(t, s.projections.Tasks)
}

func TestDispatcherLifecycleEventsUpdateProjection(t *testing.T) {
	d, s := newDispatcher(t, true)
	created := createdData(domain.StatusAssigned)
	next := uuid.New()
	ctx := context.Background()

	steps := []struct {
		name domain.EventName
		data any
	}{
		{domain.EventTaskCreated, created},
		{domain.EventTaskAssigned, domain.TaskAssignedData{PublicID: created.PublicID, Status: domain.StatusAssigned, Assignee: next, Version: 2}},
		{domain.EventTaskCompleted, domain.TaskCompletedData{PublicID: created.PublicID, Status: domain.StatusCompleted, CompletedBy: next, Name: created.Name, JiraID: created.JiraID, Version: 3}},
	}
	for _, step := range steps {
		outcome, err := d.Handle(ctx, rawEnvelope(t, step.name, 3, step.data))
		require.NoError(t, err)
		require.Equal(t, OutcomeHandled, outcome, step.name)
	}

	got := s.projections.Tasks[created.PublicID]
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, next, *got.AssigneeID)
	assert.Len(t, s.txs.Txs, 1)
}

func TestDispatcherAcceptsLegacyV2Events(t *testing.T) {
	d, s := newDispatcher(t, true)
	ctx := context.Background()
	created := createdData(domain.StatusAssigned)
	stale := uuid.New()

	outcome, err := d.Handle(ctx, rawEnvelope(t, domain.EventTaskCreated, 3, created))
	require.NoError(t, err)
	require.Equal(t, OutcomeHandled, outcome)

	// A v2 payload has no task version, so it cannot displace newer data.
	legacy := map[string]any{"public_id": created.PublicID, "status": domain.StatusAssigned, "assignee": stale}
	outcome, err = d.Handle(ctx, rawEnvelope(t, domain.EventTaskAssigned, 2, legacy))
	require.NoError(t, err)
	assert.Equal(t, OutcomeHandled, outcome)

	got := s.projections.Tasks[created.PublicID]
	assert.Equal(t, *created.Assignee, *got.AssigneeID)
	assert.Equal(t, 1, got.Version)
}
