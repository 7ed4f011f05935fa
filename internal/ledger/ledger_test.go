package ledger

import (
	"context"
	"testing"
	"time"

	"task-ledger/internal/domain"
	"task-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createdData() domain.TaskCreatedData {
	assignee := uuid.New()
	return domain.TaskCreatedData{
		PublicID:  uuid.New(),
		Name:      "Fix bug",
		JiraID:    "JIRA-1",
		Status:    domain.StatusAssigned,
		Owner:     uuid.New(),
		Assignee:  &assignee,
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}
}

func TestCreateAssignedTaskTransactionOnce(t *testing.T) {
	store := &testutil.TransactionStore{}
	w := NewWriter(store, 15)
	data := createdData()

	tx, err := w.CreateAssignedTaskTransaction(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data.PublicID, tx.TaskPublicID)
	assert.Equal(t, int64(15), tx.Amount)
	assert.Equal(t, data.Assignee, tx.AssigneeID)

	_, err = w.CreateAssignedTaskTransaction(context.Background(), data)
	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
	assert.Len(t, store.Txs, 1)
}

func TestCreateAssignedTaskTransactionNeedsTaskID(t *testing.T) {
	w := NewWriter(&testutil.TransactionStore{}, 10)
	_, err := w.CreateAssignedTaskTransaction(context.Background(), domain.TaskCreatedData{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProjectionConvergesRegardlessOfOrder(t *testing.T) {
	data := createdData()
	completedBy := *data.Assignee
	completed := domain.TaskCompletedData{
		PublicID:    data.PublicID,
		Status:      domain.StatusCompleted,
		CompletedBy: completedBy,
		Name:        data.Name,
		JiraID:      data.JiraID,
		Version:     2,
	}
	ctx := context.Background()

	forward := testutil.NewProjectionStore()
	pf := NewProjectionWriter(forward)
	require.NoError(t, pf.ApplyCreated(ctx, data))
	require.NoError(t, pf.ApplyCompleted(ctx, completed))

	backward := testutil.NewProjectionStore()
	pb := NewProjectionWriter(backward)
	require.NoError(t, pb.ApplyCompleted(ctx, completed))
	require.NoError(t, pb.ApplyCreated(ctx, data))
	require.NoError(t, pb.ApplyCreated(ctx, data)) // redelivery

	f := forward.Tasks[data.PublicID]
	b := backward.Tasks[data.PublicID]
	assert.Equal(t, domain.StatusCompleted, f.Status)
	assert.Equal(t, f.Status, b.Status)
	assert.Equal(t, f.Name, b.Name)
	assert.Equal(t, *f.AssigneeID, *b.AssigneeID)
}

func TestProjectionAssignedDoesNotReopenCompletedTask(t *testing.T) {
	store := testutil.NewProjectionStore()
	p := NewProjectionWriter(store)
	ctx := context.Background()
	id, worker, late := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, p.ApplyCompleted(ctx, domain.TaskCompletedData{PublicID: id, Status: domain.StatusCompleted, CompletedBy: worker, Version: 3}))
	require.NoError(t, p.ApplyAssigned(ctx, domain.TaskAssignedData{PublicID: id, Status: domain.StatusAssigned, Assignee: late, Version: 2}))

	got := store.Tasks[id]
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, worker, *got.AssigneeID)
}

func TestProjectionLateCreatedKeepsReassignedAssignee(t *testing.T) {
	store := testutil.NewProjectionStore()
	p := NewProjectionWriter(store)
	ctx := context.Background()
	created := createdData()
	reassignedTo := uuid.New()

	// Task.Assigned and Task.Created travel on different streams.
	require.NoError(t, p.ApplyAssigned(ctx, domain.TaskAssignedData{PublicID: created.PublicID, Status: domain.StatusAssigned, Assignee: reassignedTo, Version: 2}))
	require.NoError(t, p.ApplyCreated(ctx, created))

	got := store.Tasks[created.PublicID]
	assert.Equal(t, reassignedTo, *got.AssigneeID)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.JiraID, got.JiraID)
	assert.Equal(t, 2, got.Version)
}

func TestProjectionReassignmentsDeliveredInReverse(t *testing.T) {
	store := testutil.NewProjectionStore()
	p := NewProjectionWriter(store)
	ctx := context.Background()
	created := createdData()
	first, second := uuid.New(), uuid.New()

	require.NoError(t, p.ApplyCreated(ctx, created))
	require.NoError(t, p.ApplyAssigned(ctx, domain.TaskAssignedData{PublicID: created.PublicID, Status: domain.StatusAssigned, Assignee: second, Version: 3}))
	require.NoError(t, p.ApplyAssigned(ctx, domain.TaskAssignedData{PublicID: created.PublicID, Status: domain.StatusAssigned, Assignee: first, Version: 2}))

	got := store.Tasks[created.PublicID]
	assert.Equal(t, second, *got.AssigneeID)
	assert.Equal(t, 3, got.Version)
}
