package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTaskInput(t *testing.T) {
	cases := []struct {
		name, task, jira string
		ok               bool
	}{
		{"valid", "Fix bug", "JIRA-1", true},
		{"open bracket", "Fix [bug", "JIRA-1", false},
		{"close bracket", "Fix bug]", "JIRA-1", false},
		{"both brackets", "[JIRA-2] Fix", "JIRA-2", false},
		{"empty name", "  ", "JIRA-1", false},
		{"empty jira", "Fix bug", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTaskInput(tc.task, tc.jira)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestTaskLifecycle(t *testing.T) {
	now := time.Now()
	assignee := uuid.New()
	task := NewTask(uuid.New(), "Fix bug", "JIRA-1", now)
	assert.Equal(t, StatusCreated, task.Status)
	assert.False(t, task.MightBeMarkedAsCompleted())

	require.NoError(t, task.Assign(assignee, now))
	assert.Equal(t, StatusAssigned, task.Status)
	assert.True(t, task.IsAssignedTo(assignee))

	err := task.Complete(uuid.New(), now)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, StatusAssigned, task.Status)

	require.NoError(t, task.Complete(assignee, now))
	assert.Equal(t, StatusCompleted, task.Status)

	err = task.Complete(assignee, now)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, errors.Is(err, ErrForbidden))

	assert.ErrorIs(t, task.Assign(uuid.New(), now), ErrInvalidState)
	assert.True(t, task.IsAssignedTo(assignee))
}

func TestMergeStatusNeverRegresses(t *testing.T) {
	assert.Equal(t, StatusCompleted, MergeStatus(StatusCompleted, StatusAssigned))
	assert.Equal(t, StatusAssigned, MergeStatus(StatusCreated, StatusAssigned))
	assert.Equal(t, StatusAssigned, MergeStatus(StatusAssigned, ""))
	assert.Equal(t, StatusCreated, MergeStatus("", StatusCreated))
}

func TestAccountingTaskMergeIsOrderIndependent(t *testing.T) {
	id := uuid.New()
	first, second := uuid.New(), uuid.New()
	created := AccountingTask{PublicID: id, Name: "Fix bug", JiraID: "JIRA-1", Status: StatusAssigned, AssigneeID: &first, Version: 1}
	completed := AccountingTask{PublicID: id, Status: StatusCompleted, AssigneeID: &second, Version: 2}

	inOrder := AccountingTask{PublicID: id}
	inOrder.Merge(created)
	inOrder.Merge(completed)

	reversed := AccountingTask{PublicID: id}
	reversed.Merge(completed)
	reversed.Merge(created)

	assert.Equal(t, inOrder.Status, reversed.Status)
	assert.Equal(t, StatusCompleted, reversed.Status)
	assert.Equal(t, "Fix bug", reversed.Name)
	assert.Equal(t, second, *inOrder.AssigneeID)
	assert.Equal(t, second, *reversed.AssigneeID)
}

func TestAccountingTaskMergeFollowsTaskVersion(t *testing.T) {
	id := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	observations := []AccountingTask{
		{PublicID: id, Name: "Fix bug", JiraID: "JIRA-1", Status: StatusAssigned, AssigneeID: &a, Version: 1},
		{PublicID: id, Status: StatusAssigned, AssigneeID: &b, Version: 2},
		{PublicID: id, Status: StatusAssigned, AssigneeID: &c, Version: 3},
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {2, 0, 1}}
	for _, order := range orders {
		got := AccountingTask{PublicID: id}
		for _, i := range order {
			got.Merge(observations[i])
		}
		assert.Equal(t, c, *got.AssigneeID, "order %v", order)
		assert.Equal(t, 3, got.Version, "order %v", order)
		assert.Equal(t, "Fix bug", got.Name, "order %v", order)
		assert.Equal(t, StatusAssigned, got.Status, "order %v", order)
	}
}
