package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskdesk/taskdesk/internal/domain"
)

func TestTaskStatus_IsValid(t *testing.T) {
	assert.True(t, domain.TaskStatusPending.IsValid())
	assert.True(t, domain.TaskStatusInProgress.IsValid())
	assert.True(t, domain.TaskStatusCompleted.IsValid())
	assert.False(t, domain.TaskStatus("").IsValid())
	assert.False(t, domain.TaskStatus("done").IsValid())
}

func TestTaskStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    domain.TaskStatus
		to      domain.TaskStatus
		allowed bool
	}{
		{domain.TaskStatusPending, domain.TaskStatusPending, true},
		{domain.TaskStatusPending, domain.TaskStatusInProgress, true},
		{domain.TaskStatusPending, domain.TaskStatusCompleted, true},
		{domain.TaskStatusInProgress, domain.TaskStatusPending, false},
		{domain.TaskStatusInProgress, domain.TaskStatusInProgress, true},
		{domain.TaskStatusInProgress, domain.TaskStatusCompleted, true},
		{domain.TaskStatusCompleted, domain.TaskStatusPending, false},
		{domain.TaskStatusCompleted, domain.TaskStatusInProgress, false},
		{domain.TaskStatusCompleted, domain.TaskStatusCompleted, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTaskStatus_NeedsReminder(t *testing.T) {
	assert.True(t, domain.TaskStatusPending.NeedsReminder())
	assert.True(t, domain.TaskStatusInProgress.NeedsReminder())
	assert.False(t, domain.TaskStatusCompleted.NeedsReminder())
}

func TestTask_IsAssignedTo(t *testing.T) {
	task := &domain.Task{AssigneeIDs: []string{"a", "b"}}

	assert.True(t, task.IsAssignedTo("a"))
	assert.True(t, task.IsAssignedTo("b"))
	assert.False(t, task.IsAssignedTo("c"))
	assert.False(t, (&domain.Task{}).IsAssignedTo("a"))
}

func TestIdentity_Actor(t *testing.T) {
	var nilIdentity *domain.Identity
	assert.Equal(t, "Anonymous", nilIdentity.Actor())
	assert.Equal(t, "Anonymous", (&domain.Identity{}).Actor())

	identity := &domain.Identity{User: &domain.User{Username: "alice"}}
	assert.Equal(t, "alice", identity.Actor())
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, domain.RoleManager.IsValid())
	assert.True(t, domain.RoleEmployee.IsValid())
	assert.False(t, domain.RoleNone.IsValid())
	assert.False(t, domain.Role("admin").IsValid())
}
