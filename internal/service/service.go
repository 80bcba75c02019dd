// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task-storage operations.
// All storage calls go through this interface; callers never import the
// HTTP backend directly. Every call is scoped to ownerID, and the backend
// attaches the caller's bridged credential.
type Service interface {
	// List returns one page of the owner's tasks in server order.
	List(ctx context.Context, ownerID string, opts ListOptions) (ListResult, error)

	// Get returns a single task. Fails with KindNotFound if the task is
	// absent or not owned by ownerID.
	Get(ctx context.Context, ownerID, taskID string) (Task, error)

	// Create creates a task. The server assigns ID and timestamps and
	// starts it not completed.
	Create(ctx context.Context, ownerID string, in CreateInput) (Task, error)

	// Update changes only the provided fields.
	Update(ctx context.Context, ownerID, taskID string, in UpdateInput) (Task, error)

	// Toggle flips the completed flag. Two calls in a row restore it.
	Toggle(ctx context.Context, ownerID, taskID string) (Task, error)

	// Delete removes a task. A second delete fails with KindNotFound.
	Delete(ctx context.Context, ownerID, taskID string) error
}
