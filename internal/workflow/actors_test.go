package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDirectory is a mock implementation of the Directory interface
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListUsersInDepartment(ctx context.Context, departmentID string) ([]string, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestResolveActorsExplicitUsers(t *testing.T) {
	dir := new(MockDirectory)
	resolver := NewActorResolver(dir)

	stage := &Stage{
		Name:          "manager_approval",
		AssignedUsers: []string{"mgr-2", "mgr-1", "mgr-2"},
		CreatorAccess: ExplicitUsers,
	}

	actors, err := resolver.ResolveActors(context.Background(), stage, DocumentContext{DepartmentID: "dept-1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"mgr-1", "mgr-2"}, actors)
	dir.AssertNotCalled(t, "ListUsersInDepartment", mock.Anything, mock.Anything)
}

func TestResolveActorsDepartmentWide(t *testing.T) {
	dir := new(MockDirectory)
	ctx := context.Background()
	dir.On("ListUsersInDepartment", ctx, "dept-1").Return([]string{"emp-3", "mgr-1", "emp-2"}, nil)

	resolver := NewActorResolver(dir)
	stage := &Stage{
		Name:          "department_review",
		AssignedUsers: []string{"mgr-1"},
		CreatorAccess: DepartmentWide,
	}

	actors, err := resolver.ResolveActors(ctx, stage, DocumentContext{DepartmentID: "dept-1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"emp-2", "emp-3", "mgr-1"}, actors, "union is deduplicated and sorted")
	dir.AssertExpectations(t)
}

func TestResolveActorsDirectoryFailure(t *testing.T) {
	dir := new(MockDirectory)
	ctx := context.Background()
	dir.On("ListUsersInDepartment", ctx, "dept-1").Return(nil, errors.New("connection refused"))

	resolver := NewActorResolver(dir)
	stage := &Stage{Name: "department_review", CreatorAccess: DepartmentWide}

	_, err := resolver.ResolveActors(ctx, stage, DocumentContext{DepartmentID: "dept-1"})

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "list users in department", depErr.Op)
}

func TestResolveActorsDropsEmptyIDs(t *testing.T) {
	dir := new(MockDirectory)
	resolver := NewActorResolver(dir)

	stage := &Stage{AssignedUsers: []string{"", "mgr-1"}, CreatorAccess: ExplicitUsers}

	actors, err := resolver.ResolveActors(context.Background(), stage, DocumentContext{})

	require.NoError(t, err)
	assert.Equal(t, []string{"mgr-1"}, actors)
}
