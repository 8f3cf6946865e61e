package workflow

import (
	"context"
	"sort"
)

// DocumentContext carries the document fields actor resolution needs.
type DocumentContext struct {
	DepartmentID string
}

// ActorResolver computes which users may act on a document at a stage.
type ActorResolver struct {
	directory Directory
}

func NewActorResolver(directory Directory) *ActorResolver {
	return &ActorResolver{directory: directory}
}

// ResolveActors returns the user IDs permitted to act next. Explicitly
// assigned users are always included; when the stage grants department-wide
// access the document department's members are unioned in. The result is
// deduplicated and sorted.
func (r *ActorResolver) ResolveActors(ctx context.Context, stage *Stage, docCtx DocumentContext) ([]string, error) {
	ids := make([]string, 0, len(stage.AssignedUsers))
	ids = append(ids, stage.AssignedUsers...)

	switch stage.CreatorAccess {
	case ExplicitUsers:
		// assigned users only
	case DepartmentWide:
		members, err := r.directory.ListUsersInDepartment(ctx, docCtx.DepartmentID)
		if err != nil {
			return nil, &DependencyError{Op: "list users in department", Err: err}
		}
		ids = append(ids, members...)
	}

	return distinct(ids), nil
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
