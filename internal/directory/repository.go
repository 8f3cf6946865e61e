package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/internal/workflow"
)

// Repository resolves department membership. It implements
// workflow.Directory for actor resolution.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListUsersInDepartment returns the user IDs of a department's members. An
// unknown department yields an empty list, not an error.
func (r *Repository) ListUsersInDepartment(ctx context.Context, departmentID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&DepartmentMember{}).
		Where("department_id = ?", departmentID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// GetDepartment returns a department by ID.
func (r *Repository) GetDepartment(ctx context.Context, id string) (*Department, error) {
	var dept Department
	err := r.db.WithContext(ctx).First(&dept, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dept, nil
}
