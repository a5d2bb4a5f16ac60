package employee

import (
	"context"
)

// EmployeeRepository defines data access methods for the roster.
type EmployeeRepository interface {
	Create(ctx context.Context, emp Employee) (Employee, error)
	GetByID(ctx context.Context, id string) (Employee, error)
	GetByCode(ctx context.Context, employeeCode string) (Employee, error)
	Update(ctx context.Context, emp Employee) error
	List(ctx context.Context, filter EmployeeFilter) ([]Employee, int64, error)
}
