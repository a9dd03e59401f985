package staff

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
)

var ErrNotFound = errors.WithMessage(core.ErrNotFound, "staff")

type (
	Repository interface {
		// QueryStaff returns the staff matching filter ordered by name.
		QueryStaff(ctx context.Context, filter QueryFilter) ([]Staff, error)
		GetStaffByID(ctx context.Context, id int) (Staff, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Staff, error) {
	members, err := svc.repo.QueryStaff(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying staff")
	}
	if members == nil {
		members = []Staff{}
	}
	return members, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Staff, error) {
	return svc.repo.GetStaffByID(ctx, id)
}
