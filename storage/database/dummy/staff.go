package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/edutrack/core/staff"
)

type staffRepository struct {
	db *staffTable
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) staff.Repository {
	return &staffRepository{db: db.staff}
}

func (repo *staffRepository) QueryStaff(_ context.Context, filter staff.QueryFilter) ([]staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	members := make([]staff.Staff, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.FullName), search) &&
			!strings.Contains(strings.ToLower(m.Email), search) &&
			!strings.Contains(strings.ToLower(m.Code), search) {
			continue
		}
		if filter.Department != "" && !strings.EqualFold(m.Department.String, filter.Department) {
			continue
		}
		if filter.IsActive != nil && m.IsActive != *filter.IsActive {
			continue
		}
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].FullName != members[j].FullName {
			return members[i].FullName < members[j].FullName
		}
		return members[i].ID < members[j].ID
	})
	return members, nil
}

func (repo *staffRepository) GetStaffByID(_ context.Context, id int) (staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return m, nil
	}
	return staff.Staff{}, staff.ErrNotFound
}
