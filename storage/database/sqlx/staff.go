package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/staff"
)

const staffQuery = `SELECT st.staff_id, st.user_id, st.staff_code, u.full_name, u.email, st.phone,
		st.position, st.department, st.hire_date, u.is_active
	FROM staff st
	INNER JOIN users u ON u.user_id = st.user_id`

type staffRepository struct {
	db core.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db core.DB) staff.Repository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) QueryStaff(ctx context.Context, filter staff.QueryFilter) ([]staff.Staff, error) {
	w := new(where)
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		w.add(`(u.full_name LIKE ? ESCAPE '\' OR u.email LIKE ? ESCAPE '\' OR st.staff_code LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)
	}
	if filter.Department != "" {
		w.add(`st.department = ?`, filter.Department)
	}
	if filter.IsActive != nil {
		w.add(`u.is_active = ?`, *filter.IsActive)
	}

	members := make([]staff.Staff, 0)
	q := staffQuery + w.String() + ` ORDER BY u.full_name, st.staff_id`
	if err := repo.db.SelectContext(ctx, &members, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting staff")
	}
	return members, nil
}

func (repo *staffRepository) GetStaffByID(ctx context.Context, id int) (staff.Staff, error) {
	var member staff.Staff
	if err := repo.db.GetContext(ctx, &member, repo.db.Rebind(staffQuery+` WHERE st.staff_id = ?`), id); err != nil {
		if err == sql.ErrNoRows {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "selecting staff")
	}
	return member, nil
}
