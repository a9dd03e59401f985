package staff

import (
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edutrack/core"
)

// Staff is a non-teaching employee, joined with its user account.
type Staff struct {
	ID         int         `db:"staff_id" json:"staff_id"`
	UserID     int         `db:"user_id" json:"user_id"`
	Code       string      `db:"staff_code" json:"staff_code"`
	FullName   string      `db:"full_name" json:"full_name"`
	Email      string      `db:"email" json:"email"`
	Phone      null.String `db:"phone" json:"phone"`
	Position   null.String `db:"position" json:"position"`
	Department null.String `db:"department" json:"department"`
	HireDate   null.Time   `db:"hire_date" json:"hire_date"`
	IsActive   bool        `db:"is_active" json:"is_active"`
}

// QueryFilter applies an AND operation on all its set fields.
// Search does a case-insensitive match on one of FullName, Email or Code.
type QueryFilter struct {
	Search     string
	Department string
	IsActive   *bool
}

func ParseQueryFilter(get func(string) string) (QueryFilter, error) {
	qf := QueryFilter{
		Search:     core.CleanString(get("search")),
		Department: core.CleanString(get("department")),
	}
	if raw := core.CleanString(get("is_active")); raw != "" {
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return QueryFilter{}, core.NewFieldError("is_active", "must be a boolean")
		}
		qf.IsActive = &b
	}
	return qf, nil
}
