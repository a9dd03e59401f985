// Package sqlxrepos implements the repositories on SQL Server with jmoiron/sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

var errNoRowsAffected = errors.New("no rows affected")

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return errNoRowsAffected
	}
	return nil
}

// notFoundOr replaces errNoRowsAffected with notFound.
func notFoundOr(err, notFound error) error {
	if err == errNoRowsAffected {
		return notFound
	}
	return err
}

// where accumulates AND-ed conditions along with their `?` args.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// escapeLike escapes the LIKE wildcards of s; the pattern must use ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `[`, `\[`).Replace(s)
}
