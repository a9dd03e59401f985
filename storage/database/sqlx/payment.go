package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/payment"
)

const (
	paymentColumns = `p.payment_id, p.payment_code, p.enrollment_id, p.amount, p.payment_date, p.payment_method,
		p.status, p.receipt_number, p.description, p.payment_details, p.created_by, p.created_at, p.updated_at,
		s.student_id, s.student_code, su.full_name AS student_name, c.class_id, c.class_name`

	paymentFrom = ` FROM payments p
		INNER JOIN enrollments e ON e.enrollment_id = p.enrollment_id
		LEFT JOIN students s ON s.student_id = e.student_id
		LEFT JOIN users su ON su.user_id = s.user_id
		LEFT JOIN classes c ON c.class_id = e.class_id`

	paymentOrder = ` ORDER BY p.payment_date DESC, p.created_at DESC, p.payment_id DESC`

	dateLayout = "2006-01-02"
)

type paymentRepository struct {
	db core.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db core.DB) payment.Repository {
	return &paymentRepository{db: db}
}

// filterWhere builds the clause shared by the page & count queries.
func filterWhere(filter payment.QueryFilter) *where {
	w := new(where)
	if filter.Status != "" {
		w.add(`p.status = ?`, string(filter.Status))
	}
	if filter.Method != "" {
		w.add(`p.payment_method = ?`, string(filter.Method))
	}
	if filter.StudentID > 0 {
		w.add(`e.student_id = ?`, filter.StudentID)
	}
	if !filter.DateFrom.IsZero() {
		w.add(`p.payment_date >= CAST(? AS DATE)`, filter.DateFrom.Format(dateLayout))
	}
	if !filter.DateTo.IsZero() {
		w.add(`p.payment_date <= CAST(? AS DATE)`, filter.DateTo.Format(dateLayout))
	}
	return w
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	w := filterWhere(filter)
	q := `SELECT ` + paymentColumns + paymentFrom + w.String() + paymentOrder + ` OFFSET ? ROWS FETCH NEXT ? ROWS ONLY`
	args := append(w.args, filter.Offset, filter.Limit)

	pmts := make([]payment.Payment, 0)
	if err := repo.db.SelectContext(ctx, &pmts, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting payments")
	}
	return pmts, nil
}

func (repo *paymentRepository) CountPayments(ctx context.Context, filter payment.QueryFilter) (int, error) {
	w := filterWhere(filter)
	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*)`+paymentFrom+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting payments")
	}
	return total, nil
}

func getPayment(ctx context.Context, db core.DBExecutor, id int) (payment.Payment, error) {
	var pmt payment.Payment
	q := `SELECT ` + paymentColumns + paymentFrom + ` WHERE p.payment_id = ?`
	if err := db.GetContext(ctx, &pmt, db.Rebind(q), id); err != nil {
		if err == sql.ErrNoRows {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "selecting payment")
	}
	return pmt, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id int) (payment.Payment, error) {
	return getPayment(ctx, repo.db, id)
}

func (repo *paymentRepository) GetSummary(ctx context.Context) (payment.Summary, error) {
	q := `SELECT
			COUNT(*) AS total_payments,
			COUNT(CASE WHEN status = 'COMPLETED' THEN 1 END) AS completed_count,
			COUNT(CASE WHEN status = 'PENDING' THEN 1 END) AS pending_count,
			COUNT(CASE WHEN status = 'FAILED' THEN 1 END) AS failed_count,
			COUNT(CASE WHEN status = 'REFUNDED' THEN 1 END) AS refunded_count,
			COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN amount END), 0) AS total_revenue,
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN amount END), 0) AS pending_amount,
			COALESCE(SUM(CASE WHEN status = 'REFUNDED' THEN amount END), 0) AS refunded_amount,
			COALESCE(AVG(CASE WHEN status = 'COMPLETED' THEN amount END), 0) AS average_payment
		FROM payments`

	var sum payment.Summary
	if err := repo.db.GetContext(ctx, &sum, q); err != nil {
		return payment.Summary{}, errors.Wrap(err, "summarizing payments")
	}
	return sum, nil
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	var created payment.Payment
	err := core.WithTx(ctx, repo.db, func(tx core.DBTransactor) error {
		var found int
		err := tx.GetContext(ctx, &found, tx.Rebind(`SELECT COUNT(*) FROM enrollments WHERE enrollment_id = ?`), pmt.EnrollmentID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if found == 0 {
			return payment.ErrEnrollmentNotFound
		}

		// the code derives from the ID: insert under a unique placeholder, then set it
		q := `INSERT INTO payments (payment_code, enrollment_id, amount, payment_date, payment_method, status,
				receipt_number, description, payment_details, created_by, created_at, updated_at)
			OUTPUT INSERTED.payment_id
			VALUES ('TMP-' + CONVERT(VARCHAR(36), NEWID()), ?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?)`
		var id int
		err = tx.GetContext(ctx, &id, tx.Rebind(q),
			pmt.EnrollmentID, pmt.Amount, pmt.PaymentDate.Format(dateLayout), string(pmt.Method), string(pmt.Status),
			pmt.ReceiptNumber, pmt.Description, pmt.PaymentDetails, pmt.CreatedBy, pmt.CreatedAt, pmt.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "inserting payment")
		}

		code := payment.FormatCode(pmt.CreatedAt.Year(), id)
		if _, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE payments SET payment_code = ? WHERE payment_id = ?`), code, id); err != nil {
			return errors.Wrap(err, "setting payment code")
		}

		created, err = getPayment(ctx, tx, id)
		return err
	})
	if err != nil {
		return payment.Payment{}, err
	}
	return created, nil
}

func (repo *paymentRepository) UpdatePaymentStatus(
	ctx context.Context, id int, from, to payment.Status, receipt null.String,
) (payment.Payment, error) {
	q := `UPDATE payments
		SET status = ?, receipt_number = COALESCE(?, receipt_number), updated_at = SYSUTCDATETIME()
		WHERE payment_id = ? AND status = ?`
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), string(to), receipt, id, string(from))
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment status")
	}
	if err = expectAffected(res); err != nil {
		if err != errNoRowsAffected {
			return payment.Payment{}, err
		}
		// either gone or moved by a concurrent update
		if _, gErr := getPayment(ctx, repo.db, id); gErr != nil {
			return payment.Payment{}, gErr
		}
		return payment.Payment{}, payment.ErrInvalidTransition
	}
	return getPayment(ctx, repo.db, id)
}
