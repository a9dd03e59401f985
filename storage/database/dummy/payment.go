package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edutrack/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) join(pmt payment.Payment) payment.Payment {
	if e, ok := repo.db.enrollments[pmt.EnrollmentID]; ok {
		pmt.StudentID = null.IntFrom(e.StudentID)
		pmt.StudentCode = null.StringFrom(e.StudentCode)
		pmt.StudentName = null.StringFrom(e.StudentName)
		pmt.ClassID = null.IntFrom(e.ClassID)
		pmt.ClassName = null.StringFrom(e.ClassName)
	}
	return pmt
}

func (repo *paymentRepository) filter(filter payment.QueryFilter) []payment.Payment {
	pmts := make([]payment.Payment, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		pmt := repo.join(*p)
		if filter.Status != "" && pmt.Status != filter.Status {
			continue
		}
		if filter.Method != "" && pmt.Method != filter.Method {
			continue
		}
		if filter.StudentID > 0 && pmt.StudentID.Int != filter.StudentID {
			continue
		}
		if !filter.DateFrom.IsZero() && pmt.PaymentDate.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && pmt.PaymentDate.After(filter.DateTo) {
			continue
		}
		pmts = append(pmts, pmt)
	}

	sort.Slice(pmts, func(i, j int) bool {
		a, b := pmts[i], pmts[j]
		if !a.PaymentDate.Equal(b.PaymentDate) {
			return a.PaymentDate.After(b.PaymentDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return pmts
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pmts := repo.filter(filter)
	if filter.Offset >= len(pmts) {
		return []payment.Payment{}, nil
	}
	pmts = pmts[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(pmts) {
		pmts = pmts[:filter.Limit]
	}
	return pmts, nil
}

func (repo *paymentRepository) CountPayments(_ context.Context, filter payment.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id int) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pmt, ok := repo.db.table[id]; ok {
		return repo.join(*pmt), nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) GetSummary(_ context.Context) (payment.Summary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sum payment.Summary
	for _, pmt := range repo.db.table {
		sum.TotalPayments++
		switch pmt.Status {
		case payment.StatusCompleted:
			sum.CompletedCount++
			sum.TotalRevenue = sum.TotalRevenue.Add(pmt.Amount)
		case payment.StatusPending:
			sum.PendingCount++
			sum.PendingAmount = sum.PendingAmount.Add(pmt.Amount)
		case payment.StatusFailed:
			sum.FailedCount++
		case payment.StatusRefunded:
			sum.RefundedCount++
			sum.RefundedAmount = sum.RefundedAmount.Add(pmt.Amount)
		}
	}
	if sum.CompletedCount > 0 {
		sum.AveragePayment = payment.NewMoney(sum.TotalRevenue.Div(decimal.NewFromInt(int64(sum.CompletedCount))))
	}
	return sum, nil
}

func (repo *paymentRepository) CreatePayment(_ context.Context, pmt payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[pmt.EnrollmentID]; !ok {
		return payment.Payment{}, payment.ErrEnrollmentNotFound
	}
	repo.db.pk++
	pmt.ID = repo.db.pk
	pmt.Code = payment.FormatCode(pmt.CreatedAt.Year(), pmt.ID)
	repo.db.table[pmt.ID] = &pmt
	return repo.join(pmt), nil
}

func (repo *paymentRepository) UpdatePaymentStatus(
	_ context.Context, id int, from, to payment.Status, receipt null.String,
) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt, ok := repo.db.table[id]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	if pmt.Status != from {
		return payment.Payment{}, payment.ErrInvalidTransition
	}
	pmt.Status = to
	if receipt.Valid {
		pmt.ReceiptNumber = receipt
	}
	pmt.UpdatedAt = time.Now().UTC()
	return repo.join(*pmt), nil
}
