package payment

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edutrack/core"
)

var (
	// errors
	ErrNotFound           = errors.WithMessage(core.ErrNotFound, "payment")
	ErrInvalidTransition  = errors.New("invalid payment status transition")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	paymentMethodTag  = "paymentmethod"
	paymentMethodText = "invalid payment method"
	paymentStatusTag  = "paymentstatus"
	paymentStatusText = "invalid payment status"
)

type (
	Repository interface {
		// QueryPayments returns one page of the payments matching filter, newest first.
		QueryPayments(ctx context.Context, filter QueryFilter) ([]Payment, error)
		// CountPayments counts all the payments matching filter, ignoring paging.
		CountPayments(ctx context.Context, filter QueryFilter) (int, error)
		GetPaymentByID(ctx context.Context, id int) (Payment, error)
		GetSummary(ctx context.Context) (Summary, error)
		// CreatePayment stores pmt and assigns its ID & Code.
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		// UpdatePaymentStatus moves the payment from `from` to `to`; it fails with ErrInvalidTransition
		// if the stored status is no longer `from`.
		UpdatePaymentStatus(ctx context.Context, id int, from, to Status, receipt null.String) (Payment, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// InitValidators registers the payment validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(paymentMethodTag, func(fl validator.FieldLevel) bool {
		return Method(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, paymentMethodTag, paymentMethodText)

	_ = validate.RegisterValidation(paymentStatusTag, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, paymentStatusTag, paymentStatusText)
}

// FormatCode builds the human readable payment code out of its creation year & ID, e.g. PMT-23001.
func FormatCode(year, id int) string {
	return fmt.Sprintf("PMT-%02d%03d", year%100, id)
}

// Query returns the page of payments matching filter along with its pagination details.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Payment, Pagination, error) {
	filter.Clean()

	pmts, err := svc.repo.QueryPayments(ctx, filter)
	if err != nil {
		return nil, Pagination{}, errors.Wrap(err, "querying payments")
	}
	total, err := svc.repo.CountPayments(ctx, filter)
	if err != nil {
		return nil, Pagination{}, errors.Wrap(err, "counting payments")
	}
	if pmts == nil {
		pmts = []Payment{}
	}
	return pmts, NewPagination(total, filter.Limit, filter.Offset, len(pmts)), nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	sum, err := svc.repo.GetSummary(ctx)
	if err != nil {
		return Summary{}, errors.Wrap(err, "summarizing payments")
	}
	sum.AveragePayment = NewMoney(sum.AveragePayment.Round(2))
	return sum, nil
}

func (svc *Service) Create(ctx context.Context, np NewPayment, createdBy int) (Payment, error) {
	if err := np.Validate(svc.validate); err != nil {
		return Payment{}, err
	}
	date, err := core.ParseDate(np.PaymentDate)
	if err != nil {
		return Payment{}, core.NewFieldError("payment_date", "must be a date formatted as YYYY-MM-DD")
	}

	now := time.Now().UTC()
	pmt := Payment{
		EnrollmentID:   np.EnrollmentID,
		Amount:         np.Amount,
		PaymentDate:    date,
		Method:         np.Method,
		Status:         StatusPending,
		ReceiptNumber:  null.NewString(np.ReceiptNumber, np.ReceiptNumber != ""),
		Description:    null.NewString(np.Description, np.Description != ""),
		PaymentDetails: null.NewString(np.PaymentDetails, np.PaymentDetails != ""),
		CreatedBy:      null.NewInt(createdBy, createdBy > 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	pmt, err = svc.repo.CreatePayment(ctx, pmt)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return Payment{}, core.NewFieldError("enrollment_id", err.Error())
		}
		return Payment{}, errors.Wrap(err, "creating payment")
	}
	return pmt, nil
}

// UpdateStatus applies su on the payment if its current status allows it.
func (svc *Service) UpdateStatus(ctx context.Context, id int, su StatusUpdate) (Payment, error) {
	if err := su.Validate(svc.validate); err != nil {
		return Payment{}, err
	}
	pmt, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if !pmt.Status.CanTransitionTo(su.Status) {
		return Payment{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", pmt.Status, su.Status)
	}

	receipt := pmt.ReceiptNumber
	if su.ReceiptNumber != "" {
		receipt = null.StringFrom(su.ReceiptNumber)
	}
	pmt, err = svc.repo.UpdatePaymentStatus(ctx, id, pmt.Status, su.Status, receipt)
	if err != nil {
		if errors.Cause(err) == ErrInvalidTransition {
			return Payment{}, err
		}
		return Payment{}, errors.Wrap(err, "updating payment status")
	}
	return pmt, nil
}
