package payment

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edutrack/core"
)

type Method string

const (
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodCash         Method = "CASH"
	MethodEWallet      Method = "E_WALLET"
	MethodCreditCard   Method = "CREDIT_CARD"
)

var Methods = []Method{MethodBankTransfer, MethodCash, MethodEWallet, MethodCreditCard}

func (m Method) Valid() bool {
	for _, v := range Methods {
		if m == v {
			return true
		}
	}
	return false
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Payment struct {
	ID             int         `db:"payment_id" json:"payment_id"`
	Code           string      `db:"payment_code" json:"payment_code"`
	EnrollmentID   int         `db:"enrollment_id" json:"enrollment_id"`
	Amount         Money       `db:"amount" json:"amount"`
	PaymentDate    time.Time   `db:"payment_date" json:"payment_date"`
	Method         Method      `db:"payment_method" json:"payment_method"`
	Status         Status      `db:"status" json:"status"`
	ReceiptNumber  null.String `db:"receipt_number" json:"receipt_number"`
	Description    null.String `db:"description" json:"description"`
	PaymentDetails null.String `db:"payment_details" json:"payment_details"`
	CreatedBy      null.Int    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`

	// joined from enrollment -> student -> user & enrollment -> class
	StudentID   null.Int    `db:"student_id" json:"student_id"`
	StudentCode null.String `db:"student_code" json:"student_code"`
	StudentName null.String `db:"student_name" json:"student_name"`
	ClassID     null.Int    `db:"class_id" json:"class_id"`
	ClassName   null.String `db:"class_name" json:"class_name"`
}

// Summary holds the aggregate figures of all payments.
type Summary struct {
	TotalPayments  int   `db:"total_payments" json:"total_payments"`
	CompletedCount int   `db:"completed_count" json:"completed_count"`
	PendingCount   int   `db:"pending_count" json:"pending_count"`
	FailedCount    int   `db:"failed_count" json:"failed_count"`
	RefundedCount  int   `db:"refunded_count" json:"refunded_count"`
	TotalRevenue   Money `db:"total_revenue" json:"total_revenue"`
	PendingAmount  Money `db:"pending_amount" json:"pending_amount"`
	RefundedAmount Money `db:"refunded_amount" json:"refunded_amount"`
	AveragePayment Money `db:"average_payment" json:"average_payment"`
}

// Pagination describes a page of results; HasMore is true when rows remain past this page.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

func NewPagination(total, limit, offset, pageLen int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+pageLen < total,
	}
}

// QueryFilter applies an AND operation on all its set fields.
type QueryFilter struct {
	Status    Status
	Method    Method
	StudentID int
	DateFrom  time.Time // inclusive
	DateTo    time.Time // inclusive
	Limit     int
	Offset    int
}

// Clean applies the paging defaults & bounds.
func (qf *QueryFilter) Clean() {
	if qf.Limit <= 0 {
		qf.Limit = DefaultLimit
	} else if qf.Limit > MaxLimit {
		qf.Limit = MaxLimit
	}
	if qf.Offset < 0 {
		qf.Offset = 0
	}
}

// ParseQueryFilter builds a QueryFilter out of raw query params, reporting every invalid one.
func ParseQueryFilter(get func(string) string) (QueryFilter, error) {
	var (
		qf   QueryFilter
		errs []core.FieldError
	)
	parseInt := func(name string) int {
		raw := core.CleanString(get(name))
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, core.FieldError{Field: name, Error: "must be a positive integer"})
		}
		return n
	}
	parseDate := func(name string) time.Time {
		raw := core.CleanString(get(name))
		if raw == "" {
			return time.Time{}
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			errs = append(errs, core.FieldError{Field: name, Error: "must be a date formatted as YYYY-MM-DD"})
		}
		return d
	}

	if s := Status(core.CleanString(get("status"))); s != "" {
		if !s.Valid() {
			errs = append(errs, core.FieldError{Field: "status", Error: "invalid payment status"})
		}
		qf.Status = s
	}
	if m := Method(core.CleanString(get("payment_method"))); m != "" {
		if !m.Valid() {
			errs = append(errs, core.FieldError{Field: "payment_method", Error: "invalid payment method"})
		}
		qf.Method = m
	}
	qf.StudentID = parseInt("student_id")
	qf.DateFrom = parseDate("date_from")
	qf.DateTo = parseDate("date_to")
	qf.Limit = parseInt("limit")
	qf.Offset = parseInt("offset")

	if !qf.DateFrom.IsZero() && !qf.DateTo.IsZero() && qf.DateTo.Before(qf.DateFrom) {
		errs = append(errs, core.FieldError{Field: "date_to", Error: "must not be before date_from"})
	}
	if len(errs) > 0 {
		return QueryFilter{}, core.NewValidationError(nil, errs...)
	}
	qf.Clean()
	return qf, nil
}

// NewPayment contains information needed to record a new Payment.
type NewPayment struct {
	EnrollmentID   int    `json:"enrollment_id" validate:"required,gt=0"`
	Amount         Money  `json:"amount"`
	PaymentDate    string `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Method         Method `json:"payment_method" validate:"required,paymentmethod"`
	ReceiptNumber  string `json:"receipt_number" validate:"max=50"`
	Description    string `json:"description" validate:"max=500"`
	PaymentDetails string `json:"payment_details" validate:"max=2000"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.ReceiptNumber = core.CleanString(np.ReceiptNumber)
	np.Description = core.CleanString(np.Description)
	np.PaymentDetails = core.CleanString(np.PaymentDetails)
	if err := validate.Struct(np); err != nil {
		return err
	}
	if !np.Amount.IsPositive() {
		return core.NewFieldError("amount", "amount must be greater than 0")
	}
	if np.Amount.Exponent() < -2 && !np.Amount.Equal(NewMoney(np.Amount.Round(2))) {
		return core.NewFieldError("amount", "amount cannot have more than 2 decimal places")
	}
	if np.Amount.GreaterThan(maxMoney.Decimal) {
		return core.NewFieldError("amount", "amount cannot exceed "+maxMoney.String())
	}
	return nil
}

// StatusUpdate moves a Payment along its lifecycle.
type StatusUpdate struct {
	Status        Status `json:"status" validate:"required,paymentstatus"`
	ReceiptNumber string `json:"receipt_number" validate:"max=50"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.ReceiptNumber = core.CleanString(su.ReceiptNumber)
	return validate.Struct(su)
}
