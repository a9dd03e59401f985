package echoapi

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core/payment"
	dummydb "github.com/trezcool/edutrack/storage/database/dummy"
	"github.com/trezcool/edutrack/tests"
)

func seedPayments(t *testing.T, ta *testApp) (p1, p2, p3 payment.Payment) {
	t.Helper()
	ta.db.AddEnrollment(dummydb.Enrollment{ID: 1, StudentID: 10, StudentCode: "STU-010", StudentName: "Budi", ClassID: 3, ClassName: "X-A"})
	ta.db.AddEnrollment(dummydb.Enrollment{ID: 2, StudentID: 11, StudentCode: "STU-011", StudentName: "Ani", ClassID: 4, ClassName: "X-B"})
	p1 = testutil.CreatePayment(t, ta.pmtRepo, 1, "4500000.00", "2023-07-01", payment.MethodBankTransfer, payment.StatusCompleted)
	p2 = testutil.CreatePayment(t, ta.pmtRepo, 2, "1250.50", "2023-07-03", payment.MethodCash, payment.StatusPending)
	p3 = testutil.CreatePayment(t, ta.pmtRepo, 1, "99.99", "2023-07-02", payment.MethodEWallet, payment.StatusFailed)
	return
}

func paymentsRes(pg payment.Pagination, pmts ...payment.Payment) PaymentsResponse {
	if pmts == nil {
		pmts = []payment.Payment{}
	}
	return PaymentsResponse{Success: true, Data: pmts, Pagination: pg}
}

func Test_paymentApi_query(t *testing.T) {
	ta := setup(t)
	adminToken, staffToken, teacherToken := ta.tokens(t)
	p1, p2, p3 := seedPayments(t, ta)
	limit := payment.DefaultLimit

	tests := []httpTest{
		{name: "auth required", path: "/api/payments", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "staff or admin required", path: "/api/payments", token: teacherToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{
			name: "all (admin)", path: "/api/payments", token: adminToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 3, Limit: limit}, p2, p3, p1)),
		},
		{
			name: "all (staff)", path: "/api/payments", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 3, Limit: limit}, p2, p3, p1)),
		},
		{
			name: "status", path: "/api/payments?status=COMPLETED", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 1, Limit: limit}, p1)),
		},
		{
			name: "method & student", path: "/api/payments?payment_method=E_WALLET&student_id=10", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 1, Limit: limit}, p3)),
		},
		{
			name: "date range", path: "/api/payments?date_from=2023-07-02&date_to=2023-07-03", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 2, Limit: limit}, p2, p3)),
		},
		{
			name: "paging", path: "/api/payments?limit=2", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 3, Limit: 2, HasMore: true}, p2, p3)),
		},
		{
			name: "last page", path: "/api/payments?limit=2&offset=2", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 3, Limit: 2, Offset: 2}, p1)),
		},
		{
			name: "past the end", path: "/api/payments?offset=10", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 3, Limit: limit, Offset: 10})),
		},
		{
			name: "limit clamped", path: "/api/payments?limit=5000", token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, paymentsRes(payment.Pagination{Total: 3, Limit: payment.MaxLimit}, p2, p3, p1)),
		},
		{
			name: "invalid filters", path: "/api/payments?status=PAID&date_from=01-07-2023&limit=-1", token: staffToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Message: "validation failed",
				Errors: map[string]string{
					"status":    "invalid payment status",
					"date_from": "must be a date formatted as YYYY-MM-DD",
					"limit":     "must be a positive integer",
				},
			}),
		},
	}
	runHTTPTests(t, ta, tests)
}

func Test_paymentApi_amountPrecision(t *testing.T) {
	ta := setup(t)
	_, staffToken, _ := ta.tokens(t)
	p1, _, _ := seedPayments(t, ta)

	req, rec := newAuthRequest(http.MethodGet, "/api/payments/"+strconv.Itoa(p1.ID), staffToken)
	ta.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":4500000.00`)
}

func Test_paymentApi_retrieve(t *testing.T) {
	ta := setup(t)
	_, staffToken, _ := ta.tokens(t)
	p1, _, _ := seedPayments(t, ta)
	notFound := marshalObj(t, httpErr{Message: "payment: not found"})

	runHTTPTests(t, ta, []httpTest{
		{
			name: "found", path: "/api/payments/" + strconv.Itoa(p1.ID), token: staffToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, newDataResponse(p1)),
		},
		{name: "unknown", path: "/api/payments/999", token: staffToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "malformed", path: "/api/payments/abc", token: staffToken, wantCode: http.StatusNotFound, wantData: notFound},
	})
}

func Test_paymentApi_summary(t *testing.T) {
	ta := setup(t)
	_, staffToken, _ := ta.tokens(t)
	seedPayments(t, ta)
	testutil.CreatePayment(t, ta.pmtRepo, 2, "0.01", "2023-07-04", payment.MethodCash, payment.StatusCompleted)

	want := payment.Summary{
		TotalPayments:  4,
		CompletedCount: 2,
		PendingCount:   1,
		FailedCount:    1,
		TotalRevenue:   payment.MustMoney("4500000.01"),
		PendingAmount:  payment.MustMoney("1250.50"),
		RefundedAmount: payment.MustMoney("0"),
		AveragePayment: payment.MustMoney("2250000.01"),
	}
	runHTTPTests(t, ta, []httpTest{
		{name: "summary", path: "/api/payments/stats/summary", token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, newDataResponse(want))},
	})
}

func Test_paymentApi_create(t *testing.T) {
	ta := setup(t)
	_, staffToken, _ := ta.tokens(t)
	seedPayments(t, ta)

	tests := []httpTest{
		{
			name: "invalid", method: http.MethodPost, path: "/api/payments", token: staffToken,
			body:     []byte(`{"enrollment_id": 1, "amount": 10, "payment_date": "2023/07/01", "payment_method": "CHEQUE"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "negative amount", method: http.MethodPost, path: "/api/payments", token: staffToken,
			body:     []byte(`{"enrollment_id": 1, "amount": -10, "payment_date": "2023-07-01", "payment_method": "CASH"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "validation failed", Errors: map[string]string{"amount": "amount must be greater than 0"}}),
		},
		{
			name: "amount out of range", method: http.MethodPost, path: "/api/payments", token: staffToken,
			body:     []byte(`{"enrollment_id": 1, "amount": 10000000000000000, "payment_date": "2023-07-01", "payment_method": "CASH"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "validation failed", Errors: map[string]string{"amount": "amount cannot exceed 9999999999999999.99"}}),
		},
		{
			name: "unknown enrollment", method: http.MethodPost, path: "/api/payments", token: staffToken,
			body:     []byte(`{"enrollment_id": 42, "amount": 10, "payment_date": "2023-07-01", "payment_method": "CASH"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "validation failed", Errors: map[string]string{"enrollment_id": "enrollment not found"}}),
		},
		{
			name: "malformed json", method: http.MethodPost, path: "/api/payments", token: staffToken,
			body: []byte(`{"enrollment_id": `), wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, ta, tests)

	t.Run("created", func(t *testing.T) {
		body := []byte(`{"enrollment_id": 2, "amount": "350000.50", "payment_date": "2023-08-15", "payment_method": "CREDIT_CARD", "description": " August "}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/payments", staffToken, body)
		ta.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res struct {
			Success bool            `json:"success"`
			Data    payment.Payment `json:"data"`
		}
		decodeBody(t, rec, &res)
		assert.True(t, res.Success)
		assert.Equal(t, payment.StatusPending, res.Data.Status)
		assert.Equal(t, payment.FormatCode(res.Data.CreatedAt.Year(), res.Data.ID), res.Data.Code)
		assert.True(t, payment.MustMoney("350000.50").Equal(res.Data.Amount))
		assert.Equal(t, "August", res.Data.Description.String)
		assert.Equal(t, "Ani", res.Data.StudentName.String)
		assert.True(t, res.Data.CreatedBy.Valid)
	})
}

func Test_paymentApi_updateStatus(t *testing.T) {
	ta := setup(t)
	_, staffToken, _ := ta.tokens(t)
	p1, p2, p3 := seedPayments(t, ta)
	path := func(p payment.Payment) string { return "/api/payments/" + strconv.Itoa(p.ID) + "/status" }

	tests := []httpTest{
		{
			name: "invalid status", method: http.MethodPatch, path: path(p2), token: staffToken,
			body: []byte(`{"status": "PAID"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "validation failed", Errors: map[string]string{"status": "invalid payment status"}}),
		},
		{
			name: "unknown payment", method: http.MethodPatch, path: "/api/payments/999/status", token: staffToken,
			body: []byte(`{"status": "COMPLETED"}`), wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Message: "payment: not found"}),
		},
		{
			name: "failed is final", method: http.MethodPatch, path: path(p3), token: staffToken,
			body: []byte(`{"status": "COMPLETED"}`), wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Message: "FAILED -> COMPLETED: invalid payment status transition"}),
		},
		{
			name: "pending cannot be refunded", method: http.MethodPatch, path: path(p2), token: staffToken,
			body: []byte(`{"status": "REFUNDED"}`), wantCode: http.StatusConflict,
		},
		{
			name: "completed to refunded", method: http.MethodPatch, path: path(p1), token: staffToken,
			body: []byte(`{"status": "REFUNDED"}`), wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, ta, tests)

	req, rec := newAuthRequest(http.MethodPatch, path(p2), staffToken, []byte(`{"status": "COMPLETED", "receipt_number": "RC-0042"}`))
	ta.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Data payment.Payment `json:"data"`
	}
	decodeBody(t, rec, &res)
	assert.Equal(t, payment.StatusCompleted, res.Data.Status)
	assert.Equal(t, "RC-0042", res.Data.ReceiptNumber.String)
}
