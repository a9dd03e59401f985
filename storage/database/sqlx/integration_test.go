//go:build integration

package sqlxrepos_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mssql"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/payment"
	"github.com/trezcool/edutrack/core/setting"
	"github.com/trezcool/edutrack/core/staff"
	"github.com/trezcool/edutrack/core/user"
	logsvc "github.com/trezcool/edutrack/services/logger"
	"github.com/trezcool/edutrack/storage/database"
	sqlxrepos "github.com/trezcool/edutrack/storage/database/sqlx"
)

const (
	mssqlImage    = "mcr.microsoft.com/mssql/server:2022-CU14-ubuntu-22.04"
	mssqlPassword = "Sup3r-Secret!"
)

type repositorySuite struct {
	suite.Suite

	ctx       context.Context
	container *mssql.MSSQLServerContainer
	conf      *core.Config
	db        *sqlx.DB

	enrollmentID int
	studentID    int
}

func TestRepositories(t *testing.T) {
	suite.Run(t, new(repositorySuite))
}

func (s *repositorySuite) SetupSuite() {
	s.ctx = context.Background()

	ctr, err := mssql.Run(s.ctx, mssqlImage, mssql.WithAcceptEULA(), mssql.WithPassword(mssqlPassword))
	s.Require().NoError(err)
	s.container = ctr

	host, err := ctr.Host(s.ctx)
	s.Require().NoError(err)
	port, err := ctr.MappedPort(s.ctx, "1433/tcp")
	s.Require().NoError(err)

	s.conf = core.NewTestConfig()
	s.conf.Database.Host = host
	s.conf.Database.Port = port.Int()
	s.conf.Database.Name = "EduTrackTest"
	s.conf.Database.User = "edutrack"
	s.conf.Database.Password = "Edu-Track-Pwd1"
	s.conf.Database.AdminUser = "sa"
	s.conf.Database.AdminPassword = mssqlPassword
	s.conf.Database.Encrypt = "disable"
	s.conf.Database.TrustServerCertificate = true

	s.Require().NoError(database.CreateIfNotExist(s.conf))
	s.db, err = database.Open(s.conf)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(s.db))

	s.seed()
}

func (s *repositorySuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *repositorySuite) seed() {
	usrRepo := sqlxrepos.NewUserRepository(s.db)
	now := time.Now().UTC()

	usr := user.User{Name: "Budi Santoso", Email: "budi@edutrack.test", Role: user.RoleStudent, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.Require().NoError(usr.SetPassword("Passw0rd!"))
	usr, err := usrRepo.CreateUser(s.ctx, usr)
	s.Require().NoError(err)

	s.Require().NoError(s.db.GetContext(s.ctx, &s.studentID,
		`INSERT INTO students (user_id, student_code) OUTPUT INSERTED.student_id VALUES (@p1, 'STU-001')`, usr.ID))
	var classID int
	s.Require().NoError(s.db.GetContext(s.ctx, &classID,
		`INSERT INTO classes (class_name) OUTPUT INSERTED.class_id VALUES ('X-A')`))
	s.Require().NoError(s.db.GetContext(s.ctx, &s.enrollmentID,
		`INSERT INTO enrollments (student_id, class_id) OUTPUT INSERTED.enrollment_id VALUES (@p1, @p2)`, s.studentID, classID))

	stf := user.User{Name: "Siti Rahma", Email: "siti@edutrack.test", Role: user.RoleStaff, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.Require().NoError(stf.SetPassword("Passw0rd!"))
	stf, err = usrRepo.CreateUser(s.ctx, stf)
	s.Require().NoError(err)
	_, err = s.db.ExecContext(s.ctx,
		`INSERT INTO staff (user_id, staff_code, department, position) VALUES (@p1, 'STF-001', 'Finance', 'Cashier')`, stf.ID)
	s.Require().NoError(err)
}

func (s *repositorySuite) TestUsers() {
	repo := sqlxrepos.NewUserRepository(s.db)

	usr, err := repo.GetUserByEmail(s.ctx, "budi@edutrack.test")
	s.Require().NoError(err)
	s.Equal("Budi Santoso", usr.Name)

	s.Equal(user.ErrEmailExists, repo.CheckEmailUniqueness(s.ctx, usr.Email))
	s.NoError(repo.CheckEmailUniqueness(s.ctx, usr.Email, usr.ID))

	s.Require().NoError(repo.SetLastLogin(s.ctx, usr.ID, time.Now().UTC()))
	usr, err = repo.GetUserByID(s.ctx, usr.ID)
	s.Require().NoError(err)
	s.True(usr.LastLogin.Valid)

	_, err = repo.GetUserByID(s.ctx, 999999)
	s.True(core.IsNotFound(err))
}

func (s *repositorySuite) TestPayments() {
	repo := sqlxrepos.NewPaymentRepository(s.db)
	now := time.Now().UTC()

	var ids []int
	for i, amt := range []string{"4500000.00", "1250000.50", "300000.00"} {
		pmt, err := repo.CreatePayment(s.ctx, payment.Payment{
			EnrollmentID: s.enrollmentID,
			Amount:       payment.MustMoney(amt),
			PaymentDate:  time.Date(2023, 7, 10+i, 0, 0, 0, 0, time.UTC),
			Method:       payment.MethodCash,
			Status:       payment.StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		s.Require().NoError(err)
		s.Equal(payment.FormatCode(now.Year(), pmt.ID), pmt.Code)
		s.Equal("Budi Santoso", pmt.StudentName.String)
		s.Equal("X-A", pmt.ClassName.String)
		ids = append(ids, pmt.ID)
	}

	_, err := repo.CreatePayment(s.ctx, payment.Payment{EnrollmentID: 999999, Amount: payment.MustMoney("1"), CreatedAt: now})
	s.Equal(payment.ErrEnrollmentNotFound, err)

	filter := payment.QueryFilter{StudentID: s.studentID, Limit: 2}
	page, err := repo.QueryPayments(s.ctx, filter)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(ids[2], page[0].ID) // latest payment date first
	total, err := repo.CountPayments(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(3, total)

	filter = payment.QueryFilter{
		DateFrom: time.Date(2023, 7, 11, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2023, 7, 11, 0, 0, 0, 0, time.UTC),
		Limit:    10,
	}
	page, err = repo.QueryPayments(s.ctx, filter)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("1250000.50", page[0].Amount.String())

	pmt, err := repo.UpdatePaymentStatus(s.ctx, ids[0], payment.StatusPending, payment.StatusCompleted, null.StringFrom("RCP-1"))
	s.Require().NoError(err)
	s.Equal(payment.StatusCompleted, pmt.Status)
	s.Equal("RCP-1", pmt.ReceiptNumber.String)

	_, err = repo.UpdatePaymentStatus(s.ctx, ids[0], payment.StatusPending, payment.StatusFailed, null.String{})
	s.Equal(payment.ErrInvalidTransition, err)
	_, err = repo.UpdatePaymentStatus(s.ctx, 999999, payment.StatusPending, payment.StatusFailed, null.String{})
	s.True(core.IsNotFound(err))

	sum, err := repo.GetSummary(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, sum.TotalPayments)
	s.Equal(1, sum.CompletedCount)
	s.Equal(2, sum.PendingCount)
	s.Equal("4500000.00", sum.TotalRevenue.String())
	s.Equal("1550000.50", sum.PendingAmount.String())
}

func (s *repositorySuite) TestSettings() {
	repo := sqlxrepos.NewSettingRepository(s.db)
	s.Require().NoError(repo.EnsureTable(s.ctx))
	s.Require().NoError(repo.EnsureTable(s.ctx)) // idempotent

	now := time.Now().UTC()
	s.Require().NoError(repo.UpsertSettings(s.ctx, []setting.Setting{
		{Category: "GENERAL", Key: "schoolName", Value: setting.StringValue("SMA 1"), UpdatedAt: now},
		{Category: "SECURITY", Key: "sessionTimeout", Value: setting.MustValueOf(45), UpdatedAt: now},
		{Category: "SECURITY", Key: "twoFactor", Value: setting.MustValueOf(true), UpdatedAt: now},
	}))
	s.Require().NoError(repo.UpsertSettings(s.ctx, []setting.Setting{
		{Category: "GENERAL", Key: "schoolName", Value: setting.StringValue("SMA 2"), UpdatedAt: now},
	}))

	settings, err := repo.QuerySettingsByCategory(s.ctx, "SECURITY")
	s.Require().NoError(err)
	s.Require().Len(settings, 2)
	s.Equal(setting.KindNumber, settings[0].Value.Kind())
	s.Equal(setting.KindBool, settings[1].Value.Kind())

	settings, err = repo.QuerySettings(s.ctx)
	s.Require().NoError(err)
	s.Len(settings, 3)
	s.Equal(`"SMA 2"`, mustJSON(s.T(), settings[0].Value))

	// legacy rows carry no value type
	_, err = s.db.ExecContext(s.ctx,
		`INSERT INTO system_settings (category, setting_key, setting_value) VALUES ('EMAIL', 'smtpPort', '587'), ('EMAIL', 'fromName', 'EduTrack')`)
	s.Require().NoError(err)
	settings, err = repo.QuerySettingsByCategory(s.ctx, "EMAIL")
	s.Require().NoError(err)
	s.Require().Len(settings, 2)
	s.Equal(setting.KindString, settings[0].Value.Kind()) // fromName
	s.Equal(setting.KindNumber, settings[1].Value.Kind()) // smtpPort
}

func (s *repositorySuite) TestStaff() {
	repo := sqlxrepos.NewStaffRepository(s.db)

	members, err := repo.QueryStaff(s.ctx, staff.QueryFilter{Search: "siti"})
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal("STF-001", members[0].Code)
	s.Equal("Finance", members[0].Department.String)

	members, err = repo.QueryStaff(s.ctx, staff.QueryFilter{Search: "100%"})
	s.Require().NoError(err)
	s.Empty(members)

	member, err := repo.GetStaffByID(s.ctx, firstStaffID(s.T(), repo))
	s.Require().NoError(err)
	s.Equal("siti@edutrack.test", member.Email)

	_, err = repo.GetStaffByID(s.ctx, 999999)
	s.True(core.IsNotFound(err))
}

func (s *repositorySuite) TestBackupEngine() {
	eng := database.NewBackupEngine(s.db, s.conf, logsvc.NewDiscardLogger())
	path := "/var/opt/mssql/data/edutrack_it_" + strconv.FormatInt(time.Now().Unix(), 10) + ".bak"

	s.Require().NoError(eng.Backup(s.ctx, path, "it backup", "integration test"))
	s.Require().NoError(eng.Restore(s.ctx, path))

	// back in multi-user mode
	s.Require().NoError(s.db.PingContext(s.ctx))
	var mode string
	s.Require().NoError(s.db.GetContext(s.ctx, &mode,
		`SELECT user_access_desc FROM sys.databases WHERE name = @p1`, s.conf.Database.Name))
	s.Equal("MULTI_USER", mode)

	s.Error(eng.Restore(s.ctx, "/var/opt/mssql/data/missing.bak"))
	s.Require().NoError(s.db.GetContext(s.ctx, &mode,
		`SELECT user_access_desc FROM sys.databases WHERE name = @p1`, s.conf.Database.Name))
	s.Equal("MULTI_USER", mode)
}

func firstStaffID(t *testing.T, repo staff.Repository) int {
	members, err := repo.QueryStaff(context.Background(), staff.QueryFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, members)
	return members[0].ID
}

func mustJSON(t *testing.T, v setting.Value) string {
	data, err := v.MarshalJSON()
	assert.NoError(t, err)
	return string(data)
}
