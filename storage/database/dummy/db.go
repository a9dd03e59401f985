package dummydb

import (
	"sync"

	"github.com/trezcool/edutrack/core/payment"
	"github.com/trezcool/edutrack/core/setting"
	"github.com/trezcool/edutrack/core/staff"
	"github.com/trezcool/edutrack/core/user"
)

type (
	// DB is an in-memory stand in for the SQL Server database.
	DB struct {
		user    *userTable
		payment *paymentTable
		setting *settingTable
		staff   *staffTable
	}

	userTable struct {
		sync.RWMutex
		pk    int
		table map[int]*user.User
	}

	// Enrollment carries the joined fields payments read from enrollments, students & classes.
	Enrollment struct {
		ID          int
		StudentID   int
		StudentCode string
		StudentName string
		ClassID     int
		ClassName   string
	}

	paymentTable struct {
		sync.RWMutex
		pk          int
		table       map[int]*payment.Payment
		enrollments map[int]Enrollment
	}

	settingTable struct {
		sync.RWMutex
		created bool
		table   map[string]setting.Setting // by CATEGORY.key
	}

	staffTable struct {
		sync.RWMutex
		table map[int]staff.Staff
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[int]*user.User)},
		payment: &paymentTable{
			table:       make(map[int]*payment.Payment),
			enrollments: make(map[int]Enrollment),
		},
		setting: &settingTable{table: make(map[string]setting.Setting)},
		staff:   &staffTable{table: make(map[int]staff.Staff)},
	}
}

func (db *DB) AddEnrollment(e Enrollment) {
	db.payment.Lock()
	defer db.payment.Unlock()
	db.payment.enrollments[e.ID] = e
}

func (db *DB) AddStaff(members ...staff.Staff) {
	db.staff.Lock()
	defer db.staff.Unlock()
	for _, m := range members {
		db.staff.table[m.ID] = m
	}
}

// SettingsTableCreated reports whether EnsureTable ran.
func (db *DB) SettingsTableCreated() bool {
	db.setting.RLock()
	defer db.setting.RUnlock()
	return db.setting.created
}
