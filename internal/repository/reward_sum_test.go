package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock failed: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	if err != nil {
		t.Fatalf("open gorm failed: %v", err)
	}
	return db, mock
}

func TestRewardSumValueKeepsNumericPrecision(t *testing.T) {
	db, mock := openMockPostgres(t)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(value\), 0\) AS total FROM "rewards"`).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("12345678901234567.89"))

	sum, err := NewRewardRepository(db).SumValue(RewardAggregateFilter{})
	if err != nil {
		t.Fatalf("sum value failed: %v", err)
	}
	if sum.StringFixed(2) != "12345678901234567.89" {
		t.Fatalf("sum lost precision: %s", sum.StringFixed(2))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestRewardAggregateByStatusKeepsNumericPrecision(t *testing.T) {
	db, mock := openMockPostgres(t)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS total_count, COALESCE\(SUM\(value\), 0\) AS total_value FROM "rewards"`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_count", "total_value"}).
			AddRow("CLAIMED", 3, "9007199254740993.01"))

	rows, err := NewRewardRepository(db).AggregateByStatus(RewardAggregateFilter{})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Count != 3 || rows[0].Value.StringFixed(2) != "9007199254740993.01" {
		t.Fatalf("unexpected aggregate rows: %+v", rows)
	}
}
