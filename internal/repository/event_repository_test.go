package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEventGetByIDForUpdateLocksRow(t *testing.T) {
	db, mock := openMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "marketing_events" WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).AddRow(7, "Summer Rewards 2024", "ACTIVE"))

	event, err := NewEventRepository(db).GetByIDForUpdate(7)
	if err != nil {
		t.Fatalf("get for update failed: %v", err)
	}
	if event == nil || event.ID != 7 || event.Status != "ACTIVE" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestEventGetByIDForUpdateZeroID(t *testing.T) {
	event, err := NewEventRepository(nil).GetByIDForUpdate(0)
	if err != nil || event != nil {
		t.Fatalf("zero id want nil,nil got %+v %v", event, err)
	}
}
