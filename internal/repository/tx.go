package repository

import (
	"context"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/ledger"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

// Tx - операции внутри транзакции перехода. Все изменения фиксируются вместе или откатываются вместе.
type Tx interface {
	ledger.Writer

	// LockReservation читает бронирование с блокировкой строки до конца транзакции.
	LockReservation(ctx context.Context, id int64) (*model.Reservation, error)
	// LockRoom читает номер с блокировкой строки. Блокировка номера сериализует переходы по номеру.
	LockRoom(ctx context.Context, id int64) (*model.Room, error)
	// ActiveStays возвращает бронирования номера в статусе CHECKED_IN без отметки о выезде.
	ActiveStays(ctx context.Context, roomID int64) ([]model.ActiveStay, error)

	ApplyCheckIn(ctx context.Context, reservationID int64, u model.CheckInUpdate) error
	ApplyCheckOut(ctx context.Context, reservationID int64, u model.CheckOutUpdate) error
	ApplyCancel(ctx context.Context, reservationID int64, u model.CancelUpdate) error
	SetRoomStatus(ctx context.Context, roomID int64, status model.RoomStatus) error
}

// TxFunc - единица работы перехода.
type TxFunc func(ctx context.Context, tx Tx) error

// RoomMismatch описывает расхождение статуса номера с бронированиями.
type RoomMismatch struct {
	RoomID        int64
	RoomNumber    string
	RoomStatus    model.RoomStatus
	ActiveStays   int
	ReservationID *int64
}
