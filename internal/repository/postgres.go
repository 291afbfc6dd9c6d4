// Package repository содержит реализацию доступа к данным в PostgreSQL и в памяти.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultLockTimeout = 5 * time.Second

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool        *pgxpool.Pool
	txTimeout   time.Duration
	lockTimeout time.Duration
	retryDelays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
// txTimeout ограничивает длительность одной транзакции перехода, ноль - без ограничения.
func NewPostgresRepository(dsn string, txTimeout time.Duration) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:        pool,
		txTimeout:   txTimeout,
		lockTimeout: defaultLockTimeout,
		retryDelays: []time.Duration{50 * time.Millisecond, 150 * time.Millisecond, 300 * time.Millisecond},
	}
	if txTimeout > 0 && txTimeout < r.lockTimeout {
		r.lockTimeout = txTimeout
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при временных ошибках: конфликтах сериализации, взаимных блокировках,
// истечении ожидания блокировки и обрывах соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isTransient(err) || i == len(r.retryDelays) {
			return err
		}

		timer := time.NewTimer(r.retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return true
		}
		return false
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// mapError переводит ошибки драйвера в ошибки приложения. Уже типизированные ошибки возвращаются как есть.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrPrecondition),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrPersistence):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.LockNotAvailable,
			pgerrcode.UniqueViolation:
			return &apperr.ConflictError{Op: op, Err: err}
		}
	}

	return &apperr.PersistenceError{Op: op, Err: err}
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// InTx выполняет fn в одной транзакции READ COMMITTED. Временные сбои приводят к повтору fn целиком,
// поэтому fn не должна иметь побочных эффектов вне транзакции.
func (r *PostgresRepository) InTx(ctx context.Context, fn TxFunc) error {
	err := r.withRetry(ctx, func() error {
		return r.runTx(ctx, fn)
	})
	return mapError("transition", err)
}

func (r *PostgresRepository) runTx(ctx context.Context, fn TxFunc) error {
	if r.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.txTimeout)
		defer cancel()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

const reservationColumns = `id, booking_ref, customer_id, room_id, room_class_id,
	check_in_date, check_out_date, actual_check_in, actual_check_out,
	adults, children, infants,
	base_room_rate, room_charge, extra_charges, discount, service_charge, tax,
	total_amount, advance_paid, balance_due,
	payment_status, status, remarks, cancellation_reason, cancelled_at,
	created_at, updated_at`

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var (
		r                                               model.Reservation
		rate, roomCharge, extra, discount, service, tax int64
		total, advance, balance                         int64
		paymentStatus, status                           string
	)

	err := row.Scan(
		&r.ID, &r.BookingRef, &r.CustomerID, &r.RoomID, &r.RoomClassID,
		&r.CheckInDate, &r.CheckOutDate, &r.ActualCheckIn, &r.ActualCheckOut,
		&r.Adults, &r.Children, &r.Infants,
		&rate, &roomCharge, &extra, &discount, &service, &tax,
		&total, &advance, &balance,
		&paymentStatus, &status, &r.Remarks, &r.CancellationReason, &r.CancelledAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.BaseRoomRate = model.FromCents(rate)
	r.RoomCharge = model.FromCents(roomCharge)
	r.ExtraCharges = model.FromCents(extra)
	r.Discount = model.FromCents(discount)
	r.ServiceCharge = model.FromCents(service)
	r.Tax = model.FromCents(tax)
	r.TotalAmount = model.FromCents(total)
	r.AdvancePaid = model.FromCents(advance)
	r.BalanceDue = model.FromCents(balance)
	r.PaymentStatus = model.PaymentStatus(paymentStatus)
	r.Status = model.ReservationStatus(status)

	return &r, nil
}

// GetReservation возвращает бронирование без блокировки.
func (r *PostgresRepository) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := scanReservation(r.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: "reservation", ID: id}
		}
		return nil, mapError("get reservation", err)
	}
	return res, nil
}

// GetRoom возвращает номер без блокировки.
func (r *PostgresRepository) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var (
		room   model.Room
		status string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, number, status FROM rooms WHERE id = $1`, id).
		Scan(&room.ID, &room.Number, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: "room", ID: id}
		}
		return nil, mapError("get room", err)
	}
	room.Status = model.RoomStatus(status)
	return &room, nil
}

// GetCustomer возвращает клиента.
func (r *PostgresRepository) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := r.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, phone, identity_number FROM customers WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.IdentityNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: "customer", ID: id}
		}
		return nil, mapError("get customer", err)
	}
	return &c, nil
}

// LineItems возвращает дополнительные услуги бронирования из локальной таблицы.
func (r *PostgresRepository) LineItems(ctx context.Context, reservationID int64) ([]model.LineItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source, reference, description, amount
		 FROM ancillary_charges
		 WHERE reservation_id = $1
		 ORDER BY id`,
		reservationID,
	)
	if err != nil {
		return nil, mapError("select line items", err)
	}
	defer rows.Close()

	var items []model.LineItem
	for rows.Next() {
		var (
			item  model.LineItem
			cents int64
		)
		if err := rows.Scan(&item.Source, &item.Reference, &item.Description, &cents); err != nil {
			return nil, mapError("scan line item", err)
		}
		item.Amount = model.FromCents(cents)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("line items rows", err)
	}

	return items, nil
}

// GetLedger возвращает платежи, кассовые операции и инциденты бронирования.
func (r *PostgresRepository) GetLedger(ctx context.Context, reservationID int64) (*model.Ledger, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, reservationID,
	).Scan(&exists); err != nil {
		return nil, mapError("check reservation", err)
	}
	if !exists {
		return nil, &apperr.NotFoundError{Entity: "reservation", ID: reservationID}
	}

	var (
		l   model.Ledger
		err error
	)
	if l.Payments, err = r.listPayments(ctx, reservationID); err != nil {
		return nil, mapError("select payments", err)
	}
	if l.CashFlows, err = r.listCashFlows(ctx, reservationID); err != nil {
		return nil, mapError("select cash flows", err)
	}
	if l.Incidents, err = r.listIncidents(ctx, reservationID); err != nil {
		return nil, mapError("select incidents", err)
	}
	return &l, nil
}

func (r *PostgresRepository) listPayments(ctx context.Context, reservationID int64) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, transition_id, reservation_id, customer_id, staff_id, amount, method, type, status, notes, created_at
		 FROM payments
		 WHERE reservation_id = $1
		 ORDER BY id`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.Payment
	for rows.Next() {
		var (
			p            model.Payment
			cents        int64
			method, kind string
		)
		if err := rows.Scan(&p.ID, &p.TransitionID, &p.ReservationID, &p.CustomerID, &p.StaffID,
			&cents, &method, &kind, &p.Status, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Amount = model.FromCents(cents)
		p.Method = model.PaymentMethod(method)
		p.Type = model.PaymentType(kind)
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) listCashFlows(ctx context.Context, reservationID int64) ([]model.CashFlow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, transition_id, staff_id, type, category, amount, reference_type, reference_id, description, created_at
		 FROM cash_flows
		 WHERE reference_type = 'RESERVATION' AND reference_id = $1
		 ORDER BY id`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.CashFlow
	for rows.Next() {
		var (
			cf    model.CashFlow
			cents int64
			kind  string
		)
		if err := rows.Scan(&cf.ID, &cf.TransitionID, &cf.StaffID, &kind, &cf.Category, &cents,
			&cf.ReferenceType, &cf.ReferenceID, &cf.Description, &cf.CreatedAt); err != nil {
			return nil, err
		}
		cf.Amount = model.FromCents(cents)
		cf.Type = model.CashFlowType(kind)
		res = append(res, cf)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) listIncidents(ctx context.Context, reservationID int64) ([]model.IncidentLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, transition_id, reservation_id, room_id, staff_id, kind, description, amount, status, created_at
		 FROM incident_logs
		 WHERE reservation_id = $1
		 ORDER BY id`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.IncidentLog
	for rows.Next() {
		var (
			inc    model.IncidentLog
			cents  int64
			status string
		)
		if err := rows.Scan(&inc.ID, &inc.TransitionID, &inc.ReservationID, &inc.RoomID, &inc.StaffID,
			&inc.Kind, &inc.Description, &cents, &status, &inc.CreatedAt); err != nil {
			return nil, err
		}
		inc.Amount = model.FromCents(cents)
		inc.Status = model.IncidentStatus(status)
		res = append(res, inc)
	}
	return res, rows.Err()
}

// RoomMismatches возвращает номера, статус которых не соответствует заселённым бронированиям.
func (r *PostgresRepository) RoomMismatches(ctx context.Context) ([]RoomMismatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.number, r.status, COUNT(s.id), MIN(s.id)
		 FROM rooms r
		 LEFT JOIN reservations s
		   ON s.room_id = r.id AND s.status = 'CHECKED_IN' AND s.actual_check_out IS NULL
		 GROUP BY r.id, r.number, r.status
		 HAVING (r.status = 'OCCUPIED' AND COUNT(s.id) <> 1)
		     OR (r.status <> 'OCCUPIED' AND COUNT(s.id) > 0)
		 ORDER BY r.id`,
	)
	if err != nil {
		return nil, mapError("select room mismatches", err)
	}
	defer rows.Close()

	var res []RoomMismatch
	for rows.Next() {
		var (
			mm     RoomMismatch
			status string
		)
		if err := rows.Scan(&mm.RoomID, &mm.RoomNumber, &status, &mm.ActiveStays, &mm.ReservationID); err != nil {
			return nil, mapError("scan room mismatch", err)
		}
		mm.RoomStatus = model.RoomStatus(status)
		res = append(res, mm)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("room mismatches rows", err)
	}

	return res, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := scanReservation(t.tx.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: "reservation", ID: id}
		}
		return nil, fmt.Errorf("lock reservation: %w", err)
	}
	return res, nil
}

func (t *pgTx) LockRoom(ctx context.Context, id int64) (*model.Room, error) {
	var (
		room   model.Room
		status string
	)
	err := t.tx.QueryRow(ctx, `SELECT id, number, status FROM rooms WHERE id = $1 FOR UPDATE`, id).
		Scan(&room.ID, &room.Number, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: "room", ID: id}
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}
	room.Status = model.RoomStatus(status)
	return &room, nil
}

func (t *pgTx) ActiveStays(ctx context.Context, roomID int64) ([]model.ActiveStay, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT r.id, r.booking_ref, r.room_id, TRIM(c.first_name || ' ' || c.last_name),
		        r.check_in_date, r.check_out_date, r.actual_check_in, r.actual_check_out
		 FROM reservations r
		 JOIN customers c ON c.id = r.customer_id
		 WHERE r.room_id = $1 AND r.status = $2 AND r.actual_check_out IS NULL
		 ORDER BY r.id`,
		roomID, string(model.ReservationStatusCheckedIn),
	)
	if err != nil {
		return nil, fmt.Errorf("select active stays: %w", err)
	}
	defer rows.Close()

	var res []model.ActiveStay
	for rows.Next() {
		var s model.ActiveStay
		if err := rows.Scan(&s.ReservationID, &s.BookingRef, &s.RoomID, &s.GuestName,
			&s.CheckInDate, &s.CheckOutDate, &s.ActualCheckIn, &s.ActualCheckOut); err != nil {
			return nil, fmt.Errorf("scan active stay: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active stays rows: %w", err)
	}

	return res, nil
}

// Обновления условные: статус в WHERE защищает от перехода по устаревшему состоянию.

func (t *pgTx) ApplyCheckIn(ctx context.Context, id int64, u model.CheckInUpdate) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE reservations
		 SET status = $3, actual_check_in = $4,
		     extra_charges = $5, total_amount = $6, advance_paid = $7, balance_due = $8, payment_status = $9,
		     remarks = $10, updated_at = $4
		 WHERE id = $1 AND status = $2`,
		id, string(model.ReservationStatusConfirmed), string(model.ReservationStatusCheckedIn), u.ActualCheckIn,
		model.ToCents(u.Totals.ExtraCharges), model.ToCents(u.Totals.TotalAmount),
		model.ToCents(u.Totals.AdvancePaid), model.ToCents(u.Totals.BalanceDue),
		string(u.Totals.PaymentStatus), u.Remarks,
	)
	return conditional("apply check-in", tag, err)
}

func (t *pgTx) ApplyCheckOut(ctx context.Context, id int64, u model.CheckOutUpdate) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE reservations
		 SET status = $3, actual_check_out = $4,
		     extra_charges = $5, total_amount = $6, advance_paid = $7, balance_due = $8, payment_status = $9,
		     remarks = $10, updated_at = $4
		 WHERE id = $1 AND status = $2`,
		id, string(model.ReservationStatusCheckedIn), string(model.ReservationStatusCheckedOut), u.ActualCheckOut,
		model.ToCents(u.Totals.ExtraCharges), model.ToCents(u.Totals.TotalAmount),
		model.ToCents(u.Totals.AdvancePaid), model.ToCents(u.Totals.BalanceDue),
		string(u.Totals.PaymentStatus), u.Remarks,
	)
	return conditional("apply check-out", tag, err)
}

func (t *pgTx) ApplyCancel(ctx context.Context, id int64, u model.CancelUpdate) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE reservations
		 SET status = $3, cancellation_reason = $4, cancelled_at = $5, updated_at = $5
		 WHERE id = $1 AND status = $2`,
		id, string(model.ReservationStatusConfirmed), string(model.ReservationStatusCancelled), u.Reason, u.CancelledAt,
	)
	return conditional("apply cancel", tag, err)
}

func conditional(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.ConflictError{Op: op}
	}
	return nil
}

func (t *pgTx) SetRoomStatus(ctx context.Context, roomID int64, status model.RoomStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE rooms SET status = $2 WHERE id = $1`, roomID, string(status))
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Entity: "room", ID: roomID}
	}
	return nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO payments (transition_id, reservation_id, customer_id, staff_id, amount, method, type, status, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		p.TransitionID, p.ReservationID, p.CustomerID, p.StaffID, model.ToCents(p.Amount),
		string(p.Method), string(p.Type), p.Status, p.Notes, p.CreatedAt,
	).Scan(&p.ID)
}

func (t *pgTx) InsertCashFlow(ctx context.Context, cf *model.CashFlow) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO cash_flows (transition_id, staff_id, type, category, amount, reference_type, reference_id, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		cf.TransitionID, cf.StaffID, string(cf.Type), cf.Category, model.ToCents(cf.Amount),
		cf.ReferenceType, cf.ReferenceID, cf.Description, cf.CreatedAt,
	).Scan(&cf.ID)
}

func (t *pgTx) InsertIncident(ctx context.Context, inc *model.IncidentLog) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO incident_logs (transition_id, reservation_id, room_id, staff_id, kind, description, amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		inc.TransitionID, inc.ReservationID, inc.RoomID, inc.StaffID, inc.Kind, inc.Description,
		model.ToCents(inc.Amount), string(inc.Status), inc.CreatedAt,
	).Scan(&inc.ID)
}
