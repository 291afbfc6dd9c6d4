package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/ledger"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

// MemoryRepository хранит данные в памяти. Используется в тестах и для запуска без базы данных.
//
// Транзакции выполняются строго последовательно под мьютексом над копией состояния;
// копия заменяет состояние только при успешном завершении, иначе отбрасывается.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	reservations map[int64]model.Reservation
	rooms        map[int64]model.Room
	customers    map[int64]model.Customer
	lineItems    map[int64][]model.LineItem
	payments     []model.Payment
	cashFlows    []model.CashFlow
	incidents    []model.IncidentLog
	lastID       int64
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: &memState{
			reservations: make(map[int64]model.Reservation),
			rooms:        make(map[int64]model.Room),
			customers:    make(map[int64]model.Customer),
			lineItems:    make(map[int64][]model.LineItem),
		},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		reservations: make(map[int64]model.Reservation, len(s.reservations)),
		rooms:        make(map[int64]model.Room, len(s.rooms)),
		customers:    s.customers,
		lineItems:    s.lineItems,
		payments:     append([]model.Payment(nil), s.payments...),
		cashFlows:    append([]model.CashFlow(nil), s.cashFlows...),
		incidents:    append([]model.IncidentLog(nil), s.incidents...),
		lastID:       s.lastID,
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	return c
}

func (s *memState) nextID() int64 {
	s.lastID++
	return s.lastID
}

// AddRoom добавляет номер.
func (m *MemoryRepository) AddRoom(room model.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.rooms[room.ID] = room
}

// AddCustomer добавляет клиента.
func (m *MemoryRepository) AddCustomer(c model.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.customers[c.ID] = c
}

// AddReservation добавляет бронирование.
func (m *MemoryRepository) AddReservation(r model.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.reservations[r.ID] = r
}

// AddLineItem добавляет дополнительную услугу к бронированию.
func (m *MemoryRepository) AddLineItem(reservationID int64, item model.LineItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.lineItems[reservationID] = append(m.state.lineItems[reservationID], item)
}

// Close ничего не делает.
func (m *MemoryRepository) Close() error { return nil }

// Ping всегда успешен.
func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

// InTx выполняет fn как одну транзакцию.
func (m *MemoryRepository) InTx(ctx context.Context, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return &apperr.PersistenceError{Op: "begin tx", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memTx{state: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &apperr.PersistenceError{Op: "commit tx", Err: err}
	}

	m.state = work
	return nil
}

// GetReservation возвращает бронирование без блокировки.
func (m *MemoryRepository) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.state.reservations[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "reservation", ID: id}
	}
	return &r, nil
}

// GetRoom возвращает номер без блокировки.
func (m *MemoryRepository) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.state.rooms[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "room", ID: id}
	}
	return &room, nil
}

// GetCustomer возвращает клиента.
func (m *MemoryRepository) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.state.customers[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "customer", ID: id}
	}
	return &c, nil
}

// LineItems возвращает дополнительные услуги бронирования.
func (m *MemoryRepository) LineItems(ctx context.Context, reservationID int64) ([]model.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.LineItem(nil), m.state.lineItems[reservationID]...), nil
}

// GetLedger возвращает записи журнала бронирования в порядке добавления.
func (m *MemoryRepository) GetLedger(ctx context.Context, reservationID int64) (*model.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.reservations[reservationID]; !ok {
		return nil, &apperr.NotFoundError{Entity: "reservation", ID: reservationID}
	}

	var l model.Ledger
	for _, p := range m.state.payments {
		if p.ReservationID == reservationID {
			l.Payments = append(l.Payments, p)
		}
	}
	for _, cf := range m.state.cashFlows {
		if cf.ReferenceType == ledger.ReferenceReservation && cf.ReferenceID == reservationID {
			l.CashFlows = append(l.CashFlows, cf)
		}
	}
	for _, inc := range m.state.incidents {
		if inc.ReservationID == reservationID {
			l.Incidents = append(l.Incidents, inc)
		}
	}
	return &l, nil
}

// RoomMismatches возвращает номера, статус которых не соответствует бронированиям.
func (m *MemoryRepository) RoomMismatches(ctx context.Context) ([]RoomMismatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[int64][]int64)
	for _, r := range m.state.reservations {
		if r.Status == model.ReservationStatusCheckedIn && r.ActualCheckOut == nil {
			active[r.RoomID] = append(active[r.RoomID], r.ID)
		}
	}

	var out []RoomMismatch
	for _, room := range m.state.rooms {
		ids := active[room.ID]
		if mm, ok := classifyRoom(room, ids); ok {
			out = append(out, mm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func classifyRoom(room model.Room, activeIDs []int64) (RoomMismatch, bool) {
	mm := RoomMismatch{
		RoomID:      room.ID,
		RoomNumber:  room.Number,
		RoomStatus:  room.Status,
		ActiveStays: len(activeIDs),
	}
	if len(activeIDs) > 0 {
		id := activeIDs[0]
		mm.ReservationID = &id
	}
	switch {
	case room.Status == model.RoomStatusOccupied && len(activeIDs) != 1:
		return mm, true
	case room.Status != model.RoomStatusOccupied && len(activeIDs) > 0:
		return mm, true
	}
	return RoomMismatch{}, false
}

type memTx struct {
	state *memState
}

func (t *memTx) LockReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	r, ok := t.state.reservations[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "reservation", ID: id}
	}
	return &r, nil
}

func (t *memTx) LockRoom(ctx context.Context, id int64) (*model.Room, error) {
	room, ok := t.state.rooms[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "room", ID: id}
	}
	return &room, nil
}

func (t *memTx) ActiveStays(ctx context.Context, roomID int64) ([]model.ActiveStay, error) {
	var out []model.ActiveStay
	for _, r := range t.state.reservations {
		if r.RoomID != roomID || r.Status != model.ReservationStatusCheckedIn || r.ActualCheckOut != nil {
			continue
		}
		out = append(out, model.ActiveStay{
			ReservationID: r.ID,
			BookingRef:    r.BookingRef,
			RoomID:        r.RoomID,
			GuestName:     t.state.customers[r.CustomerID].FullName(),
			CheckInDate:   r.CheckInDate,
			CheckOutDate:  r.CheckOutDate,
			ActualCheckIn: r.ActualCheckIn,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationID < out[j].ReservationID })
	return out, nil
}

func (t *memTx) ApplyCheckIn(ctx context.Context, id int64, u model.CheckInUpdate) error {
	r, err := t.expect(id, model.ReservationStatusConfirmed, "apply check-in")
	if err != nil {
		return err
	}
	for _, other := range t.state.reservations {
		if other.ID != id && other.RoomID == r.RoomID && other.Status == model.ReservationStatusCheckedIn {
			return &apperr.ConflictError{Op: "apply check-in"}
		}
	}
	t.state.reservations[id] = r.ApplyCheckIn(u)
	return nil
}

func (t *memTx) ApplyCheckOut(ctx context.Context, id int64, u model.CheckOutUpdate) error {
	r, err := t.expect(id, model.ReservationStatusCheckedIn, "apply check-out")
	if err != nil {
		return err
	}
	t.state.reservations[id] = r.ApplyCheckOut(u)
	return nil
}

func (t *memTx) ApplyCancel(ctx context.Context, id int64, u model.CancelUpdate) error {
	r, err := t.expect(id, model.ReservationStatusConfirmed, "apply cancel")
	if err != nil {
		return err
	}
	t.state.reservations[id] = r.ApplyCancel(u)
	return nil
}

func (t *memTx) expect(id int64, status model.ReservationStatus, op string) (model.Reservation, error) {
	r, ok := t.state.reservations[id]
	if !ok {
		return model.Reservation{}, &apperr.NotFoundError{Entity: "reservation", ID: id}
	}
	if r.Status != status {
		return model.Reservation{}, &apperr.ConflictError{Op: op}
	}
	return r, nil
}

func (t *memTx) SetRoomStatus(ctx context.Context, roomID int64, status model.RoomStatus) error {
	room, ok := t.state.rooms[roomID]
	if !ok {
		return &apperr.NotFoundError{Entity: "room", ID: roomID}
	}
	room.Status = status
	t.state.rooms[roomID] = room
	return nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	p.ID = t.state.nextID()
	t.state.payments = append(t.state.payments, *p)
	return nil
}

func (t *memTx) InsertCashFlow(ctx context.Context, cf *model.CashFlow) error {
	cf.ID = t.state.nextID()
	t.state.cashFlows = append(t.state.cashFlows, *cf)
	return nil
}

func (t *memTx) InsertIncident(ctx context.Context, inc *model.IncidentLog) error {
	inc.ID = t.state.nextID()
	t.state.incidents = append(t.state.incidents, *inc)
	return nil
}
