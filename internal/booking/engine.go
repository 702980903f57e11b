// Package booking is the only mutation path for reservations. Every operation
// validates, detects conflicts and writes inside one atomic unit of the store,
// bounded by the configured transaction timeout.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"roombook/internal/storage"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/google/uuid"
)

const (
	defaultTxTimeout      = 5 * time.Second
	publishTimeout        = 5 * time.Second
	errIdempotencyReuse   = "idempotency key was already used for a different reservation"
	errConcurrentModified = "reservation was modified concurrently, retry the request"
)

// PartyRef identifies a customer by id or, when the id is empty, by email.
type PartyRef struct {
	ID    string
	Email string
}

type CreateRequest struct {
	RoomID string
	Party  PartyRef
	Start  time.Time
	End    time.Time
	// IdempotencyKey, when set, makes a retried create return the reservation
	// the first attempt committed.
	IdempotencyKey string
}

type RescheduleRequest struct {
	ReservationID string
	RoomID        string
	Party         PartyRef
	Start         time.Time
	End           time.Time
}

type Engine struct {
	store     storage.Store
	log       *logger.Logger
	txTimeout time.Duration
	now       func() time.Time
	newID     func() string
	publisher EventPublisher
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

func NewEngine(store storage.Store, cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		log:       cfg.Log,
		txTimeout: cfg.BookingTxTimeout,
		now:       time.Now,
		newID:     uuid.NewString,
		publisher: nopPublisher{},
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	if e.txTimeout <= 0 {
		e.txTimeout = defaultTxTimeout
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	iv := NewInterval(req.Start, req.End)
	if err := validateOrder(iv); err != nil {
		return nil, err
	}

	var (
		result   *model.Reservation
		replayed bool
	)
	err := e.atomically(ctx, "Create", func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.RoomKey(req.RoomID)); err != nil {
			return err
		}
		if err := requireRoom(ctx, tx, req.RoomID); err != nil {
			return err
		}
		party, err := resolveParty(ctx, tx, req.Party)
		if err != nil {
			return err
		}
		if err := tx.Lock(ctx, storage.CustomerKey(party.ID)); err != nil {
			return err
		}

		if req.IdempotencyKey != "" {
			prev, err := tx.FindReservationByIdempotencyKey(ctx, req.IdempotencyKey)
			switch {
			case err == nil:
				if prev.RoomID != req.RoomID || prev.CustomerID != party.ID ||
					!iv.Equal(Interval{Start: prev.StartUTC, End: prev.EndUTC}) {
					return conflictError(errIdempotencyReuse, nil)
				}
				result, replayed = prev, true
				return nil
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
		}
		// A replay is answered even once the start has passed.
		if err := validateNotPast(iv, e.now()); err != nil {
			return err
		}

		conflicts, err := conflictsInTx(ctx, tx, req.RoomID, iv, "")
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return overlapError(req.RoomID, reservationIDs(conflicts))
		}

		now := e.now().UTC()
		r := &model.Reservation{
			ID:             e.newID(),
			RoomID:         req.RoomID,
			CustomerID:     party.ID,
			StartUTC:       iv.Start,
			EndUTC:         iv.End,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		e.log.Info("Reservation create replayed", "id", result.ID, "idempotency_key", req.IdempotencyKey)
		return result, nil
	}
	e.log.Info("Reservation created successfully",
		"id", result.ID,
		"room_id", result.RoomID,
		"customer_id", result.CustomerID,
		"start_utc", result.StartUTC,
		"end_utc", result.EndUTC,
	)
	e.publish(ctx, Event{Type: EventReservationCreated, Reservation: result, OccurredAt: result.CreatedAt})
	return result, nil
}

// Reschedule replaces the reservation wholesale. Room, customer and interval may
// all change; the reservation never conflicts with its own previous interval.
func (e *Engine) Reschedule(ctx context.Context, req RescheduleRequest) (*model.Reservation, error) {
	iv := NewInterval(req.Start, req.End)

	var previous, result *model.Reservation
	err := e.atomically(ctx, "Reschedule", func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.RoomKey(req.RoomID)); err != nil {
			return err
		}
		existing, err := tx.FindReservation(ctx, req.ReservationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return reservationNotFoundError(req.ReservationID)
			}
			return err
		}
		if err := ValidateInterval(iv, e.now()); err != nil {
			return err
		}
		if err := requireRoom(ctx, tx, req.RoomID); err != nil {
			return err
		}
		party, err := resolveParty(ctx, tx, req.Party)
		if err != nil {
			return err
		}
		if err := tx.Lock(ctx, storage.CustomerKey(party.ID)); err != nil {
			return err
		}

		conflicts, err := conflictsInTx(ctx, tx, req.RoomID, iv, existing.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return overlapError(req.RoomID, reservationIDs(conflicts))
		}

		updated := *existing
		updated.RoomID = req.RoomID
		updated.CustomerID = party.ID
		updated.StartUTC = iv.Start
		updated.EndUTC = iv.End
		updated.UpdatedAt = e.now().UTC()
		if err := tx.ReplaceReservation(ctx, &updated); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return conflictError(errConcurrentModified, err)
			}
			return err
		}
		previous, result = existing, &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("Reservation rescheduled successfully",
		"id", result.ID,
		"room_id", result.RoomID,
		"previous_room_id", previous.RoomID,
		"start_utc", result.StartUTC,
		"end_utc", result.EndUTC,
	)
	e.publish(ctx, Event{
		Type:        EventReservationRescheduled,
		Reservation: result,
		Previous:    previous,
		OccurredAt:  result.UpdatedAt,
	})
	return result, nil
}

func (e *Engine) Cancel(ctx context.Context, reservationID string) error {
	var removed *model.Reservation
	err := e.atomically(ctx, "Cancel", func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.FindReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return reservationNotFoundError(reservationID)
			}
			return err
		}
		if err := tx.Lock(ctx, storage.RoomKey(existing.RoomID)); err != nil {
			return err
		}
		if err := tx.DeleteReservation(ctx, reservationID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return reservationNotFoundError(reservationID)
			}
			return err
		}
		removed = existing
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("Reservation cancelled successfully", "id", removed.ID, "room_id", removed.RoomID)
	e.publish(ctx, Event{
		Type:        EventReservationCancelled,
		Reservation: removed,
		Reason:      ReasonCancelled,
		OccurredAt:  e.now().UTC(),
	})
	return nil
}

// RemoveResource deletes a room and every reservation on it in one atomic unit.
func (e *Engine) RemoveResource(ctx context.Context, roomID string) error {
	var removed []*model.Reservation
	err := e.atomically(ctx, "RemoveResource", func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.RoomKey(roomID)); err != nil {
			return err
		}
		if err := requireRoom(ctx, tx, roomID); err != nil {
			return err
		}
		var err error
		if removed, err = tx.DeleteRoomReservations(ctx, roomID); err != nil {
			return err
		}
		return tx.DeleteRoom(ctx, roomID)
	})
	if err != nil {
		return err
	}

	e.log.Info("Room removed successfully", "room_id", roomID, "reservations_removed", len(removed))
	e.publish(ctx, cancellations(removed, ReasonResourceRemoved, e.now().UTC())...)
	return nil
}

// RemoveParty deletes a customer and all of their reservations in one atomic unit.
func (e *Engine) RemoveParty(ctx context.Context, customerID string) error {
	var removed []*model.Reservation
	err := e.atomically(ctx, "RemoveParty", func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, storage.CustomerKey(customerID)); err != nil {
			return err
		}
		if _, err := resolveParty(ctx, tx, PartyRef{ID: customerID}); err != nil {
			return err
		}
		var err error
		if removed, err = tx.DeleteCustomerReservations(ctx, customerID); err != nil {
			return err
		}
		return tx.DeleteCustomer(ctx, customerID)
	})
	if err != nil {
		return err
	}

	e.log.Info("Customer removed successfully", "customer_id", customerID, "reservations_removed", len(removed))
	e.publish(ctx, cancellations(removed, ReasonPartyRemoved, e.now().UTC())...)
	return nil
}

func (e *Engine) Get(ctx context.Context, reservationID string) (*model.Reservation, error) {
	r, err := e.store.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, reservationNotFoundError(reservationID)
		}
		return nil, e.readError("Get", err)
	}
	return r, nil
}

// ListByResource returns the room's reservations ordered by start.
func (e *Engine) ListByResource(ctx context.Context, roomID string) ([]*model.Reservation, error) {
	if _, err := e.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, resourceNotFoundError(roomID)
		}
		return nil, e.readError("ListByResource", err)
	}
	rs, err := e.store.ListRoomReservations(ctx, roomID)
	if err != nil {
		return nil, e.readError("ListByResource", err)
	}
	return rs, nil
}

func (e *Engine) GetDetails(ctx context.Context, reservationID string) (*model.ReservationDetails, error) {
	r, err := e.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return e.Describe(ctx, r)
}

// ListAll returns every reservation ordered by start, with room and customer inlined.
func (e *Engine) ListAll(ctx context.Context) ([]*model.ReservationDetails, error) {
	rs, err := e.store.ListReservations(ctx)
	if err != nil {
		return nil, e.readError("ListAll", err)
	}

	rooms := make(map[string]*model.Room)
	customers := make(map[string]*model.Customer)
	out := make([]*model.ReservationDetails, 0, len(rs))
	for _, r := range rs {
		d, err := e.describeCached(ctx, r, rooms, customers)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Removed by a cascade between the two reads.
				continue
			}
			return nil, e.readError("ListAll", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Describe joins the reservation with its room and customer.
func (e *Engine) Describe(ctx context.Context, r *model.Reservation) (*model.ReservationDetails, error) {
	d, err := e.describeCached(ctx, r, nil, nil)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, reservationNotFoundError(r.ID)
		}
		return nil, e.readError("Describe", err)
	}
	return d, nil
}

func (e *Engine) describeCached(ctx context.Context, r *model.Reservation, rooms map[string]*model.Room, customers map[string]*model.Customer) (*model.ReservationDetails, error) {
	room, ok := rooms[r.RoomID]
	if !ok {
		var err error
		if room, err = e.store.GetRoom(ctx, r.RoomID); err != nil {
			return nil, err
		}
		if rooms != nil {
			rooms[r.RoomID] = room
		}
	}
	customer, ok := customers[r.CustomerID]
	if !ok {
		var err error
		if customer, err = e.store.GetCustomer(ctx, r.CustomerID); err != nil {
			return nil, err
		}
		if customers != nil {
			customers[r.CustomerID] = customer
		}
	}
	return &model.ReservationDetails{
		ID:       r.ID,
		StartUTC: r.StartUTC,
		EndUTC:   r.EndUTC,
		Customer: model.CustomerInfo{Email: customer.Email, Name: customer.Name, Phone: customer.Phone},
		Room:     model.RoomInfo{ID: room.ID, Name: room.Name, Capacity: room.Capacity},
	}, nil
}

// atomically runs fn in one bounded atomic unit and maps whatever aborted it
// onto the booking taxonomy.
func (e *Engine) atomically(ctx context.Context, op string, fn storage.TxFunc) error {
	txCtx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	err := e.store.RunInTx(txCtx, fn)
	if err == nil {
		return nil
	}

	mapped := translate(txCtx, err)
	if appErr := apperrors.AsAppError(mapped); appErr.Code == CodeStorageFailure || appErr.Code == CodeTimeout {
		e.log.Error("atomic unit failed", "operation", op, "code", appErr.Code, "error", err)
	} else {
		e.log.Debug("atomic unit aborted", "operation", op, "code", appErr.Code, "error", err)
	}
	return mapped
}

func translate(ctx context.Context, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrOverlap):
		return overlapError("", nil)
	case errors.Is(err, storage.ErrWriteConflict):
		return conflictError(errConcurrentModified, err)
	case errors.Is(err, storage.ErrDuplicate):
		return conflictError("reservation conflicts with a concurrent write", err)
	case errors.Is(err, storage.ErrNotFound):
		return conflictError("a referenced record was removed concurrently", err)
	case errors.Is(err, storage.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		ctx.Err() != nil:
		return timeoutError(err)
	default:
		return storageFailureError(err)
	}
}

func (e *Engine) readError(op string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	e.log.Error("reservation read failed", "operation", op, "error", err)
	if errors.Is(err, storage.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return storageFailureError(err)
}

func (e *Engine) publish(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.publisher.Publish(pubCtx, events...); err != nil {
		e.log.Warn("failed to publish reservation events", "count", len(events), "type", string(events[0].Type), "error", err)
	}
}

func requireRoom(ctx context.Context, tx storage.Tx, roomID string) error {
	if roomID == "" {
		return resourceNotFoundError(roomID)
	}
	if _, err := tx.FindRoom(ctx, roomID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return resourceNotFoundError(roomID)
		}
		return err
	}
	return nil
}

func resolveParty(ctx context.Context, tx storage.Tx, ref PartyRef) (*model.Customer, error) {
	var (
		c   *model.Customer
		err error
	)
	switch {
	case ref.ID != "":
		c, err = tx.FindCustomer(ctx, ref.ID)
	case ref.Email != "":
		c, err = tx.FindCustomerByEmail(ctx, strings.ToLower(strings.TrimSpace(ref.Email)))
	default:
		return nil, partyNotFoundError(ref)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, partyNotFoundError(ref)
		}
		return nil, err
	}
	return c, nil
}

func cancellations(rs []*model.Reservation, reason string, at time.Time) []Event {
	events := make([]Event, 0, len(rs))
	for _, r := range rs {
		events = append(events, Event{Type: EventReservationCancelled, Reservation: r, Reason: reason, OccurredAt: at})
	}
	return events
}
