package booking

import (
	"context"

	"roombook/internal/storage"
	"roombook/pkg/model"
)

// FindConflicts returns the reservations in existing whose interval intersects
// candidate, skipping excludeID.
func FindConflicts(existing []*model.Reservation, candidate Interval, excludeID string) []*model.Reservation {
	var out []*model.Reservation
	for _, r := range existing {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if candidate.Overlaps(Interval{Start: r.StartUTC, End: r.EndUTC}) {
			out = append(out, r)
		}
	}
	return out
}

// HasConflict reports whether roomID already holds a reservation intersecting iv,
// read through the caller's atomic unit.
func HasConflict(ctx context.Context, tx storage.Tx, roomID string, iv Interval, excludeID string) (bool, error) {
	conflicts, err := conflictsInTx(ctx, tx, roomID, iv, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

func conflictsInTx(ctx context.Context, tx storage.Tx, roomID string, iv Interval, excludeID string) ([]*model.Reservation, error) {
	candidates, err := tx.FindRoomReservations(ctx, roomID, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	// The store's range query is a prefilter; the predicate here is authoritative.
	return FindConflicts(candidates, iv, excludeID), nil
}

func reservationIDs(rs []*model.Reservation) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}
