package room

import (
	"context"
	"errors"
	"time"
)

// Cleanup removes rooms older than the configured age and rooms nobody is in.
func (s service) Cleanup(ctx context.Context) (int, error) {
	rooms, err := s.roomRepo.GetRooms(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	removed := 0
	for _, rm := range rooms {
		expired := s.cfg.RoomMaxAge > 0 && now.Sub(rm.CreatedAt) > s.cfg.RoomMaxAge
		if !expired && len(rm.Participants) > 0 {
			continue
		}

		if err := s.RemoveRoom(ctx, rm.ID); err != nil && !errors.Is(err, ErrRoomNotFound) {
			s.logger.WarnContext(ctx, "failed to remove stale room", "room_id", rm.ID, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

// RunCleanup calls Cleanup right away and then every interval until ctx is
// done.
func (s service) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		removed, err := s.Cleanup(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to clean up rooms", "error", err)
		} else if removed > 0 {
			s.logger.InfoContext(ctx, "stale rooms removed", "count", removed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
