package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/service/room"
	"github.com/sharetube/syncwatch/pkg/rest"
)

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, room.ErrRoomAlreadyExists),
		errors.Is(err, room.ErrInvalidVideoURL),
		errors.Is(err, room.ErrInvalidPlaylistURL):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, room.ErrPlaylistUnavailable):
		message = room.ErrPlaylistUnavailable.Error()
	default:
		c.logger.ErrorContext(r.Context(), "failed to handle request", "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": message})
}

// readRequest decodes and validates the body. It writes the error response
// itself and reports whether the handler may continue.
func (c controller) readRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.InfoContext(r.Context(), "request validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{
			"error":  validationErrors[0].Message,
			"errors": validationErrors,
		})
		return false
	}

	return true
}

func (c controller) getHealth(w http.ResponseWriter, r *http.Request) {
	health, err := c.roomService.GetHealth(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, health)
}

func (c controller) getRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.GetRooms(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rooms)
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req domain.Room
	if !c.readRequest(w, r, &req) {
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{Room: req})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, domain.CreateRoomResponse{Success: true, RoomID: resp.RoomID})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := c.roomService.GetRoom(r.Context(), chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rm)
}

func (c controller) updateRoom(w http.ResponseWriter, r *http.Request) {
	var patch domain.RoomPatch
	if !c.readRequest(w, r, &patch) {
		return
	}

	if err := c.roomService.UpdateRoom(r.Context(), &room.UpdateRoomParams{
		RoomID: chi.URLParam(r, "room-id"),
		Patch:  &patch,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, domain.SuccessResponse{Success: true})
}

func (c controller) removeRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.RemoveRoom(r.Context(), chi.URLParam(r, "room-id")); err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, domain.SuccessResponse{Success: true})
}

func (c controller) leaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")
	if _, err := c.roomService.GetRoom(r.Context(), roomID); err != nil {
		c.writeError(w, r, err)
		return
	}

	var req domain.LeaveRoomRequest
	if !c.readRequest(w, r, &req) {
		return
	}

	rm, err := c.roomService.LeaveRoom(r.Context(), &room.LeaveRoomParams{
		RoomID: roomID,
		UserID: req.UserID,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, domain.LeaveRoomResponse{Success: true, Room: &rm})
}

func (c controller) getVideoMetadata(w http.ResponseWriter, r *http.Request) {
	var req domain.VideoMetadataRequest
	if !c.readRequest(w, r, &req) {
		return
	}

	metadata, err := c.roomService.GetVideoMetadata(r.Context(), req.URL)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, metadata)
}

func (c controller) getPlaylistMetadata(w http.ResponseWriter, r *http.Request) {
	var req domain.PlaylistMetadataRequest
	if !c.readRequest(w, r, &req) {
		return
	}

	metadata, err := c.roomService.GetPlaylistMetadata(r.Context(), &room.GetPlaylistMetadataParams{
		URL:        req.URL,
		PlaylistID: req.PlaylistID,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, metadata)
}
