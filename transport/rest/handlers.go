package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/roomkit/tictactoe-rooms/internal/apperror"
)

type createRoomResponse struct {
	RoomID string `json:"room_id"`
}

type joinRoomResponse struct {
	// Seat is null when both seats are taken and the caller is a spectator.
	Seat *string `json:"seat"`
}

type applyMoveRequest struct {
	Cell int `json:"cell"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := that.rooms.CreateRoom(r.Context())
	if err != nil {
		that.respondError(w, err)
		return
	}

	that.respondJSON(w, http.StatusCreated, createRoomResponse{RoomID: room.ID})
}

func (that *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	seat, err := that.rooms.JoinRoom(r.Context(), r.PathValue("roomID"))
	if err != nil {
		that.respondError(w, err)
		return
	}

	response := joinRoomResponse{}
	if seat != "" {
		response.Seat = &seat
	}

	that.respondJSON(w, http.StatusOK, response)
}

func (that *Server) handleApplyMove(w http.ResponseWriter, r *http.Request) {
	var request applyMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		that.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	room, err := that.rooms.ApplyMove(r.Context(), r.PathValue("roomID"), request.Cell)
	if err != nil {
		that.respondError(w, err)
		return
	}

	that.respondJSON(w, http.StatusOK, room)
}

func (that *Server) handleResetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := that.rooms.ResetRoom(r.Context(), r.PathValue("roomID"))
	if err != nil {
		that.respondError(w, err)
		return
	}

	that.respondJSON(w, http.StatusOK, room)
}

// handleWatchRoom - long-lived Server-Sent Events stream of room snapshots,
// one event per detected change, the first one immediately on connect.
func (that *Server) handleWatchRoom(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleWatchRoom")

	updates, err := that.viewer.Watch(r.Context(), r.PathValue("roomID"))
	if err != nil {
		that.respondError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		that.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for room := range updates {
		payload, err := json.Marshal(room)
		if err != nil {
			log.Error("failed to marshal room snapshot", "error", err)
			continue
		}

		if _, err = fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			log.Debug("viewer write failed, closing stream", "error", err)
			return
		}

		flusher.Flush()
	}
}

func (that *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		that.respondJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
	case errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrGameFinished):
		that.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid move"})
	default:
		that.logger.Error("request failed", "error", err)
		that.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
