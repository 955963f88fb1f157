/*
Package handler provides HTTP handler functions for room creation and presence lookups.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rtcsignal/internal/pkg/errs"
	"rtcsignal/internal/pkg/logx"
	"rtcsignal/internal/pkg/randx"
	"rtcsignal/internal/pkg/resp"
)

// HandleCreateRoom returns a fresh room id. The room itself only comes into existence
// when its first participant joins.
func HandleCreateRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := randx.RoomID()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId": roomID,
		})
	}
}

// HandleGetRoom reports the current presence of a room.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		snapshot, ok := deps.Manager.Snapshot(roomID)
		if !ok {
			logx.Info("Room lookup for unknown room.", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		resp.RespondSuccess(w, r, snapshot)
	}
}
