/*
Package handler provides the page handlers that serve the browser client: the landing
page, the room-creation redirect and the room page.
*/
package handler

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"rtcsignal/internal/pkg/logx"
	"rtcsignal/internal/pkg/randx"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type indexPage struct {
	RoomID string
}

type roomPage struct {
	RoomID   string
	UserName string
}

// HandleIndexPage renders the landing page. A valid room_id query parameter pre-fills
// the join form.
func HandleIndexPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := indexPage{}
		if roomID := r.URL.Query().Get("room_id"); randx.IsURLSafeRoomID(roomID) {
			data.RoomID = roomID
		}

		renderPage(w, "index.html", data)
	}
}

// HandleCreateRoomRedirect generates a room id and redirects to its page, keeping the
// name query parameter if one was given.
func HandleCreateRoomRedirect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := randx.RoomID()
		if err != nil {
			logx.Error(err, "Failed to generate room id")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, roomURL(roomID, r.URL.Query().Get("name")), http.StatusFound)
	}
}

// HandleRoomPage renders the room page, or sends the visitor back to the landing page
// to pick a name first.
func HandleRoomPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if !randx.IsURLSafeRoomID(roomID) {
			http.NotFound(w, r)
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			http.Redirect(w, r, "/?"+url.Values{"room_id": {roomID}}.Encode(), http.StatusFound)
			return
		}

		renderPage(w, "room.html", roomPage{RoomID: roomID, UserName: name})
	}
}

func roomURL(roomID, name string) string {
	u := "/room/" + url.PathEscape(roomID)
	if name != "" {
		u += "?" + url.Values{"name": {name}}.Encode()
	}
	return u
}

func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		logx.Error(err, "Failed to render page", "template", name)
	}
}
