// internal/handlers/guest.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/auth"
	"github.com/jason-s-yu/peak/internal/models"
)

// maxNameLength caps guest display names.
const maxNameLength = 32

// GuestHandler mints a guest identity: a fresh participant id plus a token
// carrying the requested display name. The token is returned in the body and
// set as the auth cookie.
func GuestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Guest"
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	p := models.Participant{ID: uuid.NewString(), DisplayName: name}
	token, err := auth.CreateJWT(p)
	if err != nil {
		http.Error(w, "failed to create token", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    p.ID,
		"name":  p.DisplayName,
		"token": token,
	})
}
