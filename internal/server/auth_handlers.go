package server

import (
	"encoding/json"
	"net/http"
)

// handleAuthLogin checks credentials and returns a bearer token
func (gs *GrooveServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !gs.authService.IsEnabled() {
		gs.respondWithError(w, r, http.StatusBadRequest, "Authentication is disabled", nil)
		return
	}

	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	credentials.Username = sanitizeInput(credentials.Username)
	if credentials.Username == "" || credentials.Password == "" {
		gs.respondWithError(w, r, http.StatusBadRequest, "Username and password required", nil)
		return
	}

	token, err := gs.authService.Login(credentials.Username, credentials.Password)
	if err != nil {
		gs.logger.WithField("username", credentials.Username).Warn("Failed login attempt")
		gs.respondWithError(w, r, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	gs.logger.WithField("username", credentials.Username).Info("User logged in")
	gs.respondJSON(w, token)
}

// handleAuthLogout revokes the caller's bearer token
func (gs *GrooveServer) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if gs.authService.IsEnabled() {
		if token, valid := gs.authService.GetTokenManager().FromRequest(r); valid {
			gs.authService.Logout(token.Value)
			gs.logger.WithField("username", token.Username).Info("User logged out")
		}
	}

	gs.respondJSON(w, map[string]string{"status": "success"})
}

// handleAuthRegister creates a new account when registration is enabled
func (gs *GrooveServer) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !gs.authService.IsRegistrationAllowed() {
		gs.respondWithError(w, r, http.StatusForbidden, "Registration is disabled", nil)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	req.Username = sanitizeInput(req.Username)
	if err := gs.authService.Register(req.Username, req.Password); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Registration failed", err)
		return
	}

	gs.logger.WithField("username", req.Username).Info("User registered")
	gs.respondJSON(w, map[string]string{"status": "success"})
}
