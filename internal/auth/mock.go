package auth

import (
	"net/http"
	"time"
)

// DevUser is the identity MockAuth signs in.
var DevUser = User{
	ID:       "dev-user-123",
	Email:    "dev@draftoracle.local",
	Name:     "Dev Commissioner",
	Username: "devuser",
	Groups:   []string{"users", CommissionerGroup},
}

// MockAuth provides a mock authentication for local development
type MockAuth struct {
	sessions *sessionStore
	// AutoLogin treats requests without a session as DevUser.
	AutoLogin bool
}

// NewMockAuth creates a new mock authentication handler
func NewMockAuth(autoLogin bool) *MockAuth {
	return &MockAuth{sessions: newSessionStore(), AutoLogin: autoLogin}
}

// LoginHandler for mock auth - auto-creates a session
func (m *MockAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	user := DevUser
	session := m.sessions.create(&user, nil, time.Now().Add(24*time.Hour))
	setSessionCookie(w, session, false)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// CallbackHandler is not needed for mock auth
func (m *MockAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler for mock auth
func (m *MockAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		m.sessions.delete(cookie.Value)
	}
	clearCookie(w, sessionCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Middleware for mock auth
func (m *MockAuth) Middleware(next http.Handler) http.Handler {
	var fallback *User
	if m.AutoLogin {
		user := DevUser
		fallback = &user
	}
	return m.sessions.middleware(next, fallback)
}
