package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sessionCookieName = "staff_attendance_session"
	sessionDuration   = 12 * time.Hour // one school day
	cleanupInterval   = 15 * time.Minute
	repoTimeout       = 5 * time.Second
	devSessionSecret  = "staff-attendance-dev-secret-change-in-production"
)

// Session is an authenticated admin session.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// MarshalJSON renders the fields the admin UI needs.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SessionID string `json:"session_id"`
		Username  string `json:"username"`
		ExpiresAt string `json:"expires_at"`
	}{s.ID, s.Username, s.ExpiresAt.UTC().Format(time.RFC3339)})
}

// SessionRepository persists sessions across restarts (postgres.SessionRepository).
// Get returns nil, nil for unknown or expired sessions.
type SessionRepository interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager issues and validates admin sessions. Sessions are cached in
// memory and written through to the repository when one is configured.
type SessionManager struct {
	secret []byte
	repo   SessionRepository
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager starts a manager; repo may be nil for memory-only sessions.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	if secret == "" {
		secret = devSessionSecret
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		repo:     repo,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// withRepo runs fn against the repository with a bounded context, if there is one.
func (sm *SessionManager) withRepo(fn func(ctx context.Context, repo SessionRepository) error) error {
	if sm.repo == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	return fn(ctx, sm.repo)
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.purgeExpired()
		}
	}
}

func (sm *SessionManager) purgeExpired() {
	now := sm.now()
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if s.expired(now) {
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	err := sm.withRepo(func(ctx context.Context, repo SessionRepository) error {
		n, err := repo.DeleteExpired(ctx)
		if n > 0 {
			log.Printf("sessions: purged %d expired sessions", n)
		}
		return err
	})
	if err != nil {
		log.Printf("sessions: purge failed: %v", err)
	}
}

// Stop ends the background cleanup. Safe to call more than once.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

// CreateSession issues a session for username.
func (sm *SessionManager) CreateSession(username string) (*Session, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	now := sm.now()
	session := &Session{
		ID:        base64.RawURLEncoding.EncodeToString(raw),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	if err := sm.withRepo(func(ctx context.Context, repo SessionRepository) error {
		return repo.Save(ctx, session)
	}); err != nil {
		return nil, err
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()
	return session, nil
}

// GetSession returns a live session, consulting the repository on a cache miss.
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	session := sm.sessions[id]
	sm.mu.RUnlock()

	if session == nil {
		session = sm.loadSession(id)
	}
	if session == nil {
		return nil
	}
	if session.expired(sm.now()) {
		sm.DeleteSession(id)
		return nil
	}
	return session
}

func (sm *SessionManager) loadSession(id string) *Session {
	var session *Session
	err := sm.withRepo(func(ctx context.Context, repo SessionRepository) error {
		var err error
		session, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		log.Printf("sessions: load failed: %v", err)
		return nil
	}
	if session != nil {
		sm.mu.Lock()
		sm.sessions[session.ID] = session
		sm.mu.Unlock()
	}
	return session
}

// DeleteSession forgets a session in memory and in the repository.
func (sm *SessionManager) DeleteSession(id string) {
	sm.mu.Lock()
	delete(sm.sessions, id)
	sm.mu.Unlock()

	if err := sm.withRepo(func(ctx context.Context, repo SessionRepository) error {
		return repo.Delete(ctx, id)
	}); err != nil {
		log.Printf("sessions: delete failed: %v", err)
	}
}

// CookieValue is "<id>.<hmac(id)>".
func (sm *SessionManager) CookieValue(session *Session) string {
	return session.ID + "." + sm.sign(session.ID)
}

// sessionIDFromCookie verifies a cookie value and returns the session ID in it.
func (sm *SessionManager) sessionIDFromCookie(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(sig), []byte(sm.sign(id)))
}

// SetSessionCookie sets the signed session cookie, Secure behind TLS.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sm.CookieValue(session),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(sm.now()).Seconds()),
	})
}

// ClearSessionCookie expires the session cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest accepts the signed cookie or an "Authorization: Bearer <id>" header.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if id, ok := sm.sessionIDFromCookie(cookie.Value); ok {
			if session := sm.GetSession(id); session != nil {
				return session
			}
		}
	}

	if id, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && id != "" {
		return sm.GetSession(id)
	}
	return nil
}

func (sm *SessionManager) sign(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
