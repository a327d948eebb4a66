package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/identity"
)

// Session is the per-caller session state handed to every operation that needs it.
// The zero value is not usable, use New. A Session is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	id       string
	userID   *int
	username string
	role     identity.Role
	attrs    map[string]string
}

// New returns an empty session with a random ID.
func New() *Session {
	return &Session{
		id:    uuid.NewString(),
		attrs: make(map[string]string),
	}
}

func (s *Session) ID() string { return s.id }

// Create overwrites the session with a logged in user.
func (s *Session) Create(userID int, username string, role identity.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = &userID
	s.username = username
	s.role = role
}

func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID != nil
}

// Clear resets all fields and empties the attributes.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = nil
	s.username = ""
	s.role = ""
	s.attrs = make(map[string]string)
}

func (s *Session) UserID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == nil {
		return 0, false
	}
	return *s.userID, true
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) Role() identity.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) Set(key, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = val
}

func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.attrs[key]
	return val, ok
}

// Data is the serializable form of a Session.
type Data struct {
	ID         string            `json:"id"`
	UserID     *int              `json:"user_id,omitempty"`
	Username   string            `json:"username,omitempty"`
	Role       identity.Role     `json:"role,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (s *Session) Data() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := Data{
		ID:         s.id,
		Username:   s.username,
		Role:       s.role,
		Attributes: make(map[string]string, len(s.attrs)),
	}
	if s.userID != nil {
		uid := *s.userID
		d.UserID = &uid
	}
	for k, v := range s.attrs {
		d.Attributes[k] = v
	}
	return d
}

// Restore rebuilds a Session from its Data.
func Restore(d Data) *Session {
	s := &Session{
		id:       d.ID,
		username: d.Username,
		role:     d.Role,
		attrs:    make(map[string]string, len(d.Attributes)),
	}
	if d.UserID != nil {
		uid := *d.UserID
		s.userID = &uid
	}
	for k, v := range d.Attributes {
		s.attrs[k] = v
	}
	return s
}
