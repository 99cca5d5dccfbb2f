package router

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

var (
	ErrSessionNotFound  = errors.New("gallery session not found")
	ErrSessionForbidden = errors.New("gallery session belongs to another client")
)

// Session keeps one mounted gallery alive between requests of the same client.
type Session struct {
	ID      string
	Lang    string
	Page    string
	Gallery int

	owner     string
	mu        sync.Mutex
	component *gallery.Component
	events    *gallery.EventTarget
}

// Do runs fn with exclusive access to the session, so an action and the render
// that follows it see the same state.
func (s *Session) Do(fn func(comp *gallery.Component, events *gallery.EventTarget) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.component, s.events)
}

type SessionRegistry struct {
	cache *ristretto.Cache[string, *Session]
	ttl   time.Duration
	salt  []byte

	hashes *ristretto.Cache[string, string]
}

func NewSessionRegistry(ttl time.Duration, salt []byte) (*SessionRegistry, error) {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *Session]{
		NumCounters:        1e5,
		MaxCost:            1e4,
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnEvict: func(item *ristretto.Item[*Session]) {
			if item.Value == nil {
				return
			}
			slog.Debug("gallery session expired", slog.String("session", item.Value.ID))
			item.Value.component.OnUnmount()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fail to initialize session cache: %w", err)
	}

	hashes, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters:        1e5,
		MaxCost:            1e4,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("fail to initialize client hash cache: %w", err)
	}

	return &SessionRegistry{
		cache:  cache,
		ttl:    ttl,
		salt:   salt,
		hashes: hashes,
	}, nil
}

// GetHash returns the argon2 hash of a client id. Hashes of clients idle for
// longer than a session lives are computed again.
func (r *SessionRegistry) GetHash(id string) string {
	if val, ok := r.hashes.Get(id); ok {
		return val
	}

	hash := base64.RawStdEncoding.EncodeToString(argon2.IDKey([]byte(id), r.salt, 1, 64*1024, 4, 32))
	r.hashes.SetWithTTL(id, hash, 1, r.ttl)
	slog.Debug("generated hash", slog.String("hash", hash))
	return hash
}

// Create registers a mounted component for the client behind ip.
func (r *SessionRegistry) Create(ip, lang, page string, galleryIndex int, comp *gallery.Component, events *gallery.EventTarget) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Lang:      lang,
		Page:      page,
		Gallery:   galleryIndex,
		owner:     r.GetHash(ip),
		component: comp,
		events:    events,
	}

	r.cache.SetWithTTL(session.ID, session, 1, r.ttl)
	r.cache.Wait()
	return session
}

// Get returns the session and pushes its expiry back.
func (r *SessionRegistry) Get(id, ip string) (*Session, error) {
	session, ok := r.cache.Get(id)
	if !ok || session == nil {
		return nil, fmt.Errorf("'%s': %w", id, ErrSessionNotFound)
	}
	if session.owner != r.GetHash(ip) {
		return nil, fmt.Errorf("'%s': %w", id, ErrSessionForbidden)
	}

	r.cache.SetWithTTL(id, session, 1, r.ttl)
	return session, nil
}

// Delete unmounts the component and forgets the session.
func (r *SessionRegistry) Delete(id, ip string) error {
	session, err := r.Get(id, ip)
	if err != nil {
		return err
	}

	r.cache.Del(id)
	r.cache.Wait()
	session.mu.Lock()
	defer session.mu.Unlock()
	session.component.OnUnmount()
	return nil
}

func (r *SessionRegistry) Close() {
	r.cache.Clear()
	r.cache.Close()
	r.hashes.Close()
}
