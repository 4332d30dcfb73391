package sessions

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

type memStore struct {
	mu   sync.RWMutex
	byID map[string]Session
}

// NewMemoryStore returns a store preloaded with the given sessions.
func NewMemoryStore(seed ...Session) Store {
	m := &memStore{byID: map[string]Session{}}
	for _, s := range seed {
		m.byID[s.ID] = s
	}
	return m
}

// NewMemoryStoreFromJSON seeds a store from a JSON array of sessions
// (SESSION_SEED_JSON). Bad seeds are logged and ignored.
func NewMemoryStoreFromJSON(seed string, log *zap.SugaredLogger) Store {
	var entries []json.RawMessage
	if seed != "" {
		if err := json.Unmarshal([]byte(seed), &entries); err != nil && log != nil {
			log.Warnw("session seed ignored", "err", err)
		}
	}
	var sessions []Session
	for _, e := range entries {
		s, err := decodeSession(e)
		if err != nil || s.ID == "" {
			if log != nil {
				log.Warnw("session seed entry ignored", "err", err)
			}
			continue
		}
		sessions = append(sessions, s)
	}
	return NewMemoryStore(sessions...)
}

func (m *memStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return Session{}, ErrNotFound
}
