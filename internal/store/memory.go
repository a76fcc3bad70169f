package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/biabot/internal/domain"
)

// MemoryStore implements Repository in process memory. Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.ClientProfile
	options  []string
	logs     []domain.RequestLog
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]domain.ClientProfile)}
}

func (m *MemoryStore) GetClientProfile(_ context.Context, clientCode string) (*domain.ClientProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[domain.NormalizeClientCode(clientCode)]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyProfile(p)
	return &out, nil
}

func (m *MemoryStore) ListClientProfiles(_ context.Context) ([]domain.ClientProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ClientProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientName == out[j].ClientName {
			return out[i].ClientCode < out[j].ClientCode
		}
		return out[i].ClientName < out[j].ClientName
	})
	return out, nil
}

func (m *MemoryStore) UpsertClientProfile(_ context.Context, profile domain.ClientProfile) (*domain.ClientProfile, error) {
	profile.ClientCode = domain.NormalizeClientCode(profile.ClientCode)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ClientCode] = copyProfile(profile)
	out := copyProfile(profile)
	return &out, nil
}

func (m *MemoryStore) DeleteClientProfile(_ context.Context, clientCode string) error {
	code := domain.NormalizeClientCode(clientCode)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[code]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, code)
	return nil
}

func (m *MemoryStore) ListServiceOptions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.options) == 0 {
		return defaultServiceOptions(), nil
	}
	return append([]string(nil), m.options...), nil
}

func (m *MemoryStore) SetServiceOptions(_ context.Context, options []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = append([]string(nil), options...)
	return append([]string(nil), options...), nil
}

func (m *MemoryStore) CreateRequestLog(_ context.Context, log *domain.RequestLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *MemoryStore) ListRequestLogs(_ context.Context, limit, offset int) ([]domain.RequestLog, error) {
	limit, offset, ok := pageBounds(limit, offset)
	if !ok {
		return []domain.RequestLog{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RequestLog, 0, limit)
	for i := len(m.logs) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// copyProfile detaches the slices and map of p from the stored value.
func copyProfile(p domain.ClientProfile) domain.ClientProfile {
	data, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var out domain.ClientProfile
	if err := json.Unmarshal(data, &out); err != nil {
		return p
	}
	return out
}
