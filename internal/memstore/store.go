// Package memstore — хранилище в памяти процесса с той же семантикой, что у postgres и firestore.
// Используется в -dev режиме (STORE_BACKEND=memory) и в тестах сервисов и обработчиков.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/google/uuid"
)

type pair struct{ a, b string }

type Store struct {
	mu        sync.RWMutex
	profiles  map[string]model.Profile
	contacts  map[pair]string
	blocks    map[pair]time.Time
	messages  map[string][]model.Message
	summaries map[pair]model.ChatSummary

	now    func() time.Time
	last   time.Time
	writes int
}

func New() *Store {
	return &Store{
		profiles:  make(map[string]model.Profile),
		contacts:  make(map[pair]string),
		blocks:    make(map[pair]time.Time),
		messages:  make(map[string][]model.Message),
		summaries: make(map[pair]model.ChatSummary),
		now:       time.Now,
	}
}

// SetClock подменяет источник времени (тесты).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Writes — число изменяющих операций с момента создания. Тесты проверяют «ноль записей».
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// serverTime — аналог серверной метки: строго возрастает даже при одинаковых показаниях часов.
func (s *Store) serverTime() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// PutProfile создаёт или заменяет профиль целиком (регистрация вне этого сервиса, сидинг).
func (s *Store) PutProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	s.writes++
}

// PutContact сохраняет имя, под которым owner записал peer.
func (s *Store) PutContact(ownerID, peerID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[pair{ownerID, peerID}] = name
	s.writes++
}

// CreateProfile и SaveName — те же операции сидинга в форме интерфейсов Postgres/Firestore.
func (s *Store) CreateProfile(ctx context.Context, p *model.Profile) error {
	s.PutProfile(*p)
	return nil
}

func (s *Store) SaveName(ctx context.Context, ownerID, peerID, name string) error {
	s.PutContact(ownerID, peerID, name)
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return apperr.ErrNotFound
	}
	p.Apply(u)
	p.UpdatedAt = s.serverTime()
	s.profiles[id] = p
	s.writes++
	return nil
}

func (s *Store) SetProfilePhoto(ctx context.Context, id, photoBase64 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return apperr.ErrNotFound
	}
	p.PhotoBase64 = photoBase64
	p.UpdatedAt = s.serverTime()
	s.profiles[id] = p
	s.writes++
	return nil
}

func (s *Store) GetSavedName(ctx context.Context, ownerID, peerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contacts[pair{ownerID, peerID}], nil
}

func (s *Store) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[pair{blockerID, blockedID}]
	return ok, nil
}

// BlockedAt — время записи блокировки; false, если её нет.
func (s *Store) BlockedAt(blockerID, blockedID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.blocks[pair{blockerID, blockedID}]
	return at, ok
}

func (s *Store) Block(ctx context.Context, blockerID, blockedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[pair{blockerID, blockedID}] = s.serverTime()
	s.writes++
	return nil
}

func (s *Store) Unblock(ctx context.Context, blockerID, blockedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{blockerID, blockedID}
	if _, ok := s.blocks[key]; ok {
		delete(s.blocks, key)
		s.writes++
	}
	return nil
}

func (s *Store) SendMessage(ctx context.Context, p model.SendParams) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, blocked := s.blocks[pair{p.SenderID, p.ReceiverID}]; blocked {
		return nil, apperr.ErrBlocked
	}
	ts := s.serverTime()
	m := model.Message{
		ID:             uuid.New().String(),
		ConversationID: p.ConversationID(),
		SenderID:       p.SenderID,
		ReceiverID:     p.ReceiverID,
		Body:           p.Body,
		CreatedAt:      ts,
		IsRead:         false,
		SenderName:     p.SenderName,
		ReceiverName:   p.ReceiverName,
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)

	s.summaries[pair{p.SenderID, p.ReceiverID}] = model.ChatSummary{
		OwnerID:       p.SenderID,
		PeerID:        p.ReceiverID,
		PeerName:      p.ReceiverName,
		PeerPhone:     p.ReceiverPhone,
		LastMessage:   p.Body,
		LastMessageAt: ts,
		UnreadCount:   0,
	}
	peerKey := pair{p.ReceiverID, p.SenderID}
	prev := s.summaries[peerKey].UnreadCount
	s.summaries[peerKey] = model.ChatSummary{
		OwnerID:       p.ReceiverID,
		PeerID:        p.SenderID,
		PeerName:      p.SenderName,
		PeerPhone:     p.SenderPhone,
		LastMessage:   p.Body,
		LastMessageAt: ts,
		UnreadCount:   prev + 1,
	}
	s.writes += 3
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.messages[conversationID]
	out := make([]model.Message, len(src))
	copy(out, src)
	model.SortMessages(out)
	return out, nil
}

func (s *Store) ResetUnread(ctx context.Context, ownerID, peerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{ownerID, peerID}
	sum, ok := s.summaries[key]
	if !ok {
		return apperr.ErrNotFound
	}
	sum.UnreadCount = 0
	s.summaries[key] = sum
	s.writes++
	return nil
}

func (s *Store) GetSummary(ctx context.Context, ownerID, peerID string) (*model.ChatSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[pair{ownerID, peerID}]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &sum, nil
}

func (s *Store) ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChatSummary
	for k, sum := range s.summaries {
		if k.a == ownerID {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].PeerID < out[j].PeerID
		}
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}
