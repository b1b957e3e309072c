// internal/storage/memory/memory.go

// Package memory is an in-process Store. It backs DATA_BACKEND=memory for
// local runs and serves as the storage double in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studio-settlement/internal/domain"
	"studio-settlement/internal/storage"
)

type Storage struct {
	mu sync.RWMutex

	nextID int64
	now    func() time.Time

	members     map[int64]domain.Member
	channels    map[int64]domain.Channel
	contacts    map[int64]domain.Contact
	projects    map[int64]domain.Project
	feed        []domain.FeedItem
	settlements map[string]*domain.Settlement
}

var _ storage.Store = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{
		now:         func() time.Time { return time.Now().UTC() },
		members:     make(map[int64]domain.Member),
		channels:    make(map[int64]domain.Channel),
		contacts:    make(map[int64]domain.Contact),
		projects:    make(map[int64]domain.Project),
		settlements: make(map[string]*domain.Settlement),
	}
}

func (s *Storage) id() int64 {
	s.nextID++
	return s.nextID
}

// === MemberStorage ===

func (s *Storage) CreateMember(ctx context.Context, m domain.Member) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if strings.EqualFold(existing.Email, m.Email) {
			return 0, fmt.Errorf("member %q: %w", m.Email, storage.ErrConflict)
		}
	}
	m.ID = s.id()
	m.CreatedAt = s.now()
	s.members[m.ID] = m
	return m.ID, nil
}

func (s *Storage) UpdateMember(ctx context.Context, m domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[m.ID]
	if !ok {
		return fmt.Errorf("member %d: %w", m.ID, storage.ErrNotFound)
	}
	for id, other := range s.members {
		if id != m.ID && strings.EqualFold(other.Email, m.Email) {
			return fmt.Errorf("member %q: %w", m.Email, storage.ErrConflict)
		}
	}
	m.PasswordHash = existing.PasswordHash
	m.CreatedAt = existing.CreatedAt
	s.members[m.ID] = m
	return nil
}

func (s *Storage) SetMemberPassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return fmt.Errorf("member %d: %w", id, storage.ErrNotFound)
	}
	m.PasswordHash = passwordHash
	s.members[id] = m
	return nil
}

func (s *Storage) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Storage) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if strings.EqualFold(m.Email, email) {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *Storage) FindMemberByTelegramID(ctx context.Context, telegramID int64) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if m.TelegramID != nil && *m.TelegramID == telegramID {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *Storage) ListMembers(ctx context.Context, activeOnly bool) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Storage) DeleteMember(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return fmt.Errorf("member %d: %w", id, storage.ErrNotFound)
	}
	for _, p := range s.projects {
		for _, d := range p.Designers {
			if d.MemberID == id {
				return fmt.Errorf("member %d is assigned to project %d: %w", id, p.ID, storage.ErrConflict)
			}
		}
	}
	delete(s.members, id)
	return nil
}

// === ChannelStorage ===

func (s *Storage) CreateChannel(ctx context.Context, ch domain.Channel) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.channels {
		if existing.Name == ch.Name {
			return 0, fmt.Errorf("channel %q: %w", ch.Name, storage.ErrConflict)
		}
	}
	ch.ID = s.id()
	ch.CreatedAt = s.now()
	s.channels[ch.ID] = ch
	return ch.ID, nil
}

func (s *Storage) UpdateChannel(ctx context.Context, ch domain.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.channels[ch.ID]
	if !ok {
		return fmt.Errorf("channel %d: %w", ch.ID, storage.ErrNotFound)
	}
	ch.CreatedAt = existing.CreatedAt
	s.channels[ch.ID] = ch
	return nil
}

func (s *Storage) GetChannel(ctx context.Context, id int64) (*domain.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (s *Storage) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Storage) DeleteChannel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[id]; !ok {
		return fmt.Errorf("channel %d: %w", id, storage.ErrNotFound)
	}
	for _, p := range s.projects {
		if p.ChannelID == id {
			return fmt.Errorf("channel %d is used by project %d: %w", id, p.ID, storage.ErrConflict)
		}
	}
	delete(s.channels, id)
	return nil
}

// === ContactStorage ===

func (s *Storage) CreateContact(ctx context.Context, c domain.Contact) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id()
	c.CreatedAt = s.now()
	s.contacts[c.ID] = c
	return c.ID, nil
}

func (s *Storage) UpdateContact(ctx context.Context, c domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[c.ID]
	if !ok {
		return fmt.Errorf("contact %d: %w", c.ID, storage.ErrNotFound)
	}
	c.CreatedAt = existing.CreatedAt
	s.contacts[c.ID] = c
	return nil
}

func (s *Storage) GetContact(ctx context.Context, id int64) (*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Storage) ListContacts(ctx context.Context, query string) ([]domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Company), q) &&
			!strings.Contains(strings.ToLower(c.Email), q) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Storage) DeleteContact(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return fmt.Errorf("contact %d: %w", id, storage.ErrNotFound)
	}
	delete(s.contacts, id)
	// ON DELETE SET NULL
	for pid, p := range s.projects {
		if p.ContactID != nil && *p.ContactID == id {
			p.ContactID = nil
			s.projects[pid] = p
		}
	}
	return nil
}

// === ProjectStorage ===

func (s *Storage) checkProjectRefs(p domain.Project) error {
	if _, ok := s.channels[p.ChannelID]; !ok {
		return fmt.Errorf("channel %d: %w", p.ChannelID, storage.ErrBadReference)
	}
	if p.ContactID != nil {
		if _, ok := s.contacts[*p.ContactID]; !ok {
			return fmt.Errorf("contact %d: %w", *p.ContactID, storage.ErrBadReference)
		}
	}
	for _, d := range p.Designers {
		if _, ok := s.members[d.MemberID]; !ok {
			return fmt.Errorf("member %d: %w", d.MemberID, storage.ErrBadReference)
		}
	}
	return nil
}

func (s *Storage) CreateProject(ctx context.Context, p domain.Project) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkProjectRefs(p); err != nil {
		return 0, err
	}
	p.ID = s.id()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	p.Designers = append([]domain.DesignerShare(nil), p.Designers...)
	s.projects[p.ID] = p
	return p.ID, nil
}

func (s *Storage) UpdateProject(ctx context.Context, p domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[p.ID]
	if !ok {
		return fmt.Errorf("project %d: %w", p.ID, storage.ErrNotFound)
	}
	if err := s.checkProjectRefs(p); err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	p.Designers = append([]domain.DesignerShare(nil), p.Designers...)
	s.projects[p.ID] = p
	return nil
}

func (s *Storage) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	p = s.hydrate(p)
	return &p, nil
}

func (s *Storage) ListProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.SettleMonth != "" && p.SettleMonth != filter.SettleMonth {
			continue
		}
		if filter.MemberID != 0 && !hasDesigner(p, filter.MemberID) {
			continue
		}
		out = append(out, s.hydrate(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Storage) DeleteProject(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, storage.ErrNotFound)
	}
	delete(s.projects, id)
	return nil
}

// hydrate fills the joined columns the postgres backend selects.
func (s *Storage) hydrate(p domain.Project) domain.Project {
	if ch, ok := s.channels[p.ChannelID]; ok {
		p.ChannelName = ch.Name
		p.ChannelFeeRate = ch.FeeRate
	}
	designers := make([]domain.DesignerShare, len(p.Designers))
	for i, d := range p.Designers {
		if m, ok := s.members[d.MemberID]; ok {
			d.MemberName = m.Name
		}
		designers[i] = d
	}
	p.Designers = designers
	return p
}

func hasDesigner(p domain.Project, memberID int64) bool {
	for _, d := range p.Designers {
		if d.MemberID == memberID {
			return true
		}
	}
	return false
}

// === FeedStorage ===

func (s *Storage) AddFeedItem(ctx context.Context, item domain.FeedItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = s.id()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.feed = append(s.feed, item)
	return item.ID, nil
}

func (s *Storage) ListFeed(ctx context.Context, limit int, beforeID int64) ([]domain.FeedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FeedItem, 0, limit)
	for i := len(s.feed) - 1; i >= 0 && len(out) < limit; i-- {
		if beforeID > 0 && s.feed[i].ID >= beforeID {
			continue
		}
		out = append(out, s.feed[i])
	}
	return out, nil
}

// === SettlementStorage ===

func (s *Storage) SaveSettlementDraft(ctx context.Context, month, rateVersion string, items []domain.SettlementItem) (*domain.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settlements[month]
	if ok && st.Status != domain.SettlementDraft {
		return nil, fmt.Errorf("settlement %s is %s: %w", month, st.Status, storage.ErrSettlementLocked)
	}
	now := s.now()
	if !ok {
		st = &domain.Settlement{
			ID:        s.id(),
			Month:     month,
			Status:    domain.SettlementDraft,
			CreatedAt: now,
		}
		s.settlements[month] = st
	}

	st.RateVersion = rateVersion
	st.UpdatedAt = now
	st.Items = make([]domain.SettlementItem, len(items))
	st.TotalBeforeWithholding, st.TotalWithholding, st.TotalAfterWithholding = 0, 0, 0
	for i, it := range items {
		it.ID = s.id()
		it.SettlementID = st.ID
		st.Items[i] = it
		st.TotalBeforeWithholding += it.AmountBeforeWithholding
		st.TotalWithholding += it.Withholding
		st.TotalAfterWithholding += it.AmountAfterWithholding
	}

	return copySettlement(st, true), nil
}

func (s *Storage) GetSettlement(ctx context.Context, month string) (*domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settlements[month]
	if !ok {
		return nil, nil
	}
	return copySettlement(st, true), nil
}

func (s *Storage) ListSettlements(ctx context.Context) ([]domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Settlement, 0, len(s.settlements))
	for _, st := range s.settlements {
		out = append(out, *copySettlement(st, false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (s *Storage) SetSettlementStatus(ctx context.Context, month string, from, to domain.SettlementStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settlements[month]
	if !ok {
		return fmt.Errorf("settlement %s: %w", month, storage.ErrNotFound)
	}
	if st.Status != from {
		return fmt.Errorf("settlement %s is %s, not %s: %w", month, st.Status, from, storage.ErrConflict)
	}

	now := s.now()
	st.Status = to
	st.UpdatedAt = now
	switch to {
	case domain.SettlementDraft:
		st.ConfirmedAt = nil
	case domain.SettlementConfirmed:
		st.ConfirmedAt = &now
	case domain.SettlementPaid:
		st.PaidAt = &now
	}
	return nil
}

func (s *Storage) MemberSummaries(ctx context.Context, month string) ([]domain.MemberSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settlements[month]
	if !ok {
		return []domain.MemberSummary{}, nil
	}

	byMember := make(map[int64]*domain.MemberSummary)
	projects := make(map[int64]map[int64]bool)
	for _, it := range st.Items {
		sum, ok := byMember[it.MemberID]
		if !ok {
			sum = &domain.MemberSummary{MemberID: it.MemberID, MemberName: it.MemberName}
			byMember[it.MemberID] = sum
			projects[it.MemberID] = make(map[int64]bool)
		}
		projects[it.MemberID][it.ProjectID] = true
		sum.AmountBeforeWithholding += it.AmountBeforeWithholding
		sum.Withholding += it.Withholding
		sum.AmountAfterWithholding += it.AmountAfterWithholding
	}

	out := make([]domain.MemberSummary, 0, len(byMember))
	for id, sum := range byMember {
		sum.Projects = len(projects[id])
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberName != out[j].MemberName {
			return out[i].MemberName < out[j].MemberName
		}
		return out[i].MemberID < out[j].MemberID
	})
	return out, nil
}

func (s *Storage) MemberItems(ctx context.Context, month string, memberID int64) ([]domain.SettlementItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settlements[month]
	if !ok {
		return nil, nil
	}
	var out []domain.SettlementItem
	for _, it := range st.Items {
		if it.MemberID == memberID {
			out = append(out, it)
		}
	}
	return out, nil
}

func copySettlement(st *domain.Settlement, withItems bool) *domain.Settlement {
	c := *st
	if withItems {
		c.Items = append([]domain.SettlementItem(nil), st.Items...)
	} else {
		c.Items = nil
	}
	return &c
}
