// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"studio-settlement/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrSettlementLocked = errors.New("settlement is not a draft")
	ErrConflict         = errors.New("already exists")
	// ErrBadReference means a written record points at a row that does not exist.
	ErrBadReference     = errors.New("referenced record does not exist")
)

type MemberStorage interface {
	CreateMember(ctx context.Context, m domain.Member) (int64, error)
	UpdateMember(ctx context.Context, m domain.Member) error
	SetMemberPassword(ctx context.Context, id int64, passwordHash string) error
	GetMember(ctx context.Context, id int64) (*domain.Member, error)
	FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error)
	FindMemberByTelegramID(ctx context.Context, telegramID int64) (*domain.Member, error)
	ListMembers(ctx context.Context, activeOnly bool) ([]domain.Member, error)
	DeleteMember(ctx context.Context, id int64) error
}

type ChannelStorage interface {
	CreateChannel(ctx context.Context, ch domain.Channel) (int64, error)
	UpdateChannel(ctx context.Context, ch domain.Channel) error
	GetChannel(ctx context.Context, id int64) (*domain.Channel, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
	DeleteChannel(ctx context.Context, id int64) error
}

type ContactStorage interface {
	CreateContact(ctx context.Context, c domain.Contact) (int64, error)
	UpdateContact(ctx context.Context, c domain.Contact) error
	GetContact(ctx context.Context, id int64) (*domain.Contact, error)
	ListContacts(ctx context.Context, query string) ([]domain.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
}

type ProjectStorage interface {
	CreateProject(ctx context.Context, p domain.Project) (int64, error)
	UpdateProject(ctx context.Context, p domain.Project) error
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	ListProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error)
	DeleteProject(ctx context.Context, id int64) error
}

type FeedStorage interface {
	AddFeedItem(ctx context.Context, item domain.FeedItem) (int64, error)
	ListFeed(ctx context.Context, limit int, beforeID int64) ([]domain.FeedItem, error)
}

type SettlementStorage interface {
	// SaveSettlementDraft replaces every item of the month's settlement,
	// creating it as a draft if needed. ErrSettlementLocked if not a draft.
	SaveSettlementDraft(ctx context.Context, month, rateVersion string, items []domain.SettlementItem) (*domain.Settlement, error)
	GetSettlement(ctx context.Context, month string) (*domain.Settlement, error)
	ListSettlements(ctx context.Context) ([]domain.Settlement, error)
	SetSettlementStatus(ctx context.Context, month string, from, to domain.SettlementStatus) error
	MemberSummaries(ctx context.Context, month string) ([]domain.MemberSummary, error)
	MemberItems(ctx context.Context, month string, memberID int64) ([]domain.SettlementItem, error)
}

// Store is everything the application persists.
type Store interface {
	MemberStorage
	ChannelStorage
	ContactStorage
	ProjectStorage
	FeedStorage
	SettlementStorage
}
