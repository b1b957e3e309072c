// internal/domain/models.go
package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDesigner Role = "designer"
)

type Member struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	BankName     string    `json:"bank_name,omitempty"`
	BankAccount  string    `json:"bank_account,omitempty"`
	TelegramID   *int64    `json:"telegram_id,omitempty"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Channel is a sales channel and the fraction of net it takes
type Channel struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FeeRate   float64   `json:"fee_rate"`
	CreatedAt time.Time `json:"created_at"`
}

type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ProjectStatus string

const (
	ProjectPlanned    ProjectStatus = "planned"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// DesignerShare is a designer's slice of the pool plus bonus, both in percent of net
type DesignerShare struct {
	MemberID   int64   `json:"member_id"`
	MemberName string  `json:"member_name,omitempty"`
	Percent    float64 `json:"percent"`
	BonusPct   float64 `json:"bonus_pct"`
}

type Project struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	ContactID      *int64          `json:"contact_id,omitempty"`
	ChannelID      int64           `json:"channel_id"`
	ChannelName    string          `json:"channel_name,omitempty"`
	ChannelFeeRate float64         `json:"channel_fee_rate"`
	GrossAmount    int64           `json:"gross_amount"`
	DiscountNet    int64           `json:"discount_net"`
	Status         ProjectStatus   `json:"status"`
	SettleMonth    string          `json:"settle_month"`
	Memo           string          `json:"memo,omitempty"`
	Designers      []DesignerShare `json:"designers"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type ProjectFilter struct {
	Status      ProjectStatus
	SettleMonth string
	MemberID    int64
}

type FeedKind string

const (
	FeedProjectCreated      FeedKind = "project_created"
	FeedProjectUpdated      FeedKind = "project_updated"
	FeedProjectDeleted      FeedKind = "project_deleted"
	FeedSettlementGenerated FeedKind = "settlement_generated"
	FeedSettlementStatus    FeedKind = "settlement_status"
	FeedNote                FeedKind = "note"
)

type FeedItem struct {
	ID        int64     `json:"id"`
	Kind      FeedKind  `json:"kind"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	ProjectID *int64    `json:"project_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type SettlementStatus string

const (
	SettlementDraft     SettlementStatus = "draft"
	SettlementConfirmed SettlementStatus = "confirmed"
	SettlementPaid      SettlementStatus = "paid"
)

type Settlement struct {
	ID                     int64            `json:"id"`
	Month                  string           `json:"month"`
	Status                 SettlementStatus `json:"status"`
	RateVersion            string           `json:"rate_version"`
	TotalBeforeWithholding int64            `json:"total_before_withholding"`
	TotalWithholding       int64            `json:"total_withholding"`
	TotalAfterWithholding  int64            `json:"total_after_withholding"`
	Items                  []SettlementItem `json:"items,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
	ConfirmedAt            *time.Time       `json:"confirmed_at,omitempty"`
	PaidAt                 *time.Time       `json:"paid_at,omitempty"`
}

// SettlementItem is one designer's payout for one project in a settlement month
type SettlementItem struct {
	ID                      int64   `json:"id"`
	SettlementID            int64   `json:"settlement_id"`
	ProjectID               int64   `json:"project_id"`
	ProjectName             string  `json:"project_name"`
	MemberID                int64   `json:"member_id"`
	MemberName              string  `json:"member_name"`
	Percent                 float64 `json:"percent"`
	BonusPct                float64 `json:"bonus_pct"`
	GrossAmount             int64   `json:"gross_amount"`
	DistributableNet        int64   `json:"distributable_net"`
	AmountBeforeWithholding int64   `json:"amount_before_withholding"`
	Withholding             int64   `json:"withholding_3_3"`
	AmountAfterWithholding  int64   `json:"amount_after_withholding"`
}

type MemberSummary struct {
	MemberID                int64  `json:"member_id"`
	MemberName              string `json:"member_name"`
	Projects                int    `json:"projects"`
	AmountBeforeWithholding int64  `json:"amount_before_withholding"`
	Withholding             int64  `json:"withholding_3_3"`
	AmountAfterWithholding  int64  `json:"amount_after_withholding"`
}
