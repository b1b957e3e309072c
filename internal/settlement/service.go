// internal/settlement/service.go

// Package settlement turns a month's projects into designer payouts and
// moves the resulting settlement through draft, confirmed and paid.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"studio-settlement/internal/calculator"
	"studio-settlement/internal/domain"
	"studio-settlement/internal/events"
	"studio-settlement/internal/storage"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidShares     = errors.New("invalid designer shares")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions lists the statuses reachable from each status.
var transitions = map[domain.SettlementStatus][]domain.SettlementStatus{
	domain.SettlementDraft:     {domain.SettlementConfirmed},
	domain.SettlementConfirmed: {domain.SettlementDraft, domain.SettlementPaid},
}

func CanTransition(from, to domain.SettlementStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Store interface {
	storage.ProjectStorage
	storage.SettlementStorage
	storage.FeedStorage
}

type Service struct {
	store     Store
	rates     calculator.RateTable
	publisher events.Publisher
	workers   int
	now       func() time.Time
}

func NewService(store Store, rates calculator.RateTable, publisher events.Publisher, workers int) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:     store,
		rates:     rates,
		publisher: publisher,
		workers:   workers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Rates() calculator.RateTable {
	return s.rates
}

// Preview computes the month's settlement without saving it. The result has
// no ID and an empty status.
func (s *Service) Preview(ctx context.Context, month string) (*domain.Settlement, error) {
	rates, items, err := s.compute(ctx, month)
	if err != nil {
		return nil, err
	}
	st := &domain.Settlement{Month: month, RateVersion: rates.Version, Items: items}
	for _, it := range items {
		st.TotalBeforeWithholding += it.AmountBeforeWithholding
		st.TotalWithholding += it.Withholding
		st.TotalAfterWithholding += it.AmountAfterWithholding
	}
	return st, nil
}

// Generate recomputes the month and replaces the draft's items. A confirmed
// or paid month fails with storage.ErrSettlementLocked.
func (s *Service) Generate(ctx context.Context, month string, actorID int64) (*domain.Settlement, error) {
	existing, err := s.store.GetSettlement(ctx, month)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != domain.SettlementDraft {
		return nil, fmt.Errorf("settlement %s is %s: %w", month, existing.Status, storage.ErrSettlementLocked)
	}

	rates, items, err := s.compute(ctx, month)
	if err != nil {
		return nil, err
	}

	st, err := s.store.SaveSettlementDraft(ctx, month, rates.Version, items)
	if err != nil {
		return nil, fmt.Errorf("save settlement draft: %w", err)
	}
	slog.Info("settlement generated", "month", month, "items", len(st.Items),
		"rate_version", st.RateVersion, "total_after_withholding", st.TotalAfterWithholding)

	s.feed(ctx, domain.FeedItem{
		Kind:    domain.FeedSettlementGenerated,
		ActorID: actorRef(actorID),
		Message: fmt.Sprintf("%s settlement generated: %d items, %d KRW after withholding", month, len(st.Items), st.TotalAfterWithholding),
	})
	s.publish(ctx, events.Event{
		Type:    events.TypeSettlementGenerated,
		Month:   month,
		Status:  string(st.Status),
		ActorID: actorID,
		Items:   len(st.Items),
		Total:   st.TotalAfterWithholding,
	})
	return st, nil
}

// Transition moves the month's settlement to status to.
func (s *Service) Transition(ctx context.Context, month string, to domain.SettlementStatus, actorID int64) (*domain.Settlement, error) {
	current, err := s.store.GetSettlement(ctx, month)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("settlement %s: %w", month, storage.ErrNotFound)
	}
	from := current.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	if err := s.store.SetSettlementStatus(ctx, month, from, to); err != nil {
		return nil, err
	}
	slog.Info("settlement status changed", "month", month, "from", from, "to", to, "actor_id", actorID)

	s.feed(ctx, domain.FeedItem{
		Kind:    domain.FeedSettlementStatus,
		ActorID: actorRef(actorID),
		Message: fmt.Sprintf("%s settlement: %s -> %s", month, from, to),
	})
	s.publish(ctx, events.Event{
		Type:       events.TypeSettlementStatusChanged,
		Month:      month,
		Status:     string(to),
		PrevStatus: string(from),
		ActorID:    actorID,
		Total:      current.TotalAfterWithholding,
	})

	return s.store.GetSettlement(ctx, month)
}

// ProjectBreakdown computes one project with the rates in force for its
// settle month, or the latest rates when it has none.
func (s *Service) ProjectBreakdown(p domain.Project) (calculator.ProjectBreakdown, error) {
	calc, err := s.rates.CalculatorFor(p.SettleMonth)
	if err != nil {
		return calculator.ProjectBreakdown{}, err
	}
	return calc.Project(financials(p), shares(p.Designers))
}

func (s *Service) compute(ctx context.Context, month string) (calculator.Rates, []domain.SettlementItem, error) {
	if month == "" {
		return calculator.Rates{}, nil, fmt.Errorf("%w: month is required", calculator.ErrInvalidInput)
	}
	rates, err := s.rates.For(month)
	if err != nil {
		return calculator.Rates{}, nil, err
	}
	calc, err := calculator.New(rates)
	if err != nil {
		return calculator.Rates{}, nil, err
	}

	all, err := s.store.ListProjects(ctx, domain.ProjectFilter{SettleMonth: month})
	if err != nil {
		return calculator.Rates{}, nil, fmt.Errorf("list projects: %w", err)
	}
	projects := all[:0]
	for _, p := range all {
		if p.Status != domain.ProjectCancelled {
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })

	results := make([][]domain.SettlementItem, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items, err := projectItems(calc, p)
			if err != nil {
				return fmt.Errorf("%w: project %d (%s): %w", ErrInvalidShares, p.ID, p.Name, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return calculator.Rates{}, nil, err
	}

	items := []domain.SettlementItem{}
	for _, r := range results {
		items = append(items, r...)
	}
	return rates, items, nil
}

func projectItems(calc *calculator.Calculator, p domain.Project) ([]domain.SettlementItem, error) {
	bd, err := calc.Project(financials(p), shares(p.Designers))
	if err != nil {
		return nil, err
	}

	items := make([]domain.SettlementItem, len(bd.Payouts))
	for i, pay := range bd.Payouts {
		items[i] = domain.SettlementItem{
			ProjectID:               p.ID,
			ProjectName:             p.Name,
			MemberID:                pay.MemberID,
			MemberName:              p.Designers[i].MemberName,
			Percent:                 pay.Percent,
			BonusPct:                pay.BonusPct,
			GrossAmount:             p.GrossAmount,
			DistributableNet:        bd.Fees.DistributableNet,
			AmountBeforeWithholding: pay.BeforeWithholding,
			Withholding:             pay.WithholdingTax,
			AmountAfterWithholding:  pay.AfterWithholding,
		}
	}
	return items, nil
}

func financials(p domain.Project) calculator.ProjectFinancials {
	return calculator.ProjectFinancials{
		GrossAmount:    p.GrossAmount,
		DiscountNet:    p.DiscountNet,
		ChannelFeeRate: p.ChannelFeeRate,
	}
}

func shares(designers []domain.DesignerShare) []calculator.DesignerShare {
	out := make([]calculator.DesignerShare, len(designers))
	for i, d := range designers {
		out[i] = calculator.DesignerShare{MemberID: d.MemberID, Percent: d.Percent, BonusPct: d.BonusPct}
	}
	return out
}

func (s *Service) feed(ctx context.Context, item domain.FeedItem) {
	item.CreatedAt = s.now()
	if _, err := s.store.AddFeedItem(ctx, item); err != nil {
		slog.Warn("could not record feed item", "kind", item.Kind, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now()
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.Warn("could not publish event", "type", e.Type, "month", e.Month, "error", err)
	}
}

func actorRef(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
