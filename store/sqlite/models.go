package sqlite

import (
	"fmt"

	"github.com/xraph/grove"

	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// created_at and updated_at are maintained by the database; SQLite hands
// them back as TEXT, so the models leave them unmapped.

// ==================== Record models ====================

type recordModel struct {
	grove.BaseModel `grove:"table:narrative_records"`

	ID          string `grove:"id,pk"`
	Score       int    `grove:"score"`
	Platform    string `grove:"platform"`
	Alternative string `grove:"alternative"`
	Timestamp   int64  `grove:"timestamp"`
	Authority   string `grove:"authority"`
}

func toRecordModel(r *record.Record) *recordModel {
	return &recordModel{
		ID:          r.ID.String(),
		Score:       int(r.Score),
		Platform:    r.Platform,
		Alternative: r.Alternative,
		Timestamp:   r.Timestamp,
		Authority:   r.Authority.String(),
	}
}

func fromRecordModel(m *recordModel) (*record.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("narrative/sqlite: record id: %w", err)
	}
	authority, err := identity.Parse(m.Authority)
	if err != nil {
		return nil, fmt.Errorf("narrative/sqlite: record authority: %w", err)
	}
	if m.Score < 0 || m.Score > record.MaxScore {
		return nil, fmt.Errorf("narrative/sqlite: record %s: score %d out of range", m.ID, m.Score)
	}
	return &record.Record{
		ID:          recordID,
		Score:       uint8(m.Score),
		Platform:    m.Platform,
		Alternative: m.Alternative,
		Timestamp:   m.Timestamp,
		Authority:   authority,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:narrative_subscriptions"`

	ID         string `grove:"id,pk"`
	Subscriber string `grove:"subscriber"`
	StartTime  int64  `grove:"start_time"`
	EndTime    int64  `grove:"end_time"`
	Active     bool   `grove:"active"`
	Price      int64  `grove:"price"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:         s.ID.String(),
		Subscriber: s.Subscriber.String(),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Active:     s.Active,
		Price:      int64(s.Price),
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("narrative/sqlite: subscription id: %w", err)
	}
	subscriber, err := identity.Parse(m.Subscriber)
	if err != nil {
		return nil, fmt.Errorf("narrative/sqlite: subscriber: %w", err)
	}
	return &subscription.Subscription{
		ID:         subID,
		Subscriber: subscriber,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
		Active:     m.Active,
		Price:      types.Lamports(m.Price),
	}, nil
}

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:narrative_accounts"`

	Address string `grove:"address,pk"`
	Balance int64  `grove:"balance"`
}

func toAccountModel(who identity.Identity, balance types.Lamports) *accountModel {
	return &accountModel{
		Address: who.String(),
		Balance: int64(balance),
	}
}
