package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// ==================== Record models ====================

type recordModel struct {
	grove.BaseModel `grove:"table:narrative_records"`

	ID          string    `grove:"id,pk"       bson:"_id"`
	Score       int       `grove:"score"       bson:"score"`
	Platform    string    `grove:"platform"    bson:"platform"`
	Alternative string    `grove:"alternative" bson:"alternative"`
	Timestamp   int64     `grove:"timestamp"   bson:"timestamp"`
	Authority   string    `grove:"authority"   bson:"authority"`
	CreatedAt   time.Time `grove:"created_at"  bson:"created_at"`
}

func toRecordModel(r *record.Record) *recordModel {
	return &recordModel{
		ID:          r.ID.String(),
		Score:       int(r.Score),
		Platform:    r.Platform,
		Alternative: r.Alternative,
		Timestamp:   r.Timestamp,
		Authority:   r.Authority.String(),
		CreatedAt:   now(),
	}
}

func fromRecordModel(m *recordModel) (*record.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("narrative/mongo: record id: %w", err)
	}
	authority, err := identity.Parse(m.Authority)
	if err != nil {
		return nil, fmt.Errorf("narrative/mongo: record authority: %w", err)
	}
	if m.Score < 0 || m.Score > record.MaxScore {
		return nil, fmt.Errorf("narrative/mongo: record %s: score %d out of range", m.ID, m.Score)
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

	ID         string    `grove:"id,pk"      bson:"_id"`
	Subscriber string    `grove:"subscriber" bson:"subscriber"`
	StartTime  int64     `grove:"start_time" bson:"start_time"`
	EndTime    int64     `grove:"end_time"   bson:"end_time"`
	Active     bool      `grove:"active"     bson:"active"`
	Price      int64     `grove:"price"      bson:"price"`
	CreatedAt  time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at" bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	t := now()
	return &subscriptionModel{
		ID:         s.ID.String(),
		Subscriber: s.Subscriber.String(),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Active:     s.Active,
		Price:      int64(s.Price),
		CreatedAt:  t,
		UpdatedAt:  t,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("narrative/mongo: subscription id: %w", err)
	}
	subscriber, err := identity.Parse(m.Subscriber)
	if err != nil {
		return nil, fmt.Errorf("narrative/mongo: subscriber: %w", err)
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

	Address   string    `grove:"address,pk" bson:"_id"`
	Balance   int64     `grove:"balance"    bson:"balance"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}
