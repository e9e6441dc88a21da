package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/xraph/narrative/id"
	"github.com/xraph/narrative/identity"
	"github.com/xraph/narrative/record"
	"github.com/xraph/narrative/store/txn"
	"github.com/xraph/narrative/subscription"
	"github.com/xraph/narrative/types"
)

// snapshot is the on-disk form of a file-backed store. Records and
// subscriptions are kept in their fixed slot layout.
type snapshot struct {
	Records       []slot                               `json:"records"`
	Subscriptions []slot                               `json:"subscriptions"`
	Accounts      map[identity.Identity]types.Lamports `json:"accounts"`
}

// slot pairs a handle with the bytes it addresses. Price is only set for
// subscriptions.
type slot struct {
	ID    string         `json:"id"`
	Data  []byte         `json:"data"`
	Price types.Lamports `json:"price,omitempty"`
}

// Open loads the snapshot at path, or starts empty if the file does not
// exist, and rewrites it after every committed unit. A failed write reverts
// the unit.
func Open(path string) (*Store, error) {
	b := newBackend()
	if err := b.load(path); err != nil {
		return nil, err
	}
	hook := func(context.Context) error { return b.save(path) }
	return &Store{Store: txn.New(b, txn.WithCommitHook(hook)), b: b}, nil
}

func (b *backend) load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("narrative/memory: read %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("narrative/memory: decode %s: %w", path, err)
	}
	for _, sl := range snap.Records {
		recordID, err := id.ParseRecordID(sl.ID)
		if err != nil {
			return fmt.Errorf("narrative/memory: decode %s: %w", path, err)
		}
		r := &record.Record{ID: recordID}
		if err := r.UnmarshalBinary(sl.Data); err != nil {
			return fmt.Errorf("narrative/memory: decode %s: record %s: %w", path, sl.ID, err)
		}
		b.records[sl.ID] = r
	}
	for _, sl := range snap.Subscriptions {
		subID, err := id.ParseSubscriptionID(sl.ID)
		if err != nil {
			return fmt.Errorf("narrative/memory: decode %s: %w", path, err)
		}
		sub := &subscription.Subscription{ID: subID, Price: sl.Price}
		if err := sub.UnmarshalBinary(sl.Data); err != nil {
			return fmt.Errorf("narrative/memory: decode %s: subscription %s: %w", path, sl.ID, err)
		}
		b.subscriptions[sl.ID] = sub
	}
	for who, bal := range snap.Accounts {
		if bal.IsNegative() {
			return fmt.Errorf("narrative/memory: decode %s: negative balance for %s", path, who)
		}
		b.accounts[who] = bal
	}
	return nil
}

func (b *backend) save(path string) error {
	data, err := b.encode()
	if err != nil {
		return fmt.Errorf("narrative/memory: encode snapshot: %w", err)
	}
	return writeFile(path, data)
}

func (b *backend) encode() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := snapshot{
		Records:       make([]slot, 0, len(b.records)),
		Subscriptions: make([]slot, 0, len(b.subscriptions)),
		Accounts:      make(map[identity.Identity]types.Lamports, len(b.accounts)),
	}
	for key, r := range b.records {
		data, err := r.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", key, err)
		}
		snap.Records = append(snap.Records, slot{ID: key, Data: data})
	}
	for key, sub := range b.subscriptions {
		data, err := sub.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("subscription %s: %w", key, err)
		}
		snap.Subscriptions = append(snap.Subscriptions, slot{ID: key, Data: data, Price: sub.Price})
	}
	for who, bal := range b.accounts {
		snap.Accounts[who] = bal
	}
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].ID < snap.Records[j].ID })
	sort.Slice(snap.Subscriptions, func(i, j int) bool { return snap.Subscriptions[i].ID < snap.Subscriptions[j].ID })

	return json.MarshalIndent(snap, "", "  ")
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("narrative/memory: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".narrative-*.json")
	if err != nil {
		return fmt.Errorf("narrative/memory: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("narrative/memory: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("narrative/memory: write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("narrative/memory: replace %s: %w", path, err)
	}
	return nil
}
