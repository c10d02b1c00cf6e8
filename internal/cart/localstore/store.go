// Package localstore keeps the in-memory cart of a page session and its
// mirror in client persistent storage.
package localstore

import (
	"context"
	"encoding/json"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultCartKey holds the JSON array of cart records.
	DefaultCartKey = "storefront-cart"
	// DefaultVersionKey holds the schema marker checked by Migrate.
	DefaultVersionKey = "storefront-cart-version"
	// SchemaVersion is bumped whenever the record format changes incompatibly.
	SchemaVersion = "v3-variants"
)

// record is the persisted shape of a cart line.
type record struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Size     *string         `json:"size"`
	Quantity int             `json:"quantity"`
	CartKey  string          `json:"cartKey"`
}

// Store owns the session's in-memory snapshot. Storage failures never reach
// callers; the in-memory snapshot stays authoritative for the session.
type Store struct {
	storage    storage.Storage
	logger     *zap.Logger
	cartKey    string
	versionKey string

	mu       sync.RWMutex
	snapshot domain.Snapshot
}

type Option func(*Store)

// WithKeys overrides the storage keys.
func WithKeys(cartKey, versionKey string) Option {
	return func(s *Store) {
		s.cartKey = cartKey
		s.versionKey = versionKey
	}
}

func New(st storage.Storage, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		storage:    st,
		logger:     logger,
		cartKey:    DefaultCartKey,
		versionKey: DefaultVersionKey,
		snapshot:   domain.Snapshot{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate clears persisted carts written by an incompatible schema version.
func (s *Store) Migrate(ctx context.Context) {
	version, ok, err := s.storage.GetItem(ctx, s.versionKey)
	if err != nil {
		s.logger.Warn("local cart: read version marker", zap.Error(err))
		return
	}
	if ok && version == SchemaVersion {
		return
	}
	if err := s.storage.RemoveItem(ctx, s.cartKey); err != nil {
		s.logger.Warn("local cart: clear legacy cart", zap.Error(err))
		return
	}
	if err := s.storage.SetItem(ctx, s.versionKey, SchemaVersion); err != nil {
		s.logger.Warn("local cart: write version marker", zap.Error(err))
		return
	}
	s.logger.Info("local cart: migrated", zap.String("from", version), zap.String("to", SchemaVersion))
}

// Load reads the persisted cart into memory and returns it. Missing or
// malformed data yields an empty snapshot.
func (s *Store) Load(ctx context.Context) domain.Snapshot {
	snap := s.read(ctx)
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap.Clone()
}

func (s *Store) read(ctx context.Context) domain.Snapshot {
	raw, ok, err := s.storage.GetItem(ctx, s.cartKey)
	if err != nil {
		s.logger.Warn("local cart: read failed", zap.Error(err))
		return domain.Snapshot{}
	}
	if !ok || raw == "" {
		return domain.Snapshot{}
	}
	snap, err := Decode([]byte(raw))
	if err != nil {
		s.logger.Warn("local cart: malformed data, starting empty", zap.Error(err))
		return domain.Snapshot{}
	}
	return snap
}

// Persist replaces the in-memory snapshot and writes it through on a best-effort basis.
func (s *Store) Persist(ctx context.Context, snap domain.Snapshot) {
	snap = snap.Clone()
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	raw, err := Encode(snap)
	if err != nil {
		s.logger.Error("local cart: encode failed", zap.Error(err))
		return
	}
	if err := s.storage.SetItem(ctx, s.cartKey, string(raw)); err != nil {
		s.logger.Warn("local cart: persist failed, keeping in-memory cart",
			zap.Int("lines", len(snap)), zap.Error(err))
	}
}

// Get returns a copy of the in-memory snapshot.
func (s *Store) Get() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.snapshot = domain.Snapshot{}
	s.mu.Unlock()
	if err := s.storage.RemoveItem(ctx, s.cartKey); err != nil {
		s.logger.Warn("local cart: clear failed", zap.Error(err))
	}
}

// Encode renders snap in the persisted record format.
func Encode(snap domain.Snapshot) ([]byte, error) {
	records := make([]record, 0, len(snap))
	for _, line := range snap {
		records = append(records, record{
			ID:       line.ProductID,
			Name:     line.Name,
			Price:    line.UnitPrice,
			Image:    line.Image,
			Size:     line.Variant.Ptr(),
			Quantity: line.Quantity,
			CartKey:  line.Key(),
		})
	}
	return json.Marshal(records)
}

// Decode parses persisted records. The stored cartKey is ignored and
// recomputed; invalid and duplicate records are dropped.
func Decode(raw []byte) (domain.Snapshot, error) {
	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	snap := make(domain.Snapshot, 0, len(records))
	for _, r := range records {
		snap = append(snap, domain.CartLine{
			ProductID: r.ID,
			Variant:   domain.VariantFromPtr(r.Size),
			Quantity:  r.Quantity,
			UnitPrice: r.Price,
			Name:      r.Name,
			Image:     r.Image,
		})
	}
	return snap.Normalize(), nil
}
