// Package refdata maintains the read-only reference caches: targets, users,
// teams and the checklist service catalog. The caches are refreshed wholesale
// while online and consumed for offline display. The sync core reads them but
// never owns or mutates individual entries.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fiscalia/campo/internal/store"
)

// Fetcher is the slice of the remote client the cache needs.
type Fetcher interface {
	FetchTargets(ctx context.Context) ([]json.RawMessage, error)
	FetchUsers(ctx context.Context) ([]json.RawMessage, error)
	FetchTeams(ctx context.Context) ([]json.RawMessage, error)
	FetchServices(ctx context.Context) ([]json.RawMessage, error)
}

// Target is the subset of a cached target used to enrich pending-submission
// listings. All other fields stay opaque in the cache record.
type Target struct {
	ID          int64  `json:"id"`
	ARTNumber   string `json:"numeroArt"`
	OwnerName   string `json:"nomeProprietario"`
	Company     string `json:"empresa"`
	SiteAddress string `json:"enderecoObra"`
}

// Service is one checklist catalog entry.
type Service struct {
	ID       int64  `json:"id"`
	Service  string `json:"servico"`
	Kind     string `json:"tipo"`
	Modality string `json:"modalidade"`
}

// Cache reads and refreshes the reference collections.
type Cache struct {
	store  *store.Store
	client Fetcher
	logger *slog.Logger
}

// New creates a Cache over the given store and remote fetcher.
func New(st *store.Store, client Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: st, client: client, logger: logger}
}

// RefreshAll replaces every reference collection with fresh API data.
// Collections are refreshed independently; a failure leaves the previous
// contents of the remaining collections untouched.
func (c *Cache) RefreshAll(ctx context.Context) error {
	refreshers := []struct {
		collection string
		fetch      func(context.Context) ([]json.RawMessage, error)
	}{
		{store.CollectionTargets, c.client.FetchTargets},
		{store.CollectionUsers, c.client.FetchUsers},
		{store.CollectionTeams, c.client.FetchTeams},
		{store.CollectionServices, c.client.FetchServices},
	}

	for _, r := range refreshers {
		if err := c.refresh(ctx, r.collection, r.fetch); err != nil {
			return fmt.Errorf("refresh %s: %w", r.collection, err)
		}
	}
	return nil
}

func (c *Cache) refresh(ctx context.Context, collection string, fetch func(context.Context) ([]json.RawMessage, error)) error {
	items, err := fetch(ctx)
	if err != nil {
		return err
	}

	recs := make([]store.CacheRecord, 0, len(items))
	for _, item := range items {
		key, ok := extractID(item)
		if !ok {
			// An entry without an id cannot be keyed; skip it rather than
			// poison the whole refresh.
			c.logger.Warn("skipping cache entry without id", "collection", collection)
			continue
		}
		recs = append(recs, store.CacheRecord{Key: key, Value: item})
	}

	if err := c.store.ClearCache(ctx, collection); err != nil {
		return err
	}
	if err := c.store.PutCacheRecords(ctx, collection, recs); err != nil {
		return err
	}

	c.logger.Info("cache refreshed", "collection", collection, "records", len(recs))
	return nil
}

// Target looks up a cached target by id. The second return value is false
// when the target is not cached (e.g. refresh never ran on this device).
func (c *Cache) Target(ctx context.Context, id int64) (Target, bool, error) {
	raw, ok, err := c.store.GetCacheRecord(ctx, store.CollectionTargets, fmt.Sprintf("%d", id))
	if err != nil || !ok {
		return Target{}, false, err
	}
	var t Target
	if err := json.Unmarshal(raw, &t); err != nil {
		return Target{}, false, fmt.Errorf("decode cached target %d: %w", id, err)
	}
	return t, true, nil
}

// ServicesByModality returns the cached checklist catalog grouped by
// modality, the shape the questionnaire is rendered from.
func (c *Cache) ServicesByModality(ctx context.Context) (map[string][]Service, error) {
	recs, err := c.store.ListCacheRecords(ctx, store.CollectionServices)
	if err != nil {
		return nil, err
	}

	grouped := map[string][]Service{}
	for _, rec := range recs {
		var svc Service
		if err := json.Unmarshal(rec.Value, &svc); err != nil {
			return nil, fmt.Errorf("decode cached service %s: %w", rec.Key, err)
		}
		if svc.Modality == "" {
			c.logger.Warn("cached service without modality", "key", rec.Key)
			continue
		}
		grouped[svc.Modality] = append(grouped[svc.Modality], svc)
	}
	return grouped, nil
}

// extractID pulls the "id" property out of a raw JSON object and renders it
// as a stable cache key. Numeric and string ids are both accepted.
func extractID(raw json.RawMessage) (string, bool) {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", false
	}
	switch id := probe.ID.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatInt(int64(id), 10), true
	}
	return "", false
}
