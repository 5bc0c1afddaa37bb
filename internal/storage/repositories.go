package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/cache"
)

var (
	// catalogPrefix scopes every catalogue entry so one prefix delete
	// clears them all.
	catalogPrefix    = cache.CacheKey("campaigns", "")
	campaignNamesKey = cache.CacheKey("campaigns", "names")
)

// CampaignRepository reads campaign identities from the metrics table.
type CampaignRepository struct {
	db DB
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// DistinctNames returns every non-null campaign name, sorted.
func (r *CampaignRepository) DistinctNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT ` + ColCampaignName + `
		FROM ` + TableCampaignMetrics + `
		WHERE ` + ColCampaignName + ` IS NOT NULL
		ORDER BY ` + ColCampaignName
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FunnelRepository reads reference values from the funnel table.
type FunnelRepository struct {
	db DB
}

// NewFunnelRepository creates a new funnel repository.
func NewFunnelRepository(db DB) *FunnelRepository {
	return &FunnelRepository{db: db}
}

// DistinctUTMCampaigns returns the lowercased utm_campaign values present.
func (r *FunnelRepository) DistinctUTMCampaigns(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT LOWER(` + ColUTMCampaign + `)
		FROM ` + TableFunnel + `
		WHERE ` + ColUTMCampaign + ` IS NOT NULL
		ORDER BY 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CampaignCatalog serves the campaign name list through a cache.
type CampaignCatalog struct {
	repo  *CampaignRepository
	cache cache.Client
	ttl   time.Duration
}

// NewCampaignCatalog creates a catalog. A nil cache disables caching.
func NewCampaignCatalog(repo *CampaignRepository, c cache.Client, ttl time.Duration) *CampaignCatalog {
	return &CampaignCatalog{repo: repo, cache: c, ttl: ttl}
}

// Names returns the distinct campaign names, using the cache when warm.
func (c *CampaignCatalog) Names(ctx context.Context) ([]string, error) {
	if c.cache != nil && c.ttl > 0 {
		var names []string
		err := cache.GetJSON(ctx, c.cache, campaignNamesKey, &names)
		if err == nil {
			return names, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			// a broken entry is treated as a miss
			_ = c.cache.Delete(ctx, campaignNamesKey)
		}
	}

	names, err := c.repo.DistinctNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list campaign names: %w", err)
	}

	if c.cache != nil && c.ttl > 0 {
		_ = cache.SetJSON(ctx, c.cache, campaignNamesKey, names, c.ttl)
	}
	return names, nil
}

// Invalidate drops every cached catalogue entry.
func (c *CampaignCatalog) Invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.DeleteByPrefix(ctx, catalogPrefix); err != nil {
		return fmt.Errorf("invalidate campaign catalogue: %w", err)
	}
	return nil
}

// Repositories holds all repository instances.
type Repositories struct {
	Campaigns *CampaignRepository
	Funnel    *FunnelRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Campaigns: NewCampaignRepository(db),
		Funnel:    NewFunnelRepository(db),
	}
}
