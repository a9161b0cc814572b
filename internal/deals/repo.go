package deals

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"dealbot/internal/geo"
)

// ErrStoreUnavailable wraps backend failures; callers treat it as transient.
var ErrStoreUnavailable = errors.New("deal store unavailable")

const cacheFreshness = 7 * 24 * time.Hour

type Repository struct {
	db *gorm.DB

	radiusKm      float64
	ttl           time.Duration
	endDateWindow time.Duration

	now func() time.Time
}

func NewRepository(db *gorm.DB, radiusKm float64, ttl, endDateWindow time.Duration) (*Repository, error) {
	if err := db.AutoMigrate(&Deal{}); err != nil {
		return nil, fmt.Errorf("failed to migrate deal schema: %w", err)
	}
	return &Repository{
		db:            db,
		radiusKm:      radiusKm,
		ttl:           ttl,
		endDateWindow: endDateWindow,
		now:           time.Now,
	}, nil
}

// Write persists a deal, assigning an id and stamping retention defaults
// where absent.
func (r *Repository) Write(ctx context.Context, d *Deal) error {
	now := r.now().UTC()
	if d.DealID == "" {
		d.DealID = ulid.Make().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.CheckedAt.IsZero() {
		d.CheckedAt = now
	}
	if d.EndDate.IsZero() {
		d.EndDate = now.Add(r.endDateWindow)
	}
	if d.ExpiresAt.IsZero() {
		d.ExpiresAt = now.Add(r.ttl)
	}
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetByIDs loads deals by id; missing ids are simply absent from the result.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]Deal, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Deal
	if err := r.db.WithContext(ctx).Where("deal_id IN ?", ids).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

// FindMore retrieves live cached deals for a category near a location,
// excluding anything the user has already seen.
//
// Proximity is geometric when both sides carry coordinates (haversine,
// radius bound), textual otherwise. Queries with precise coordinates also
// demand recently checked records.
func (r *Repository) FindMore(ctx context.Context, loc *geo.Location, category string, excludeDealIDs []string, maxResults int) ([]Deal, error) {
	now := r.now().UTC()

	var candidates []Deal
	err := r.db.WithContext(ctx).
		Where("category = ? AND end_date > ?", category, now).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	exclude := make(map[string]bool, len(excludeDealIDs))
	for _, id := range excludeDealIDs {
		exclude[id] = true
	}

	queryHasCoords := loc != nil && geo.ValidCoords(loc.Latitude, loc.Longitude) &&
		(loc.Latitude != 0 || loc.Longitude != 0)

	var kept []Deal
	for i := range candidates {
		d := candidates[i]
		if exclude[d.DealID] {
			continue
		}
		if loc != nil {
			if queryHasCoords && d.HasCoords() {
				if Haversine(loc.Latitude, loc.Longitude, *d.Latitude, *d.Longitude) > r.radiusKm {
					continue
				}
			} else if !matchesTextually(loc, &d) {
				continue
			}
			// Tight locality demands fresher data.
			if queryHasCoords && d.CheckedAt.Before(now.Add(-cacheFreshness)) {
				continue
			}
		}
		kept = append(kept, d)
	}

	kept = DedupeByName(kept)
	sortRanked(kept)
	if maxResults > 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept, nil
}

// sortRanked orders newest first, breaking created-at ties by social source
// priority.
func sortRanked(ds []Deal) {
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.After(ds[j].CreatedAt)
		}
		return SourcePriority(ds[i].Source) > SourcePriority(ds[j].Source)
	})
}

// DeleteExpired removes deals past their retention window. Invoked on a
// schedule; sqlite has no native ttl attribute.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", r.now().UTC()).
		Delete(&Deal{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}
