package discovery

import (
	"context"
	"log"
	"time"

	"dealbot/internal/deals"
	"dealbot/internal/geo"
	"dealbot/internal/llm"
	"dealbot/internal/places"
)

const DefaultLimit = 5

// DealStore is the repository slice the pipeline needs.
type DealStore interface {
	FindMore(ctx context.Context, loc *geo.Location, category string, excludeDealIDs []string, maxResults int) ([]deals.Deal, error)
	GetByIDs(ctx context.Context, ids []string) ([]deals.Deal, error)
	Write(ctx context.Context, d *deals.Deal) error
}

type Config struct {
	Country      string
	ModelTimeout time.Duration
	RadiusM      uint
}

// Pipeline runs the fixed acquisition sequence: cached lookup, model web
// search fallback, parse, place enrichment, dedupe, persist.
type Pipeline struct {
	store  DealStore
	model  llm.Client
	places places.Searcher
	cfg    Config
}

func NewPipeline(store DealStore, model llm.Client, searcher places.Searcher, cfg Config) *Pipeline {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 20 * time.Second
	}
	if cfg.RadiusM == 0 {
		cfg.RadiusM = places.DefaultRadiusM
	}
	return &Pipeline{store: store, model: model, places: searcher, cfg: cfg}
}

// Acquire returns up to limit ranked deals for the location and category,
// never an error for provider failures: those degrade to an empty set.
// Only storage faults on the cached-lookup path propagate.
func (p *Pipeline) Acquire(ctx context.Context, loc *geo.Location, category string, excludeDealIDs []string, limit int) ([]deals.Deal, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	cached, err := p.store.FindMore(ctx, loc, category, excludeDealIDs, limit)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}

	parsed := p.modelSearch(ctx, loc, category, excludeDealIDs)
	if len(parsed) == 0 {
		return nil, nil
	}

	nearby := p.nearbyPlaces(ctx, loc, category)

	excluded := make(map[string]bool, len(excludeDealIDs))
	for _, id := range excludeDealIDs {
		excluded[id] = true
	}

	now := time.Now().UTC()
	var found []deals.Deal
	for _, pd := range parsed {
		d := deals.Deal{
			BusinessName: pd.BusinessName,
			Offer:        pd.Offer,
			Description:  pd.Contact,
			Address:      pd.Address,
			Area:         loc.Area,
			Category:     category,
			Validity:     pd.Validity,
			Source:       "web",
			CheckedAt:    now,
		}
		enrich(&d, nearby)
		found = append(found, d)
	}

	found = deals.DedupeByName(found)
	if len(found) > limit {
		found = found[:limit]
	}
	if len(found) == 0 {
		return nil, nil
	}

	for i := range found {
		if err := p.store.Write(ctx, &found[i]); err != nil {
			log.Printf("failed to persist discovered deal %q: %v", found[i].BusinessName, err)
		}
	}
	return found, nil
}

// modelSearch asks the language model for deals with search grounding.
// Any failure, including the 20s deadline, yields an empty result.
func (p *Pipeline) modelSearch(ctx context.Context, loc *geo.Location, category string, excludeDealIDs []string) []ParsedDeal {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	excludeNames := p.excludedNames(ctx, excludeDealIDs)

	reply, err := p.model.Complete(ctx,
		systemPrompt(p.cfg.Country, category),
		userPrompt(loc.Label(), category, excludeNames),
		llm.Options{
			WebSearch: &llm.ApproximateLocation{
				City:    loc.Area,
				Country: p.cfg.Country,
			},
		})
	if err != nil {
		log.Printf("model deal search failed (%s near %s): %v", category, loc.Label(), err)
		return nil
	}
	return ParseModelReply(reply, p.cfg.Country)
}

// excludedNames summarizes already-seen businesses for the exclusion prompt.
func (p *Pipeline) excludedNames(ctx context.Context, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	known, err := p.store.GetByIDs(ctx, ids)
	if err != nil {
		log.Printf("failed to load excluded deals: %v", err)
		return nil
	}
	seen := make(map[string]bool, len(known))
	var names []string
	for _, d := range known {
		key := deals.NormalizeName(d.BusinessName)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, d.BusinessName)
	}
	return names
}

func (p *Pipeline) nearbyPlaces(ctx context.Context, loc *geo.Location, category string) []places.Place {
	nearby, err := p.places.Nearby(ctx, loc.Latitude, loc.Longitude, category, p.cfg.RadiusM)
	if err != nil {
		log.Printf("nearby place fetch failed for %s: %v", category, err)
		return nil
	}
	return nearby
}
