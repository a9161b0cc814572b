package deals

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dealbot/internal/geo"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	repo, err := NewRepository(db, 1.0, 7*24*time.Hour, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return repo
}

func coords(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

func TestWriteStampsDefaults(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	d := Deal{BusinessName: "Ah Seng Bak Kut Teh", Offer: "20% off", Category: "food"}
	if err := repo.Write(ctx, &d); err != nil {
		t.Fatalf("write: %v", err)
	}
	if d.DealID == "" {
		t.Fatal("deal id not assigned")
	}
	if d.CreatedAt.IsZero() || d.CheckedAt.IsZero() {
		t.Fatalf("timestamps not stamped: %+v", d)
	}
	wantEnd := d.CreatedAt.Add(30 * 24 * time.Hour)
	if !d.EndDate.Equal(wantEnd) {
		t.Fatalf("endDate = %v, want %v", d.EndDate, wantEnd)
	}
	wantTTL := d.CreatedAt.Add(7 * 24 * time.Hour)
	if !d.ExpiresAt.Equal(wantTTL) {
		t.Fatalf("expiresAt = %v, want %v", d.ExpiresAt, wantTTL)
	}
}

func TestFindMoreProximityAndExclusion(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	near := Deal{BusinessName: "Near", Offer: "10% off", Category: "food"}
	near.Latitude, near.Longitude = coords(1.2840, 103.8610)
	far := Deal{BusinessName: "Far", Offer: "10% off", Category: "food"}
	far.Latitude, far.Longitude = coords(1.35, 103.95) // ~12 km away
	wrongCat := Deal{BusinessName: "WrongCat", Offer: "10% off", Category: "fashion"}
	wrongCat.Latitude, wrongCat.Longitude = coords(1.2840, 103.8610)
	excluded := Deal{BusinessName: "Excluded", Offer: "10% off", Category: "food"}
	excluded.Latitude, excluded.Longitude = coords(1.2841, 103.8611)

	for _, d := range []*Deal{&near, &far, &wrongCat, &excluded} {
		if err := repo.Write(ctx, d); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	loc := &geo.Location{Latitude: 1.2834, Longitude: 103.8607}
	got, err := repo.FindMore(ctx, loc, "food", []string{excluded.DealID}, 5)
	if err != nil {
		t.Fatalf("findMore: %v", err)
	}
	if len(got) != 1 || got[0].BusinessName != "Near" {
		t.Fatalf("want only Near, got %+v", got)
	}
}

func TestFindMoreTextualFallback(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	// deal without coordinates matches on area text
	d := Deal{BusinessName: "Tiong Bahru Bakery", Offer: "1-for-1 croissant", Category: "food",
		Address: "56 Eng Hoon Street, Tiong Bahru"}
	if err := repo.Write(ctx, &d); err != nil {
		t.Fatalf("write: %v", err)
	}
	other := Deal{BusinessName: "Elsewhere", Offer: "5% off", Category: "food", Address: "Changi Road"}
	if err := repo.Write(ctx, &other); err != nil {
		t.Fatalf("write: %v", err)
	}

	loc := &geo.Location{Area: "Tiong Bahru"}
	got, err := repo.FindMore(ctx, loc, "food", nil, 5)
	if err != nil {
		t.Fatalf("findMore: %v", err)
	}
	if len(got) != 1 || got[0].BusinessName != "Tiong Bahru Bakery" {
		t.Fatalf("textual match failed: %+v", got)
	}
}

func TestFindMoreFreshnessWithPreciseCoords(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	stale := Deal{BusinessName: "Stale", Offer: "10% off", Category: "food",
		CheckedAt: time.Now().UTC().Add(-8 * 24 * time.Hour)}
	stale.Latitude, stale.Longitude = coords(1.2840, 103.8610)
	fresh := Deal{BusinessName: "Fresh", Offer: "10% off", Category: "food"}
	fresh.Latitude, fresh.Longitude = coords(1.2840, 103.8610)

	for _, d := range []*Deal{&stale, &fresh} {
		if err := repo.Write(ctx, d); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	loc := &geo.Location{Latitude: 1.2834, Longitude: 103.8607}
	got, err := repo.FindMore(ctx, loc, "food", nil, 5)
	if err != nil {
		t.Fatalf("findMore: %v", err)
	}
	if len(got) != 1 || got[0].BusinessName != "Fresh" {
		t.Fatalf("stale deal should be filtered: %+v", got)
	}
}

func TestFindMoreExpiredAndTruncated(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	expired := Deal{BusinessName: "Expired", Offer: "x", Category: "food",
		EndDate: time.Now().UTC().Add(-time.Hour), Address: "Orchard"}
	if err := repo.Write(ctx, &expired); err != nil {
		t.Fatalf("write: %v", err)
	}
	names := []string{"A", "B", "C"}
	for i, n := range names {
		d := Deal{BusinessName: n, Offer: "x", Category: "food", Address: "Orchard",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute)}
		if err := repo.Write(ctx, &d); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	loc := &geo.Location{Area: "Orchard"}
	got, err := repo.FindMore(ctx, loc, "food", nil, 2)
	if err != nil {
		t.Fatalf("findMore: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	// newest first
	if got[0].BusinessName != "C" || got[1].BusinessName != "B" {
		t.Fatalf("ordering wrong: %+v", got)
	}
}

func TestFindMoreTieBreaksOnSourcePriority(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	web := Deal{BusinessName: "WebDeal", Offer: "x", Category: "food", Address: "Orchard",
		Source: "web", CreatedAt: created}
	insta := Deal{BusinessName: "InstaDeal", Offer: "x", Category: "food", Address: "Orchard",
		Source: "instagram", CreatedAt: created}
	for _, d := range []*Deal{&web, &insta} {
		if err := repo.Write(ctx, d); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := repo.FindMore(ctx, &geo.Location{Area: "Orchard"}, "food", nil, 5)
	if err != nil {
		t.Fatalf("findMore: %v", err)
	}
	if len(got) != 2 || got[0].BusinessName != "InstaDeal" {
		t.Fatalf("instagram should win the tie: %+v", got)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	gone := Deal{BusinessName: "Gone", Offer: "x", Category: "food",
		ExpiresAt: time.Now().UTC().Add(-time.Minute)}
	kept := Deal{BusinessName: "Kept", Offer: "x", Category: "food"}
	for _, d := range []*Deal{&gone, &kept} {
		if err := repo.Write(ctx, d); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 swept, got %d", n)
	}
	left, err := repo.GetByIDs(ctx, []string{gone.DealID, kept.DealID})
	if err != nil {
		t.Fatalf("getByIDs: %v", err)
	}
	if len(left) != 1 || left[0].BusinessName != "Kept" {
		t.Fatalf("unexpected remainder: %+v", left)
	}
}
