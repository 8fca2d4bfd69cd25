package listings

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos/testutil"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
)

func TestAttachIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(tx)
	repo := NewBuyerPropertyRepo(db, testutil.Logger(t))

	agent := uuid.New()
	buyer := testutil.SeedBuyer(t, tx, agent, 2)
	prop := testutil.SeedProperty(t, tx, agent)

	first, err := repo.Attach(dbc, buyer.ID, prop.ID)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := repo.UpdateFlags(dbc, buyer.ID, prop.ID, map[string]interface{}{"favorited": true}); err != nil {
		t.Fatalf("UpdateFlags: %v", err)
	}
	second, err := repo.Attach(dbc, buyer.ID, prop.ID)
	if err != nil {
		t.Fatalf("Attach again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("attach created a second link: %s vs %s", first.ID, second.ID)
	}
	if !second.Favorited {
		t.Fatalf("re-attach reset flags")
	}
	if second.Property == nil || second.Property.Address != prop.Address {
		t.Fatalf("property not preloaded: %+v", second.Property)
	}
}

func TestListForBuyerSkipsArchived(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(tx)
	repo := NewBuyerPropertyRepo(db, testutil.Logger(t))

	agent := uuid.New()
	buyer := testutil.SeedBuyer(t, tx, agent, 2)
	keep := testutil.SeedProperty(t, tx, agent)
	gone := testutil.SeedProperty(t, tx, agent)
	for _, p := range []uuid.UUID{keep.ID, gone.ID} {
		if _, err := repo.Attach(dbc, buyer.ID, p); err != nil {
			t.Fatalf("Attach: %v", err)
		}
	}
	if err := repo.UpdateFlags(dbc, buyer.ID, gone.ID, map[string]interface{}{"archived": true}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	got, err := repo.ListForBuyer(dbc, buyer.ID, BuyerPropertyFilter{})
	if err != nil {
		t.Fatalf("ListForBuyer: %v", err)
	}
	if len(got) != 1 || got[0].PropertyID != keep.ID {
		t.Fatalf("unexpected list: %d", len(got))
	}
	all, err := repo.ListForBuyer(dbc, buyer.ID, BuyerPropertyFilter{IncludeArchived: true})
	if err != nil || len(all) != 2 {
		t.Fatalf("include archived=%d err=%v", len(all), err)
	}
}

func TestMarkViewedKeepsFirstTimestamp(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(tx)
	repo := NewBuyerPropertyRepo(db, testutil.Logger(t))

	agent := uuid.New()
	buyer := testutil.SeedBuyer(t, tx, agent, 3)
	prop := testutil.SeedProperty(t, tx, agent)
	if _, err := repo.Attach(dbc, buyer.ID, prop.ID); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.MarkViewed(dbc, buyer.ID, prop.ID, first); err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}
	if err := repo.MarkViewed(dbc, buyer.ID, prop.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("MarkViewed again: %v", err)
	}
	got, err := repo.Get(dbc, buyer.ID, prop.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Viewed || got.ViewedAt == nil || !got.ViewedAt.Equal(first) {
		t.Fatalf("viewed=%v at=%v", got.Viewed, got.ViewedAt)
	}

	if err := repo.UpdateFlags(dbc, buyer.ID, uuid.New(), map[string]interface{}{"viewed": true}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unlinked property: %v", err)
	}
}
