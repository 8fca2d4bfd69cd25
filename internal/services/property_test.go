package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/testutil"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/httpx"
	"github.com/yungbote/buyerdesk-backend/internal/platform/scrape"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
)

type fakeScraper struct {
	calls int
	fail  int
	data  scrape.ListingData
}

func (s *fakeScraper) Fetch(ctx context.Context, rawURL string) (scrape.ListingData, error) {
	s.calls++
	if s.calls <= s.fail {
		return scrape.ListingData{}, &scrape.StatusError{StatusCode: http.StatusTooManyRequests, URL: rawURL}
	}
	return s.data, nil
}

func instantRetry(waits *[]time.Duration) httpx.RetryPolicy {
	p := httpx.RateLimitPolicy()
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return p
}

func (f *fixture) propertyService(s ListingScraper, retry httpx.RetryPolicy) PropertyService {
	return NewPropertyService(f.db, f.log, s, retry, f.buyers, f.props, f.links, f.notify)
}

func TestScrapeRetriesRateLimitThenImports(t *testing.T) {
	f := newFixture(t)
	scraper := &fakeScraper{fail: 2, data: scrape.ListingData{Address: "12 Elm St", City: "Austin", Price: 450000, Photos: []string{"https://img/1.jpg"}}}
	var waits []time.Duration
	svc := f.propertyService(scraper, instantRetry(&waits))

	p, err := svc.Import(f.agent(), "https://listings.example.com/12-elm")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if scraper.calls != 3 || len(waits) != 2 || waits[0] != 2*time.Second || waits[1] != 4*time.Second {
		t.Fatalf("calls=%d waits=%v", scraper.calls, waits)
	}
	if p.Address != "12 Elm St" || p.Price != 450000 || len(p.Photos) != 1 || p.CreatedBy != f.agentID {
		t.Fatalf("property=%+v", p)
	}

	again, err := svc.Import(f.agent(), "https://listings.example.com/12-elm")
	if err != nil || again.ID != p.ID {
		t.Fatalf("re-import created a duplicate: %v", err)
	}
	if scraper.calls != 3 {
		t.Fatalf("re-import scraped again")
	}
}

func TestScrapeEmptyPageIsValidationError(t *testing.T) {
	f := newFixture(t)
	var waits []time.Duration
	_, err := f.propertyService(&fakeScraper{}, instantRetry(&waits)).Scrape(f.agent(), "https://example.com/blank")
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
}

func TestBuyerFlagsAndArchivedLinks(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 2)
	prop := testutil.SeedProperty(t, f.db, f.agentID)
	var waits []time.Duration
	svc := f.propertyService(&fakeScraper{}, instantRetry(&waits))

	link, err := svc.AttachToBuyer(f.agent(), b.ID, prop.ID, "Backs onto the greenbelt")
	if err != nil {
		t.Fatalf("AttachToBuyer: %v", err)
	}
	if link.AgentNote == "" {
		t.Fatalf("note dropped")
	}

	viewed, err := svc.MarkViewed(f.buyer(b), b.ID, prop.ID)
	if err != nil || !viewed.Viewed || viewed.ViewedAt == nil {
		t.Fatalf("MarkViewed: %+v err=%v", viewed, err)
	}
	if viewed.AgentNote != "" {
		t.Fatalf("agent note shown to buyer")
	}
	fav, err := svc.SetFavorite(f.buyer(b), b.ID, prop.ID, true)
	if err != nil || !fav.Favorited {
		t.Fatalf("SetFavorite: %v", err)
	}
	if _, err := svc.SetArchived(f.buyer(b), b.ID, prop.ID, true); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("buyer archive err=%v", err)
	}

	portalBefore := f.emit.on(realtime.PortalChannel(b.ID), realtime.SSEEventPropertyUpdated)
	if _, err := svc.SetArchived(f.agent(), b.ID, prop.ID, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}
	if f.emit.on(realtime.PortalChannel(b.ID), realtime.SSEEventPropertyUpdated) != portalBefore {
		t.Fatalf("archived link pushed to portal")
	}

	list, err := svc.ListForBuyer(f.buyer(b), b.ID, repos.BuyerPropertyFilter{IncludeArchived: true})
	if err != nil || len(list) != 0 {
		t.Fatalf("buyer sees archived: n=%d err=%v", len(list), err)
	}
	list, err = svc.ListForBuyer(f.agent(), b.ID, repos.BuyerPropertyFilter{IncludeArchived: true})
	if err != nil || len(list) != 1 {
		t.Fatalf("agent list n=%d err=%v", len(list), err)
	}
	if _, err := svc.SetFavorite(f.buyer(b), b.ID, prop.ID, false); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("buyer touched archived link err=%v", err)
	}
}

func TestPropertyEventsKeepAgentNoteOffThePortal(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 2)
	prop := testutil.SeedProperty(t, f.db, f.agentID)
	var waits []time.Duration
	svc := f.propertyService(&fakeScraper{}, instantRetry(&waits))

	const note = "Seller is motivated, start 5% under"
	if _, err := svc.AttachToBuyer(f.agent(), b.ID, prop.ID, note); err != nil {
		t.Fatalf("AttachToBuyer: %v", err)
	}
	if _, err := svc.SetFavorite(f.buyer(b), b.ID, prop.ID, true); err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}

	noteOf := func(data map[string]any) string {
		link, ok := data["property"].(*types.BuyerProperty)
		if !ok {
			t.Fatalf("property payload=%T", data["property"])
		}
		return link.AgentNote
	}
	portal := f.emit.sent(realtime.PortalChannel(b.ID), realtime.SSEEventPropertyUpdated)
	if len(portal) != 2 {
		t.Fatalf("portal events=%d", len(portal))
	}
	for _, data := range portal {
		if got := noteOf(data); got != "" {
			t.Fatalf("portal saw agent note %q", got)
		}
	}
	agentSide := f.emit.sent(realtime.BuyerChannel(b.ID), realtime.SSEEventPropertyUpdated)
	if len(agentSide) != 2 {
		t.Fatalf("agent events=%d", len(agentSide))
	}
	for _, data := range agentSide {
		if got := noteOf(data); got != note {
			t.Fatalf("agent view note=%q", got)
		}
	}
}
