package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/yungbote/buyerdesk-backend/internal/platform/llm"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/platform/scrape"
	"github.com/yungbote/buyerdesk-backend/internal/realtime/bus"
)

type Clients struct {
	LLM     llm.Engine
	Scraper *scrape.Scraper
	// Fetch downloads offer template files.
	Fetch *http.Client
	// SSEBus is nil when REDIS_ADDR is unset and fan-out stays in process.
	SSEBus bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	engine, err := llm.New(ctx, cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
	if err != nil {
		return Clients{}, fmt.Errorf("init llm engine: %w", err)
	}
	log.Info("LLM engine ready", "provider", engine.Name())

	var sseBus bus.Bus
	if cfg.Redis.Addr != "" {
		b, err := bus.NewRedisBus(cfg.Redis, log)
		if err != nil {
			closeEngine(engine)
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	return Clients{
		LLM:     engine,
		Scraper: scrape.New(scrape.Config{Timeout: cfg.ScrapeTimeout}, nil),
		Fetch:   &http.Client{Timeout: cfg.FetchTimeout},
		SSEBus:  sseBus,
	}, nil
}

func closeEngine(e llm.Engine) {
	if c, ok := e.(io.Closer); ok {
		_ = c.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.LLM != nil {
		closeEngine(c.LLM)
	}
}
