package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/documents"
	"github.com/yungbote/buyerdesk-backend/internal/domain/stage"
	"github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/llm"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/platform/promptstyle"
)

type DraftIntent string

const (
	IntentMessage  DraftIntent = "message"
	IntentArtifact DraftIntent = "artifact"
	IntentThinking DraftIntent = "thinking"
	IntentActions  DraftIntent = "actions"
)

type DraftVisibility string

const (
	DraftInternal              DraftVisibility = "internal"
	DraftBuyerApprovalRequired DraftVisibility = "buyer_approval_required"
)

// Text persisted in place of a draft whose stream failed.
const (
	FallbackApology     = "Sorry, I couldn't finish this draft. Please try again."
	FallbackRateLimited = "The AI service is busy right now. Please try again shortly."
)

type DraftRequest struct {
	BuyerID      *uuid.UUID      `json:"buyer_id"`
	Command      string          `json:"command"`
	BuyerContext map[string]any  `json:"buyerContext"`
	Intent       DraftIntent     `json:"intent"`
	Visibility   DraftVisibility `json:"visibility"`
}

// Internal drafts are agent-only and never enter the approval gate.
func (r DraftRequest) Internal() bool {
	return r.Intent == IntentThinking || r.Visibility == DraftInternal
}

// DraftHooks observe a streaming draft. OnItem fires once, before any delta,
// when the draft is persisted to a workspace.
type DraftHooks struct {
	OnItem  func(it *types.Item)
	OnDelta func(delta string)
}

type DraftResult struct {
	Item     *types.Item     `json:"item,omitempty"`
	Artifact *types.Artifact `json:"artifact,omitempty"`
	Content  string          `json:"content"`
	Fallback bool            `json:"fallback"`
}

type SuggestedAction struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Command string `json:"command"`
	Type    string `json:"type"`
}

type DraftingConfig struct {
	Model     string
	MaxTokens int
}

type DraftingService interface {
	StreamDraft(dbc dbctx.Context, req DraftRequest, hooks DraftHooks) (*DraftResult, error)
	SuggestActions(dbc dbctx.Context, req DraftRequest) ([]SuggestedAction, error)
}

type draftingService struct {
	db        *gorm.DB
	log       *logger.Logger
	catalog   *stage.Catalog
	engine    llm.Engine
	cfg       DraftingConfig
	buyers    repos.BuyerRepo
	items     repos.ItemRepo
	artifacts repos.ArtifactRepo
	notify    WorkspaceNotifier
}

func NewDraftingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog *stage.Catalog,
	engine llm.Engine,
	cfg DraftingConfig,
	buyers repos.BuyerRepo,
	items repos.ItemRepo,
	artifacts repos.ArtifactRepo,
	notify WorkspaceNotifier,
) DraftingService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &draftingService{
		db:        db,
		log:       baseLog.With("service", "DraftingService"),
		catalog:   catalog,
		engine:    engine,
		cfg:       cfg,
		buyers:    buyers,
		items:     items,
		artifacts: artifacts,
		notify:    notify,
	}
}

func (s *draftingService) StreamDraft(dbc dbctx.Context, req DraftRequest, hooks DraftHooks) (*DraftResult, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return nil, errs.Invalid("command required")
	}
	if req.Intent == IntentActions {
		return nil, errs.Invalid("actions intent does not stream")
	}
	if s.engine == nil {
		return nil, fmt.Errorf("llm engine not configured")
	}

	var buyer *types.Buyer
	if req.BuyerID != nil {
		if buyer, err = loadBuyer(dbc, s.buyers, sess, *req.BuyerID, accessWrite); err != nil {
			return nil, err
		}
	}

	ctx, span := observability.Tracer().Start(dbc.Ctx, "draft.stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("draft.intent", string(req.Intent)),
		attribute.Bool("draft.internal", req.Internal()),
		attribute.Bool("draft.persisted", buyer != nil),
	)

	res := &DraftResult{}
	if buyer != nil {
		var it *types.Item
		if req.Internal() {
			it = workspace.NewInternalDraft(buyer.ID, buyer.CurrentStage, req.Command)
		} else {
			it = workspace.NewBuyerFacingDraft(buyer.ID, buyer.CurrentStage, req.Command)
		}
		if res.Item, err = s.items.Create(dbc, it); err != nil {
			return nil, err
		}
		s.notify.ItemCreated(buyer, res.Item)
		if hooks.OnItem != nil {
			hooks.OnItem(res.Item)
		}
	}

	var acc strings.Builder
	onDelta := func(d string) {
		if d == "" {
			return
		}
		acc.WriteString(d)
		if hooks.OnDelta != nil {
			hooks.OnDelta(d)
		}
		if res.Item != nil {
			s.notify.DraftDelta(buyer, res.Item.ID, d)
		}
	}

	system := promptstyle.ApplySystem(s.systemPrompt(buyer, req), promptstyle.ModeProse)
	started := time.Now()
	_, streamErr := s.engine.Stream(ctx, llm.Request{
		Model:     s.cfg.Model,
		System:    system,
		Messages:  []llm.Message{{Role: "user", Content: req.Command}},
		MaxTokens: s.cfg.MaxTokens,
	}, onDelta)
	observability.Current().ObserveLLMRequest(s.engine.Name(), "draft", llmStatus(streamErr), time.Since(started))

	audience := "buyer"
	if req.Internal() {
		audience = "internal"
	}

	// The request may be gone by now; the outcome is still recorded.
	persist := dbctx.Of(context.WithoutCancel(dbc.Ctx))

	if streamErr != nil {
		span.RecordError(streamErr)
		res.Content = FallbackApology
		if llm.IsRateLimited(streamErr) {
			res.Content = FallbackRateLimited
		}
		res.Fallback = true
		observability.Current().IncDraft(audience, "fallback")
		s.log.Warn("draft stream failed", "buyer_id", buyerIDOf(buyer), "streamed_bytes", acc.Len(), "error", streamErr)
		if res.Item != nil {
			if err := s.finishItem(persist, buyer, res.Item, res.Content); err != nil {
				s.log.Error("persist draft fallback failed", "item_id", res.Item.ID, "error", err)
			}
		}
		return res, fmt.Errorf("draft stream: %w", streamErr)
	}

	res.Content = acc.String()
	observability.Current().IncDraft(audience, "completed")
	if res.Item == nil {
		return res, nil
	}

	err = s.db.WithContext(persist.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := persist.WithTx(tx)
		if err := s.finishItem(inner, buyer, res.Item, res.Content); err != nil {
			return err
		}
		if req.Intent != IntentArtifact {
			return nil
		}
		itemID := res.Item.ID
		a, err := s.artifacts.Create(inner, &types.Artifact{
			BuyerID:    buyer.ID,
			ItemID:     &itemID,
			Author:     documents.AuthorAI,
			Title:      artifactTitle(req.Command),
			Content:    res.Content,
			Visibility: types.VisibilityInternal,
		})
		res.Artifact = a
		return err
	})
	if err != nil {
		return res, err
	}
	s.notify.ItemUpdated(buyer, res.Item)
	return res, nil
}

// finishItem writes the final content and ends streaming. The write is
// conditional on the draft still being undecided.
func (s *draftingService) finishItem(dbc dbctx.Context, buyer *types.Buyer, it *types.Item, content string) error {
	now := time.Now().UTC()
	if err := it.FinishDraft(content); err != nil {
		return err
	}
	if err := s.items.SaveDraftContent(dbc, it); err != nil {
		return err
	}
	it.UpdatedAt = now
	if dbc.Tx == nil {
		s.notify.ItemUpdated(buyer, it)
	}
	return s.buyers.Touch(dbc, buyer.ID, now)
}

func (s *draftingService) systemPrompt(buyer *types.Buyer, req DraftRequest) string {
	var b strings.Builder
	switch {
	case req.Intent == IntentThinking:
		b.WriteString("Think through the agent's question and give your analysis. This is for the agent only.\n")
	case req.Intent == IntentArtifact:
		b.WriteString("Draft a document the agent can share with the buyer once reviewed. Output only the document.\n")
	case req.Internal():
		b.WriteString("Draft a note for the agent's own records.\n")
	default:
		b.WriteString("Draft a message from the agent to the buyer. The agent will review it before the buyer sees it. Output only the message.\n")
	}

	if buyer == nil {
		if len(req.BuyerContext) > 0 {
			raw, _ := json.Marshal(req.BuyerContext)
			b.WriteString("\nBuyer context:\n")
			b.Write(raw)
			b.WriteString("\n")
		}
		return b.String()
	}

	profile, _ := json.Marshal(buyer.Profile())
	b.WriteString("\nBuyer profile:\n")
	b.Write(profile)
	b.WriteString("\n")
	if st, ok := s.catalog.StageAt(buyer.CurrentStage); ok {
		fmt.Fprintf(&b, "\nCurrent stage %d of %d: %s. %s\n", st.Index+1, s.catalog.Len(), st.Title, st.Description)
		if len(st.BuyerTasks) > 0 {
			b.WriteString("Buyer tasks this stage: " + strings.Join(st.BuyerTasks, "; ") + "\n")
		}
	}
	// Agent notes never feed text a buyer could end up reading.
	if req.Internal() && buyer.AgentNotes != "" {
		b.WriteString("\nAgent notes:\n" + buyer.AgentNotes + "\n")
	}
	return b.String()
}

func (s *draftingService) SuggestActions(dbc dbctx.Context, req DraftRequest) ([]SuggestedAction, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	if s.engine == nil {
		return nil, fmt.Errorf("llm engine not configured")
	}
	var buyer *types.Buyer
	if req.BuyerID != nil {
		if buyer, err = loadBuyer(dbc, s.buyers, sess, *req.BuyerID, accessRead); err != nil {
			return nil, err
		}
	}
	stageIdx := stageFromContext(buyer, req.BuyerContext)

	var b strings.Builder
	b.WriteString("Suggest up to 4 next actions for the agent.\n")
	b.WriteString(`Shape: {"actions":[{"id":"short-slug","label":"Button text","command":"Instruction the agent would give you","type":"draft|task|offer|property"}]}` + "\n")
	b.WriteString(s.systemPrompt(buyer, DraftRequest{BuyerContext: req.BuyerContext, Intent: IntentThinking}))

	started := time.Now()
	raw, err := s.engine.Generate(dbc.Ctx, llm.Request{
		Model:     s.cfg.Model,
		System:    promptstyle.ApplySystem(b.String(), promptstyle.ModeJSON),
		Messages:  []llm.Message{{Role: "user", Content: firstNonBlank(req.Command, "What should I do next for this buyer?")}},
		MaxTokens: 512,
		JSON:      true,
	})
	observability.Current().ObserveLLMRequest(s.engine.Name(), "actions", llmStatus(err), time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("suggest actions: %w", err)
	}
	actions, perr := parseActions(raw)
	if perr != nil || len(actions) == 0 {
		s.log.Debug("falling back to stage actions", "stage", stageIdx, "error", perr)
		return s.defaultActions(stageIdx), nil
	}
	return actions, nil
}

func parseActions(raw string) ([]SuggestedAction, error) {
	var body struct {
		Actions []SuggestedAction `json:"actions"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &body); err != nil {
		return nil, err
	}
	out := make([]SuggestedAction, 0, len(body.Actions))
	for i, a := range body.Actions {
		a.Label = strings.TrimSpace(a.Label)
		a.Command = strings.TrimSpace(a.Command)
		if a.Label == "" || a.Command == "" {
			continue
		}
		if strings.TrimSpace(a.ID) == "" {
			a.ID = fmt.Sprintf("action-%d", i+1)
		}
		if a.Type == "" {
			a.Type = "draft"
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *draftingService) defaultActions(stageIdx int) []SuggestedAction {
	st, ok := s.catalog.StageAt(stageIdx)
	if !ok {
		st, _ = s.catalog.StageAt(0)
	}
	out := make([]SuggestedAction, 0, 4)
	for i, task := range st.AgentTasks {
		if i == 4 {
			break
		}
		out = append(out, SuggestedAction{
			ID:      fmt.Sprintf("stage-%d-%d", st.Index, i+1),
			Label:   task,
			Command: task,
			Type:    "task",
		})
	}
	return out
}

func stageFromContext(buyer *types.Buyer, bc map[string]any) int {
	if buyer != nil {
		return buyer.CurrentStage
	}
	for _, key := range []string{"current_stage", "currentStage", "stage"} {
		if v, ok := bc[key].(float64); ok {
			return int(v)
		}
	}
	return 0
}

func llmStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case llm.IsRateLimited(err):
		return "rate_limited"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}

func artifactTitle(command string) string {
	line := strings.TrimSpace(strings.SplitN(command, "\n", 2)[0])
	if utf8.RuneCountInString(line) <= 80 {
		return line
	}
	r := []rune(line)
	return strings.TrimSpace(string(r[:80])) + "…"
}

func buyerIDOf(b *types.Buyer) uuid.UUID {
	if b == nil {
		return uuid.Nil
	}
	return b.ID
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
