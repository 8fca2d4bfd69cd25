package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/httpx"
	"github.com/yungbote/buyerdesk-backend/internal/platform/doctext"
	"github.com/yungbote/buyerdesk-backend/internal/platform/llm"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/platform/promptstyle"
)

// TemplateQueue hands template ids to the analysis workers. Enqueue never
// blocks; a false return leaves the template pending for the next sweep.
type TemplateQueue interface {
	Enqueue(id uuid.UUID) bool
}

type AnalyzeInput struct {
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}

type TemplateConfig struct {
	Model       string
	MaxBytes    int64
	MaxPrompt   int
	HTTPTimeout time.Duration
}

type TemplateService interface {
	Create(dbc dbctx.Context, in *types.OfferTemplate) (*types.OfferTemplate, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.OfferTemplate, error)
	List(dbc dbctx.Context) ([]*types.OfferTemplate, error)
	// Analyze resets the template to pending and queues it; it returns at once.
	Analyze(dbc dbctx.Context, id uuid.UUID, in AnalyzeInput) (*types.OfferTemplate, error)
	// Retry is Analyze restricted to failed templates.
	Retry(dbc dbctx.Context, id uuid.UUID) (*types.OfferTemplate, error)
	// RunAnalysis is the worker body. It claims a pending template and drives it
	// to completed or failed.
	RunAnalysis(ctx context.Context, id uuid.UUID) error
	// Recoverable lists templates a restarted worker should pick up.
	Recoverable(ctx context.Context, staleAfter time.Duration) ([]uuid.UUID, error)
}

type templateService struct {
	db        *gorm.DB
	log       *logger.Logger
	engine    llm.Engine
	client    *http.Client
	cfg       TemplateConfig
	retry     httpx.RetryPolicy
	templates repos.OfferTemplateRepo
	queue     TemplateQueue
	notify    WorkspaceNotifier
}

func NewTemplateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	engine llm.Engine,
	client *http.Client,
	cfg TemplateConfig,
	retry httpx.RetryPolicy,
	templates repos.OfferTemplateRepo,
	queue TemplateQueue,
	notify WorkspaceNotifier,
) TemplateService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.MaxPrompt <= 0 {
		cfg.MaxPrompt = 60000
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	serviceLog := baseLog.With("service", "TemplateService")
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, wait time.Duration, err error) {
			observability.Current().IncOutboundRetry("template_analysis")
			serviceLog.Warn("template analysis rate limited; retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		}
	}
	return &templateService{
		db:        db,
		log:       serviceLog,
		engine:    engine,
		client:    client,
		cfg:       cfg,
		retry:     retry,
		templates: templates,
		queue:     queue,
		notify:    notify,
	}
}

func (s *templateService) Create(dbc dbctx.Context, in *types.OfferTemplate) (*types.OfferTemplate, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errs.Invalid("template required")
	}
	t := &types.OfferTemplate{
		AgentID:        sess.UserID,
		Name:           strings.TrimSpace(in.Name),
		FileURL:        strings.TrimSpace(in.FileURL),
		FileType:       strings.ToLower(strings.TrimSpace(in.FileType)),
		AnalysisStatus: types.AnalysisPending,
	}
	if t.Name == "" {
		return nil, errs.Invalid("name required")
	}
	if t.FileURL == "" {
		return nil, errs.Invalid("file_url required")
	}
	if t.FileType == "" {
		t.FileType = "pdf"
	}
	return s.templates.Create(dbc, t)
}

func (s *templateService) Get(dbc dbctx.Context, id uuid.UUID) (*types.OfferTemplate, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	t, err := s.templates.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !ownsAgentRow(sess, t.AgentID) {
		return nil, fmt.Errorf("offer template %s: %w", id, errs.ErrNotFound)
	}
	return t, nil
}

func (s *templateService) List(dbc dbctx.Context) ([]*types.OfferTemplate, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	return s.templates.List(dbc, agentScope(sess))
}

func (s *templateService) Analyze(dbc dbctx.Context, id uuid.UUID, in AnalyzeInput) (*types.OfferTemplate, error) {
	return s.requeue(dbc, id, in, []types.AnalysisStatus{types.AnalysisPending, types.AnalysisCompleted, types.AnalysisFailed})
}

func (s *templateService) Retry(dbc dbctx.Context, id uuid.UUID) (*types.OfferTemplate, error) {
	return s.requeue(dbc, id, AnalyzeInput{}, []types.AnalysisStatus{types.AnalysisFailed})
}

func (s *templateService) requeue(dbc dbctx.Context, id uuid.UUID, in AnalyzeInput, from []types.AnalysisStatus) (*types.OfferTemplate, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	t, err := s.templates.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !ownsAgentRow(sess, t.AgentID) {
		return nil, fmt.Errorf("offer template %s: %w", id, errs.ErrNotFound)
	}

	updates := map[string]interface{}{
		"analysis_status": types.AnalysisPending,
		"analysis_error":  "",
	}
	if u := strings.TrimSpace(in.FileURL); u != "" {
		updates["file_url"] = u
	}
	if ft := strings.ToLower(strings.TrimSpace(in.FileType)); ft != "" {
		updates["file_type"] = ft
	}
	ok, err := s.templates.SetStatus(dbc, id, from, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		if t.AnalysisStatus == types.AnalysisAnalyzing {
			return nil, fmt.Errorf("offer template %s is being analyzed: %w", id, errs.ErrConflict)
		}
		return nil, &errs.TransitionError{Action: "reanalyze template", From: string(t.AnalysisStatus)}
	}
	if s.queue != nil && !s.queue.Enqueue(id) {
		s.log.Warn("template queue full; left pending for sweep", "template_id", id)
	}
	return s.templates.GetByID(dbc, id)
}

func (s *templateService) Recoverable(ctx context.Context, staleAfter time.Duration) ([]uuid.UUID, error) {
	dbc := dbctx.Of(ctx)
	now := time.Now().UTC()
	pending, err := s.templates.ListByStatus(dbc, []types.AnalysisStatus{types.AnalysisPending}, now, 100)
	if err != nil {
		return nil, err
	}
	// Analyses orphaned by a crash go back to pending.
	stale, err := s.templates.ListByStatus(dbc, []types.AnalysisStatus{types.AnalysisAnalyzing}, now.Add(-staleAfter), 100)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(pending)+len(stale))
	for _, t := range pending {
		out = append(out, t.ID)
	}
	for _, t := range stale {
		ok, err := s.templates.SetStatus(dbc, t.ID, []types.AnalysisStatus{types.AnalysisAnalyzing},
			map[string]interface{}{"analysis_status": types.AnalysisPending})
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t.ID)
		}
	}
	return out, nil
}

func (s *templateService) RunAnalysis(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.Of(ctx)
	ok, err := s.templates.SetStatus(dbc, id, []types.AnalysisStatus{types.AnalysisPending}, map[string]interface{}{
		"analysis_status": types.AnalysisAnalyzing,
		"attempts":        gorm.Expr("attempts + 1"),
	})
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("template already claimed", "template_id", id)
		return nil
	}
	t, err := s.templates.GetByID(dbc, id)
	if err != nil {
		return err
	}

	ctx, span := observability.Tracer().Start(ctx, "template.analyze")
	defer span.End()

	fields, runErr := s.detectFields(ctx, t)

	// Outcome is recorded even when the worker is shutting down.
	persist := dbctx.Of(context.WithoutCancel(ctx))
	now := time.Now().UTC()
	if runErr != nil {
		span.RecordError(runErr)
		observability.Current().IncTemplateAnalysis(string(types.AnalysisFailed))
		s.log.Warn("template analysis failed", "template_id", id, "attempts", t.Attempts, "error", runErr)
		if err := s.templates.UpdateFields(persist, id, map[string]interface{}{
			"analysis_status": types.AnalysisFailed,
			"analysis_error":  truncateRunes(runErr.Error(), 500),
		}); err != nil {
			return err
		}
	} else {
		err = s.db.WithContext(persist.Ctx).Transaction(func(tx *gorm.DB) error {
			inner := persist.WithTx(tx)
			if err := s.templates.ReplaceFields(inner, id, fields); err != nil {
				return err
			}
			return s.templates.UpdateFields(inner, id, map[string]interface{}{
				"analysis_status": types.AnalysisCompleted,
				"analysis_error":  "",
				"analyzed_at":     now,
			})
		})
		if err != nil {
			return err
		}
		observability.Current().IncTemplateAnalysis(string(types.AnalysisCompleted))
		s.log.Info("template analyzed", "template_id", id, "fields", len(fields))
	}

	if done, err := s.templates.GetByID(persist, id); err == nil {
		s.notify.TemplateAnalyzed(done.AgentID, done)
	}
	return runErr
}

func (s *templateService) detectFields(ctx context.Context, t *types.OfferTemplate) ([]*types.OfferTemplateField, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("llm engine not configured")
	}
	var (
		data        []byte
		contentType string
	)
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		data, contentType, err = doctext.Download(ctx, s.client, t.FileURL, s.cfg.MaxBytes)
		return err
	})
	if err != nil {
		return nil, err
	}
	fileType := t.FileType
	if fileType == "" {
		fileType = contentType
	}
	text, err := doctext.Extract(data, fileType)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("template %s has no extractable text", t.ID)
	}
	text = truncateRunes(text, s.cfg.MaxPrompt)

	var raw string
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		started := time.Now()
		var err error
		raw, err = s.engine.Generate(ctx, llm.Request{
			Model:     s.cfg.Model,
			System:    promptstyle.ApplySystem(templatePrompt, promptstyle.ModeJSON),
			Messages:  []llm.Message{{Role: "user", Content: "Template: " + t.Name + "\n\n" + text}},
			MaxTokens: 2048,
			JSON:      true,
		})
		observability.Current().ObserveLLMRequest(s.engine.Name(), "template", llmStatus(err), time.Since(started))
		return err
	})
	if err != nil {
		return nil, err
	}
	return parseTemplateFields(raw)
}

const templatePrompt = `You read real-estate purchase offer templates and list the fields an agent must fill in.
Return {"fields":[{"name":"snake_case_name","label":"Label as printed","field_type":"text|currency|date|number|checkbox|signature","required":true,"page":1,"default_value":""}]}.
List each field once, in document order.`

var (
	fieldNameStrip = regexp.MustCompile(`[^a-z0-9]+`)
	fieldTypes     = map[string]bool{"text": true, "currency": true, "date": true, "number": true, "checkbox": true, "signature": true}
)

func parseTemplateFields(raw string) ([]*types.OfferTemplateField, error) {
	var body struct {
		Fields []struct {
			Name         string `json:"name"`
			Label        string `json:"label"`
			FieldType    string `json:"field_type"`
			Required     bool   `json:"required"`
			Page         int    `json:"page"`
			DefaultValue string `json:"default_value"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &body); err != nil {
		return nil, fmt.Errorf("decode template fields: %w", err)
	}
	seen := make(map[string]bool, len(body.Fields))
	out := make([]*types.OfferTemplateField, 0, len(body.Fields))
	for _, f := range body.Fields {
		name := strings.Trim(fieldNameStrip.ReplaceAllString(strings.ToLower(firstNonBlank(f.Name, f.Label)), "_"), "_")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		ft := strings.ToLower(strings.TrimSpace(f.FieldType))
		if !fieldTypes[ft] {
			ft = "text"
		}
		page := f.Page
		if page < 0 {
			page = 0
		}
		out = append(out, &types.OfferTemplateField{
			Name:         name,
			Label:        firstNonBlank(f.Label, f.Name),
			FieldType:    ft,
			Required:     f.Required,
			Page:         page,
			DefaultValue: strings.TrimSpace(f.DefaultValue),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no fields detected")
	}
	return out, nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
