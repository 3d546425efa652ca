package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"quickhand-be/internal/config"
	"quickhand-be/internal/dto"
	"quickhand-be/internal/entity"
	"quickhand-be/internal/pkg/serverutils"
	"quickhand-be/internal/repository"
	"quickhand-be/pkg/assistant/intent"
	"quickhand-be/pkg/assistant/reasoner"
	"quickhand-be/pkg/assistant/roles"
	"quickhand-be/pkg/bound"
	"quickhand-be/pkg/events"
	"quickhand-be/pkg/llm"
	"quickhand-be/pkg/memory"
	pktNats "quickhand-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	searchResultLimit = 5
	memoryResultLimit = 3

	historyDefaultLimit = 20
	historyMaxLimit     = 100
)

type IAssistantService interface {
	Plan(ctx context.Context, userId string, req *dto.PlanRequest) (*dto.PlanResponse, error)
	ClassifyIntent(ctx context.Context, req *dto.ClassifyRequest) (*dto.ClassifyResponse, error)
	Roles() []dto.RoleProfileResponse
	History(ctx context.Context, userId string, limit, offset int) (*dto.ExchangeHistoryResponse, error)
}

// Narrow views of the pipeline stages. The orchestrator only needs these
// methods; tests substitute stubs.
type intentClassifier interface {
	Classify(ctx context.Context, query string, profile roles.Profile) (*intent.Result, *intent.NeedsInfo)
}

type webSearcher interface {
	Search(ctx context.Context, query string, limit int) []dto.CitationDTO
}

type turnReasoner interface {
	Reason(ctx context.Context, history []llm.Message, allowTools bool) *reasoner.Outcome
}

type actionPlanner interface {
	BuildNotion(ctx context.Context, rawArgs json.RawMessage, answer string, citations []dto.CitationDTO) *dto.ActionPlanItemDTO
	BuildGmail(ctx context.Context, rawArgs json.RawMessage, query, answer string) *dto.ActionPlanItemDTO
	BuildSummarize(answer string) *dto.ActionPlanItemDTO
}

type answerComposer interface {
	Compose(ctx context.Context, query, rawAnswer string, citations []dto.CitationDTO, planItems []*dto.ActionPlanItemDTO) *dto.StructuredAnswerDTO
}

type assistantService struct {
	registry     *roles.Registry
	classifier   intentClassifier
	searcher     webSearcher
	memoryStore  memory.Store
	reasoner     turnReasoner
	planner      actionPlanner
	composer     answerComposer
	publisher    IPublisherService
	exchangeRepo repository.ExchangeRepository // optional
	natsPub      *pktNats.Publisher            // optional
	logger       *log.Logger
	timeouts     config.TimeoutConfig
}

func NewAssistantService(
	registry *roles.Registry,
	classifier intentClassifier,
	searcher webSearcher,
	memoryStore memory.Store,
	turnReasoner turnReasoner,
	planner actionPlanner,
	composer answerComposer,
	publisher IPublisherService,
	exchangeRepo repository.ExchangeRepository,
	natsPub *pktNats.Publisher,
	logger *log.Logger,
	timeouts config.TimeoutConfig,
) IAssistantService {
	return &assistantService{
		registry:     registry,
		classifier:   classifier,
		searcher:     searcher,
		memoryStore:  memoryStore,
		reasoner:     turnReasoner,
		planner:      planner,
		composer:     composer,
		publisher:    publisher,
		exchangeRepo: exchangeRepo,
		natsPub:      natsPub,
		logger:       logger,
		timeouts:     timeouts,
	}
}

// Plan runs one full assistant turn: classify, retrieve, reason, plan,
// compose. Only missing configuration or an invalid request produce an
// error; every upstream failure degrades inside the stage that hit it.
func (s *assistantService) Plan(ctx context.Context, userId string, req *dto.PlanRequest) (*dto.PlanResponse, error) {
	if s.reasoner == nil {
		return nil, serverutils.NewApiError(fiber.StatusInternalServerError, "Assistant is not configured. Set an LLM provider and restart.")
	}

	query, err := latestUserQuery(req.History)
	if err != nil {
		return nil, err
	}

	profile := s.registry.Get(req.Role)
	s.logger.Printf("[TURN] user=%s role=%s query=%q", userId, profile.Key, query)

	result, needsInfo := s.classifier.Classify(ctx, query, profile)
	if needsInfo != nil {
		// Short-circuit: no retrieval, no reasoning, no plan.
		return &dto.PlanResponse{
			NeedsInfo: true,
			Missing:   needsInfo.Missing,
			Question:  needsInfo.Question,
		}, nil
	}

	memories, citations := s.retrieve(ctx, userId, profile.Key, result)

	history := s.buildHistory(profile, req.History, memories, citations)
	outcome := s.reasoner.Reason(ctx, history, intent.AllowsTools(result.Intent))

	citations, planItems := s.dispatchToolCalls(ctx, outcome, query, result, citations)

	if result.Intent == intent.IntentSummarize && len(planItems) == 0 {
		planItems = append(planItems, s.planner.BuildSummarize(outcome.Content))
	}

	// Models routinely emit tool calls with a null content field. The user
	// still gets prose: confirm what was prepared.
	content := outcome.Content
	if strings.TrimSpace(content) == "" && len(planItems) > 0 {
		content = confirmationFromPlan(planItems)
	}

	var structured *dto.StructuredAnswerDTO
	if len(citations) > 0 || len(planItems) > 0 {
		structured = s.composer.Compose(ctx, query, content, citations, planItems)
	}

	resp := &dto.PlanResponse{
		Id:         uuid.NewString(),
		Content:    content,
		Citations:  citations,
		Plan:       planItems,
		Structured: structured,
		Metadata: &dto.ResponseMetadataDTO{
			Intent:    result.Intent,
			Topic:     result.Topic,
			ToolCalls: toolCallNames(outcome.ToolCalls),
		},
	}

	s.finishTurn(userId, profile.Key, query, result, resp)
	return resp, nil
}

func (s *assistantService) ClassifyIntent(ctx context.Context, req *dto.ClassifyRequest) (*dto.ClassifyResponse, error) {
	if s.classifier == nil {
		return nil, serverutils.NewApiError(fiber.StatusInternalServerError, "Assistant is not configured. Set an LLM provider and restart.")
	}
	profile := s.registry.Get(req.Role)

	result, needsInfo := s.classifier.Classify(ctx, req.Query, profile)
	if needsInfo != nil {
		return &dto.ClassifyResponse{
			NeedsInfo: true,
			Missing:   needsInfo.Missing,
			Question:  needsInfo.Question,
		}, nil
	}

	resp := &dto.ClassifyResponse{
		Intent: result.Intent,
		Topic:  result.Topic,
	}
	resp.Needs.Location = result.Needs.Location
	resp.Needs.Email = result.Needs.Email
	return resp, nil
}

func (s *assistantService) Roles() []dto.RoleProfileResponse {
	profiles := s.registry.All()
	out := make([]dto.RoleProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, dto.RoleProfileResponse{Key: p.Key, Label: p.Label})
	}
	return out
}

// History pages through the persisted turn log, newest first.
func (s *assistantService) History(ctx context.Context, userId string, limit, offset int) (*dto.ExchangeHistoryResponse, error) {
	if s.exchangeRepo == nil {
		return nil, serverutils.NewApiError(fiber.StatusInternalServerError, "History requires a database. Configure one and restart.")
	}
	if limit <= 0 {
		limit = historyDefaultLimit
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	exchanges, total, err := s.exchangeRepo.GetByUserId(ctx, userId, limit, offset)
	if err != nil {
		s.logger.Printf("[WARN] History lookup failed: %v", err)
		return nil, serverutils.NewApiError(fiber.StatusInternalServerError, "Couldn't load your history. Try again in a moment.")
	}

	items := make([]dto.ExchangeSummaryDTO, 0, len(exchanges))
	for _, ex := range exchanges {
		items = append(items, dto.ExchangeSummaryDTO{
			Id:        ex.Id.String(),
			Role:      ex.RoleKey,
			Query:     ex.Query,
			Content:   ex.Content,
			CreatedAt: ex.CreatedAt,
		})
	}
	return &dto.ExchangeHistoryResponse{Items: items, Total: total}, nil
}

// retrieve runs memory recall and web search in parallel. Both legs are
// best-effort and independently bounded.
func (s *assistantService) retrieve(ctx context.Context, userId, scope string, result *intent.Result) ([]string, []dto.CitationDTO) {
	var memories []string
	var citations []dto.CitationDTO

	var wg sync.WaitGroup

	if s.memoryStore != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := bound.Call(ctx, s.timeouts.Memory, []string{}, func(ctx context.Context) ([]string, error) {
				return s.memoryStore.Search(ctx, userId, scope, result.Topic, memoryResultLimit)
			})
			if res.Err != nil {
				s.logger.Printf("[WARN] Memory recall degraded (timedOut=%v): %v", res.TimedOut, res.Err)
				return
			}
			memories = res.Value
		}()
	}

	if s.searcher != nil && intent.WantsSearch(result.Intent) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			citations = s.searcher.Search(ctx, result.Topic, searchResultLimit)
		}()
	}

	wg.Wait()
	return memories, citations
}

// buildHistory assembles the model-facing conversation. The inbound
// system turn is replaced by the role preset; user and assistant turns
// pass through in order.
func (s *assistantService) buildHistory(profile roles.Profile, turns []dto.ConversationTurnDTO, memories []string, citations []dto.CitationDTO) []llm.Message {
	var system strings.Builder
	system.WriteString(profile.SystemPrompt)

	if len(memories) > 0 {
		system.WriteString("\n\n<what_you_remember>\n")
		for _, m := range memories {
			system.WriteString("- ")
			system.WriteString(m)
			system.WriteString("\n")
		}
		system.WriteString("</what_you_remember>")
	}

	if len(citations) > 0 {
		system.WriteString("\n\n<web_sources>\n")
		system.WriteString("Cite these inline with their bracketed numbers. Never renumber or invent sources.\n")
		for _, c := range citations {
			system.WriteString(fmt.Sprintf("[%d] %s (%s)\n", c.Id, c.Title, c.Url))
			if c.Snippet != "" {
				system.WriteString("    " + c.Snippet + "\n")
			}
		}
		system.WriteString("</web_sources>")
	}

	system.WriteString("\n\n<style_examples>\n")
	system.WriteString(profile.FewShot.SearchExample)
	system.WriteString("\n\n")
	system.WriteString(profile.FewShot.EmailExample)
	system.WriteString("\n</style_examples>")

	history := make([]llm.Message, 0, len(turns)+1)
	history = append(history, llm.Message{Role: "system", Content: system.String()})
	for _, t := range turns {
		if t.Role == "system" {
			continue
		}
		history = append(history, llm.Message{Role: t.Role, Content: t.Content})
	}
	return history
}

// dispatchToolCalls routes the model's tool calls. Search calls run
// inline as supplementary retrieval; side-effect calls become pending
// plan items, built concurrently with their relative order preserved.
func (s *assistantService) dispatchToolCalls(ctx context.Context, outcome *reasoner.Outcome, query string, result *intent.Result, citations []dto.CitationDTO) ([]dto.CitationDTO, []*dto.ActionPlanItemDTO) {
	items := make([]*dto.ActionPlanItemDTO, len(outcome.ToolCalls))
	var wg sync.WaitGroup

	for i, tc := range outcome.ToolCalls {
		switch tc.Name {
		case reasoner.ToolExaSearch:
			// Citation ids are frozen once assigned; a second search in
			// the same turn would renumber, so only the first one runs.
			if len(citations) > 0 || s.searcher == nil {
				s.logger.Printf("[TURN] Skipping exa_search call, citations already resolved")
				continue
			}
			var args struct {
				Query      string `json:"query"`
				NumResults int    `json:"num_results"`
			}
			if err := json.Unmarshal(tc.Arguments, &args); err != nil || args.Query == "" {
				s.logger.Printf("[WARN] Skipping exa_search call with bad arguments: %v", err)
				continue
			}
			if args.NumResults <= 0 {
				args.NumResults = searchResultLimit
			}
			citations = s.searcher.Search(ctx, args.Query, args.NumResults)

		case reasoner.ToolNotionCreate:
			wg.Add(1)
			go func(i int, args json.RawMessage, cits []dto.CitationDTO) {
				defer wg.Done()
				items[i] = s.planner.BuildNotion(ctx, args, outcome.Content, cits)
			}(i, tc.Arguments, citations)

		case reasoner.ToolGmailCreateDraft:
			wg.Add(1)
			go func(i int, args json.RawMessage) {
				defer wg.Done()
				items[i] = s.planner.BuildGmail(ctx, args, query, outcome.Content)
			}(i, tc.Arguments)

		default:
			s.logger.Printf("[WARN] Skipping unknown tool call %q", tc.Name)
		}
	}
	wg.Wait()

	planItems := make([]*dto.ActionPlanItemDTO, 0, len(items))
	for _, item := range items {
		if item != nil {
			planItems = append(planItems, item)
		}
	}
	return citations, planItems
}

// finishTurn runs the post-response bookkeeping: memory write, audit row,
// and bus event. All of it is detached from the request.
func (s *assistantService) finishTurn(userId, roleKey, query string, result *intent.Result, resp *dto.PlanResponse) {
	if s.publisher != nil && result.Intent != intent.IntentChitchat {
		entry := fmt.Sprintf("User asked about %s: %q. Assistant replied: %s",
			result.Topic, query, truncateForMemory(resp.Content))
		if err := s.publisher.PublishMemoryAppend(dto.MemoryAppendMessage{
			UserId:  userId,
			Scope:   roleKey,
			Entries: []string{entry},
		}); err != nil {
			s.logger.Printf("[WARN] Memory publish failed: %v", err)
		}
	}

	if s.exchangeRepo != nil {
		exchange := &entity.AssistantExchange{
			Id:        uuid.New(),
			UserId:    userId,
			RoleKey:   roleKey,
			Query:     query,
			Content:   resp.Content,
			Citations: mustJSON(resp.Citations),
			Plan:      mustJSON(resp.Plan),
			Metadata:  mustJSON(resp.Metadata),
			CreatedAt: time.Now(),
		}
		bound.Go(s.timeouts.Memory, func(err error) {
			s.logger.Printf("[WARN] Exchange persist failed: %v", err)
		}, func(ctx context.Context) error {
			return s.exchangeRepo.Create(ctx, exchange)
		})
	}

	if s.natsPub != nil {
		event := events.TurnCompleted(userId, roleKey, result.Intent, len(resp.Citations), len(resp.Plan))
		bound.Go(s.timeouts.Memory, func(err error) {
			s.logger.Printf("[WARN] Event publish failed: %v", err)
		}, func(ctx context.Context) error {
			return s.natsPub.Publish(ctx, event)
		})
	}
}

func latestUserQuery(turns []dto.ConversationTurnDTO) (string, error) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == "user" && strings.TrimSpace(turns[i].Content) != "" {
			return turns[i].Content, nil
		}
	}
	return "", serverutils.NewApiError(fiber.StatusBadRequest, "History must contain at least one user turn.")
}

func toolCallNames(calls []llm.ToolCall) []string {
	names := make([]string, 0, len(calls))
	for _, tc := range calls {
		names = append(names, tc.Name)
	}
	return names
}

// confirmationFromPlan builds the reply for a tool-calls-only turn out of
// the prepared item labels.
func confirmationFromPlan(items []*dto.ActionPlanItemDTO) string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		if item.Label != "" {
			labels = append(labels, item.Label)
		}
	}
	if len(labels) == 0 {
		return "I've prepared the requested actions. Review them below and confirm to proceed."
	}
	return fmt.Sprintf("I've prepared the following for you: %s. Review and confirm to proceed.", strings.Join(labels, "; "))
}

func truncateForMemory(s string) string {
	// Cut on a rune boundary so a multibyte character at position 500
	// never produces invalid UTF-8.
	runes := []rune(s)
	if len(runes) <= 500 {
		return s
	}
	return string(runes[:500])
}

func mustJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}
