package service

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"quickhand-be/internal/config"
	"quickhand-be/internal/dto"
	"quickhand-be/internal/entity"
	"quickhand-be/internal/pkg/serverutils"
	"quickhand-be/pkg/assistant/intent"
	"quickhand-be/pkg/assistant/reasoner"
	"quickhand-be/pkg/assistant/roles"
	"quickhand-be/pkg/llm"

	"github.com/google/uuid"
)

type stubClassifier struct {
	result *intent.Result
	needs  *intent.NeedsInfo
}

func (s *stubClassifier) Classify(ctx context.Context, query string, profile roles.Profile) (*intent.Result, *intent.NeedsInfo) {
	if s.needs != nil {
		return nil, s.needs
	}
	return s.result, nil
}

type stubSearcher struct {
	citations []dto.CitationDTO
	called    bool
	gotQuery  string
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) []dto.CitationDTO {
	s.called = true
	s.gotQuery = query
	return s.citations
}

type stubReasoner struct {
	outcome       *reasoner.Outcome
	called        bool
	gotAllowTools bool
	gotHistory    []llm.Message
}

func (s *stubReasoner) Reason(ctx context.Context, history []llm.Message, allowTools bool) *reasoner.Outcome {
	s.called = true
	s.gotAllowTools = allowTools
	s.gotHistory = history
	return s.outcome
}

type stubPlanner struct {
	notionCalls int
	gmailCalls  int
}

func (s *stubPlanner) BuildNotion(ctx context.Context, rawArgs json.RawMessage, answer string, citations []dto.CitationDTO) *dto.ActionPlanItemDTO {
	s.notionCalls++
	return &dto.ActionPlanItemDTO{Id: "action-notion-1", Kind: dto.ActionKindNotion, Status: dto.ActionStatusPending}
}

func (s *stubPlanner) BuildGmail(ctx context.Context, rawArgs json.RawMessage, query, answer string) *dto.ActionPlanItemDTO {
	s.gmailCalls++
	return &dto.ActionPlanItemDTO{Id: "action-gmail-1", Kind: dto.ActionKindGmail, Status: dto.ActionStatusPending}
}

func (s *stubPlanner) BuildSummarize(answer string) *dto.ActionPlanItemDTO {
	return &dto.ActionPlanItemDTO{Id: "action-summarize-1", Kind: dto.ActionKindSummarize, Status: dto.ActionStatusPending}
}

type stubComposer struct {
	called bool
}

func (s *stubComposer) Compose(ctx context.Context, query, rawAnswer string, citations []dto.CitationDTO, planItems []*dto.ActionPlanItemDTO) *dto.StructuredAnswerDTO {
	s.called = true
	return &dto.StructuredAnswerDTO{Answer: rawAnswer, Bullets: []string{rawAnswer}, Citations: citations}
}

type stubPublisher struct {
	messages []dto.MemoryAppendMessage
}

func (s *stubPublisher) PublishMemoryAppend(payload dto.MemoryAppendMessage) error {
	s.messages = append(s.messages, payload)
	return nil
}

type recordingMemory struct {
	gotScope string
}

func (m *recordingMemory) Search(ctx context.Context, userId, scope, query string, limit int) ([]string, error) {
	m.gotScope = scope
	return []string{"User prefers coastal destinations"}, nil
}

func (m *recordingMemory) Append(ctx context.Context, userId, scope string, entries []string) error {
	return nil
}

type stubExchangeRepo struct {
	exchanges []entity.AssistantExchange
	total     int64
	err       error
	gotUserId string
	gotLimit  int
	gotOffset int
}

func (r *stubExchangeRepo) Create(ctx context.Context, exchange *entity.AssistantExchange) error {
	return nil
}

func (r *stubExchangeRepo) GetByUserId(ctx context.Context, userId string, limit, offset int) ([]entity.AssistantExchange, int64, error) {
	r.gotUserId = userId
	r.gotLimit = limit
	r.gotOffset = offset
	return r.exchanges, r.total, r.err
}

type fixture struct {
	classifier *stubClassifier
	searcher   *stubSearcher
	reasoner   *stubReasoner
	planner    *stubPlanner
	composer   *stubComposer
	publisher  *stubPublisher
	mem        *recordingMemory
	svc        IAssistantService
}

func newFixture(result *intent.Result, needs *intent.NeedsInfo, outcome *reasoner.Outcome, citations []dto.CitationDTO) *fixture {
	f := &fixture{
		classifier: &stubClassifier{result: result, needs: needs},
		searcher:   &stubSearcher{citations: citations},
		reasoner:   &stubReasoner{outcome: outcome},
		planner:    &stubPlanner{},
		composer:   &stubComposer{},
		publisher:  &stubPublisher{},
		mem:        &recordingMemory{},
	}
	timeouts := config.TimeoutConfig{
		Memory:      time.Second,
		Search:      time.Second,
		Classify:    time.Second,
		Generation:  time.Second,
		Reasoning:   time.Second,
		Composition: time.Second,
	}
	f.svc = NewAssistantService(
		roles.DefaultRegistry(),
		f.classifier,
		f.searcher,
		f.mem,
		f.reasoner,
		f.planner,
		f.composer,
		f.publisher,
		nil, nil,
		log.New(os.Stderr, "[test] ", 0),
		timeouts,
	)
	return f
}

func planReq(role, query string) *dto.PlanRequest {
	return &dto.PlanRequest{
		Role: role,
		History: []dto.ConversationTurnDTO{
			{Role: "system", Content: "client default prompt"},
			{Role: "user", Content: query},
		},
	}
}

func TestPlanSearchTurn(t *testing.T) {
	citations := []dto.CitationDTO{
		{Id: 1, Title: "A", Url: "https://a.example.com"},
		{Id: 2, Title: "B", Url: "https://b.example.com"},
	}
	f := newFixture(
		&intent.Result{Intent: intent.IntentInfoLookup, Topic: "remote work benefits"},
		nil,
		&reasoner.Outcome{Content: "Remote work helps focus [1] and cuts costs [2]."},
		citations,
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "benefits of remote work?"))
	if err != nil {
		t.Fatal(err)
	}

	if !f.searcher.called || f.searcher.gotQuery != "remote work benefits" {
		t.Errorf("search not run on the classified topic: called=%v query=%q", f.searcher.called, f.searcher.gotQuery)
	}
	if len(resp.Citations) != 2 || resp.Citations[0].Id != 1 || resp.Citations[1].Id != 2 {
		t.Errorf("citations = %v", resp.Citations)
	}
	if len(resp.Plan) != 0 {
		t.Errorf("pure search turn must not carry a plan, got %v", resp.Plan)
	}
	if resp.Structured == nil || !f.composer.called {
		t.Error("turn with citations should be composed")
	}
	if resp.Metadata.Intent != intent.IntentInfoLookup {
		t.Errorf("metadata intent = %q", resp.Metadata.Intent)
	}
	if resp.Id == "" {
		t.Error("response id missing")
	}
}

func TestPlanActionTurn(t *testing.T) {
	outcome := &reasoner.Outcome{
		Content: "Found the options and prepared a note.",
		ToolCalls: []llm.ToolCall{
			{Name: reasoner.ToolNotionCreate, Arguments: json.RawMessage(`{"title":"Trip"}`)},
		},
	}
	f := newFixture(
		&intent.Result{Intent: intent.IntentActionRequest, Topic: "trip options"},
		nil,
		outcome,
		[]dto.CitationDTO{{Id: 1, Title: "A", Url: "https://a.example.com"}},
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "find trips and save to notion"))
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Plan) != 1 || resp.Plan[0].Kind != dto.ActionKindNotion {
		t.Fatalf("plan = %v", resp.Plan)
	}
	if resp.Plan[0].Status != dto.ActionStatusPending {
		t.Errorf("plan item status = %q, want pending", resp.Plan[0].Status)
	}
	if f.planner.notionCalls != 1 {
		t.Errorf("notion build calls = %d", f.planner.notionCalls)
	}
	if resp.Metadata.ToolCalls[0] != reasoner.ToolNotionCreate {
		t.Errorf("metadata toolCalls = %v", resp.Metadata.ToolCalls)
	}
}

func TestPlanToolOnlyTurnBackfillsContent(t *testing.T) {
	outcome := &reasoner.Outcome{
		Content: "",
		ToolCalls: []llm.ToolCall{
			{Name: reasoner.ToolNotionCreate, Arguments: json.RawMessage(`{}`)},
		},
	}
	f := newFixture(
		&intent.Result{Intent: intent.IntentActionRequest, Topic: "meeting notes"},
		nil,
		outcome,
		nil,
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "save these notes"))
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Plan) != 1 {
		t.Fatalf("plan = %v", resp.Plan)
	}
	if strings.TrimSpace(resp.Content) == "" {
		t.Error("turn with plan items must never ship empty content")
	}
	if resp.Structured == nil || strings.TrimSpace(resp.Structured.Answer) == "" {
		t.Error("composition must see the backfilled content")
	}
}

func TestPlanNeedsInfoShortCircuit(t *testing.T) {
	f := newFixture(
		nil,
		&intent.NeedsInfo{Missing: []string{"location"}, Question: "Happy to help! Could you tell me where you are first?"},
		&reasoner.Outcome{Content: "should never appear"},
		nil,
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "what's the weather like?"))
	if err != nil {
		t.Fatal(err)
	}

	if !resp.NeedsInfo || resp.Question == "" || len(resp.Missing) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Content != "" || resp.Structured != nil || len(resp.Plan) != 0 {
		t.Error("needs-info response must be otherwise empty")
	}
	if f.searcher.called || f.reasoner.called || f.composer.called {
		t.Error("needs-info turn must not search, reason, or compose")
	}
	if len(f.publisher.messages) != 0 {
		t.Error("needs-info turn must not write memory")
	}
}

func TestPlanChitchatDisablesToolsAndSearch(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentChitchat, Topic: "greeting"},
		nil,
		&reasoner.Outcome{Content: "Doing great, thanks!"},
		[]dto.CitationDTO{{Id: 1, Title: "X", Url: "https://x.example.com"}},
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "how are you?"))
	if err != nil {
		t.Fatal(err)
	}

	if f.searcher.called {
		t.Error("chitchat must not trigger web search")
	}
	if f.reasoner.gotAllowTools {
		t.Error("chitchat must not be offered tools")
	}
	if len(resp.Citations) != 0 || len(resp.Plan) != 0 {
		t.Errorf("chitchat response should be plain, got citations=%v plan=%v", resp.Citations, resp.Plan)
	}
	if f.composer.called {
		t.Error("plain chitchat turn needs no composition")
	}
	if len(f.publisher.messages) != 0 {
		t.Error("chitchat must not write memory")
	}
}

func TestPlanSummarizeFallbackItem(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentSummarize, Topic: "meeting notes"},
		nil,
		&reasoner.Outcome{Content: "Summary: three decisions were made."},
		nil,
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("executive", "summarize this meeting"))
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Plan) != 1 || resp.Plan[0].Kind != dto.ActionKindSummarize {
		t.Errorf("plan = %v, want a summarize item", resp.Plan)
	}
}

func TestPlanInlineSearchToolCall(t *testing.T) {
	outcome := &reasoner.Outcome{
		Content: "Let me check current prices.",
		ToolCalls: []llm.ToolCall{
			{Name: reasoner.ToolExaSearch, Arguments: json.RawMessage(`{"query":"ferry prices lisbon"}`)},
		},
	}
	// Chitchat-free intent but WantsSearch false, so retrieval leg skips
	// and the tool call is the only search path.
	f := newFixture(
		&intent.Result{Intent: intent.IntentEmailDraft, Topic: "ferry prices"},
		nil,
		outcome,
		[]dto.CitationDTO{{Id: 1, Title: "Ferries", Url: "https://f.example.com"}},
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "email me ferry prices"))
	if err != nil {
		t.Fatal(err)
	}

	if !f.searcher.called || f.searcher.gotQuery != "ferry prices lisbon" {
		t.Errorf("inline search not executed: called=%v query=%q", f.searcher.called, f.searcher.gotQuery)
	}
	if len(resp.Citations) != 1 {
		t.Errorf("citations = %v", resp.Citations)
	}
	if len(resp.Plan) != 0 {
		t.Errorf("search tool call must not become a plan item, got %v", resp.Plan)
	}
}

func TestPlanUnknownToolCallSkipped(t *testing.T) {
	outcome := &reasoner.Outcome{
		Content: "Done.",
		ToolCalls: []llm.ToolCall{
			{Name: "delete_everything", Arguments: json.RawMessage(`{}`)},
			{Name: reasoner.ToolGmailCreateDraft, Arguments: json.RawMessage(`{"to":["a@b.c"]}`)},
		},
	}
	f := newFixture(
		&intent.Result{Intent: intent.IntentEmailDraft, Topic: "email"},
		nil,
		outcome,
		nil,
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "email someone"))
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Plan) != 1 || resp.Plan[0].Kind != dto.ActionKindGmail {
		t.Errorf("plan = %v, want only the gmail item", resp.Plan)
	}
}

func TestPlanMemoryScopedToRole(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentInfoLookup, Topic: "thermodynamics"},
		nil,
		&reasoner.Outcome{Content: "Entropy always increases."},
		nil,
	)

	if _, err := f.svc.Plan(context.Background(), "user-1", planReq("student", "explain entropy")); err != nil {
		t.Fatal(err)
	}

	if f.mem.gotScope != "student" {
		t.Errorf("memory searched with scope %q, want the role key", f.mem.gotScope)
	}

	// The recalled memory must reach the model prompt.
	if len(f.reasoner.gotHistory) == 0 {
		t.Fatal("reasoner received no history")
	}
	system := f.reasoner.gotHistory[0]
	if system.Role != "system" {
		t.Fatalf("first message role = %q", system.Role)
	}
	if !strings.Contains(system.Content, "coastal destinations") {
		t.Error("recalled memory missing from system prompt")
	}
	// Inbound system turn is replaced, not forwarded.
	for _, m := range f.reasoner.gotHistory[1:] {
		if m.Role == "system" {
			t.Error("client system turn leaked into model history")
		}
	}
}

func TestPlanMemoryWriteAfterTurn(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentInfoLookup, Topic: "visas"},
		nil,
		&reasoner.Outcome{Content: "You need a visa for stays over 90 days."},
		nil,
	)

	if _, err := f.svc.Plan(context.Background(), "user-7", planReq("general", "do I need a visa?")); err != nil {
		t.Fatal(err)
	}

	if len(f.publisher.messages) != 1 {
		t.Fatalf("memory appends = %d, want 1", len(f.publisher.messages))
	}
	msg := f.publisher.messages[0]
	if msg.UserId != "user-7" || msg.Scope != "general" {
		t.Errorf("memory append = %+v", msg)
	}
}

func TestPlanMemoryEntryStaysValidUTF8(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentInfoLookup, Topic: "restaurant names"},
		nil,
		&reasoner.Outcome{Content: strings.Repeat("寿司", 400)},
		nil,
	)

	if _, err := f.svc.Plan(context.Background(), "user-1", planReq("general", "list restaurants")); err != nil {
		t.Fatal(err)
	}

	if len(f.publisher.messages) != 1 {
		t.Fatalf("memory appends = %d, want 1", len(f.publisher.messages))
	}
	entry := f.publisher.messages[0].Entries[0]
	if !utf8.ValidString(entry) {
		t.Errorf("memory entry is not valid UTF-8: %q", entry[len(entry)-8:])
	}
}

func TestHistoryPagesExchangeLog(t *testing.T) {
	repo := &stubExchangeRepo{
		exchanges: []entity.AssistantExchange{
			{Id: uuid.New(), UserId: "user-1", RoleKey: "general", Query: "q1", Content: "a1", CreatedAt: time.Now()},
			{Id: uuid.New(), UserId: "user-1", RoleKey: "student", Query: "q2", Content: "a2", CreatedAt: time.Now()},
		},
		total: 41,
	}
	svc := NewAssistantService(
		roles.DefaultRegistry(),
		nil, nil, nil, nil, nil, nil, nil,
		repo, nil,
		log.New(os.Stderr, "[test] ", 0),
		config.TimeoutConfig{},
	)

	resp, err := svc.History(context.Background(), "user-1", 0, -3)
	if err != nil {
		t.Fatal(err)
	}

	if repo.gotUserId != "user-1" {
		t.Errorf("repo queried for %q", repo.gotUserId)
	}
	if repo.gotLimit != historyDefaultLimit || repo.gotOffset != 0 {
		t.Errorf("limit=%d offset=%d, want defaults applied", repo.gotLimit, repo.gotOffset)
	}
	if resp.Total != 41 || len(resp.Items) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Items[0].Role != "general" || resp.Items[0].Query != "q1" || resp.Items[0].Content != "a1" {
		t.Errorf("item = %+v", resp.Items[0])
	}

	if _, err := svc.History(context.Background(), "user-1", 500, 10); err != nil {
		t.Fatal(err)
	}
	if repo.gotLimit != historyMaxLimit || repo.gotOffset != 10 {
		t.Errorf("limit=%d offset=%d, want limit capped", repo.gotLimit, repo.gotOffset)
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	svc := NewAssistantService(
		roles.DefaultRegistry(),
		nil, nil, nil, nil, nil, nil, nil, nil, nil,
		log.New(os.Stderr, "[test] ", 0),
		config.TimeoutConfig{},
	)

	_, err := svc.History(context.Background(), "user-1", 0, 0)
	apiErr, ok := err.(*serverutils.ApiError)
	if !ok || apiErr.Status != 500 {
		t.Errorf("err = %v, want 500 ApiError", err)
	}
}

func TestPlanRejectsHistoryWithoutUserTurn(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentInfoLookup, Topic: "x"},
		nil,
		&reasoner.Outcome{Content: "x"},
		nil,
	)

	req := &dto.PlanRequest{
		Role: "general",
		History: []dto.ConversationTurnDTO{
			{Role: "assistant", Content: "hello"},
		},
	}
	_, err := f.svc.Plan(context.Background(), "user-1", req)
	apiErr, ok := err.(*serverutils.ApiError)
	if !ok || apiErr.Status != 400 {
		t.Errorf("err = %v, want 400 ApiError", err)
	}
}

func TestPlanUnconfiguredProvider(t *testing.T) {
	svc := NewAssistantService(
		roles.DefaultRegistry(),
		nil, nil, nil, nil, nil, nil, nil, nil, nil,
		log.New(os.Stderr, "[test] ", 0),
		config.TimeoutConfig{},
	)

	_, err := svc.Plan(context.Background(), "user-1", planReq("general", "hi"))
	apiErr, ok := err.(*serverutils.ApiError)
	if !ok || apiErr.Status != 500 {
		t.Errorf("err = %v, want 500 ApiError", err)
	}
}

func TestPlanUnknownRoleFallsBack(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentInfoLookup, Topic: "x"},
		nil,
		&reasoner.Outcome{Content: "answer"},
		nil,
	)

	resp, err := f.svc.Plan(context.Background(), "user-1", planReq("pirate", "what is x?"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if f.mem.gotScope != roles.DefaultKey {
		t.Errorf("scope = %q, want default role", f.mem.gotScope)
	}
}

func TestRoles(t *testing.T) {
	f := newFixture(&intent.Result{Intent: intent.IntentChitchat}, nil, &reasoner.Outcome{}, nil)

	got := f.svc.Roles()
	if len(got) != 3 {
		t.Fatalf("roles = %v", got)
	}
	if got[0].Key != "general" {
		t.Errorf("first role = %+v, want general first", got[0])
	}
}

func TestClassifyIntent(t *testing.T) {
	f := newFixture(
		&intent.Result{Intent: intent.IntentEmailDraft, Topic: "schedule email", Needs: intent.Needs{Email: true}},
		nil,
		&reasoner.Outcome{},
		nil,
	)
	// Needs handled by the classifier itself in production; here the stub
	// returns a plain result so the mapping path is exercised.
	resp, err := f.svc.ClassifyIntent(context.Background(), &dto.ClassifyRequest{Role: "general", Query: "email sarah"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Intent != intent.IntentEmailDraft || !resp.Needs.Email {
		t.Errorf("resp = %+v", resp)
	}
}
