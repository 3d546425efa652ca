package service

import (
	"context"
	"fmt"
	"time"

	"quickhand-be/internal/dto"
	"quickhand-be/internal/pkg/logger"
	"quickhand-be/internal/pkg/serverutils"
	"quickhand-be/pkg/bound"
	"quickhand-be/pkg/events"
	"quickhand-be/pkg/integrations/gmail"
	"quickhand-be/pkg/integrations/notion"
	pktNats "quickhand-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
)

const statusCacheTTL = 5 * time.Minute

type IActionService interface {
	Execute(ctx context.Context, userId string, req *dto.ExecuteActionRequest) (*dto.ExecuteActionResponse, error)
	ProviderStatus(ctx context.Context, provider string) (*dto.ProviderStatusResponse, error)
}

type actionService struct {
	notionClient *notion.Client
	gmailClient  *gmail.Client
	natsPub      *pktNats.Publisher // optional
	statusCache  *cache.Cache
	logger       logger.ILogger
}

func NewActionService(
	notionClient *notion.Client,
	gmailClient *gmail.Client,
	natsPub *pktNats.Publisher,
	sysLogger logger.ILogger,
) IActionService {
	return &actionService{
		notionClient: notionClient,
		gmailClient:  gmailClient,
		natsPub:      natsPub,
		statusCache:  cache.New(statusCacheTTL, 10*time.Minute),
		logger:       sysLogger,
	}
}

// Execute runs one confirmed action plan item against its provider. This
// is the only place the system performs side effects on user accounts;
// everything upstream merely prepares.
func (s *actionService) Execute(ctx context.Context, userId string, req *dto.ExecuteActionRequest) (*dto.ExecuteActionResponse, error) {
	var result string
	var err error

	switch req.Kind {
	case dto.ActionKindNotion:
		result, err = s.executeNotion(ctx, req.Params)
	case dto.ActionKindGmail:
		result, err = s.executeGmail(ctx, req.Params)
	default:
		return nil, serverutils.NewApiError(fiber.StatusBadRequest, fmt.Sprintf("Unknown action kind %q.", req.Kind))
	}

	status := dto.ActionStatusDone
	if err != nil {
		status = dto.ActionStatusError
		result = err.Error()
		s.logger.Error("action", "Action execution failed", map[string]interface{}{
			"user_id": userId,
			"item_id": req.Id,
			"kind":    req.Kind,
			"error":   err.Error(),
		})
	} else {
		s.logger.Info("action", "Action executed", map[string]interface{}{
			"user_id": userId,
			"item_id": req.Id,
			"kind":    req.Kind,
		})
	}

	s.emitExecuted(userId, req.Id, req.Kind, status)

	return &dto.ExecuteActionResponse{
		Id:     req.Id,
		Status: status,
		Result: result,
	}, nil
}

func (s *actionService) executeNotion(ctx context.Context, params map[string]interface{}) (string, error) {
	title := stringParam(params, "title")
	content := stringParam(params, "content_md")
	if title == "" {
		title = "Note"
	}

	res, err := s.notionClient.CreatePage(ctx, title, content)
	if err != nil {
		return "", err
	}
	return res.Url, nil
}

func (s *actionService) executeGmail(ctx context.Context, params map[string]interface{}) (string, error) {
	to := stringSliceParam(params, "to")
	subject := stringParam(params, "subject")
	bodyText := stringParam(params, "body_text")
	bodyHtml := stringParam(params, "body_html")

	res, err := s.gmailClient.CreateDraft(ctx, to, subject, bodyText, bodyHtml)
	if err != nil {
		return "", err
	}
	return res.DraftUrl, nil
}

// ProviderStatus checks connectivity for one provider. Results are cached
// so status polling from clients does not hammer the provider APIs.
func (s *actionService) ProviderStatus(ctx context.Context, provider string) (*dto.ProviderStatusResponse, error) {
	if cached, found := s.statusCache.Get(provider); found {
		return cached.(*dto.ProviderStatusResponse), nil
	}

	var resp *dto.ProviderStatusResponse
	switch provider {
	case dto.ActionKindNotion:
		st := s.notionClient.CheckStatus(ctx)
		resp = &dto.ProviderStatusResponse{
			Provider:      provider,
			Connected:     st.Connected,
			WorkspaceName: st.WorkspaceName,
		}
	case dto.ActionKindGmail:
		st := s.gmailClient.CheckStatus(ctx)
		resp = &dto.ProviderStatusResponse{
			Provider:      provider,
			Connected:     st.Connected,
			WorkspaceName: st.EmailAddress,
		}
	default:
		return nil, serverutils.NewApiError(fiber.StatusBadRequest, fmt.Sprintf("Unknown provider %q.", provider))
	}

	s.statusCache.Set(provider, resp, cache.DefaultExpiration)
	return resp, nil
}

func (s *actionService) emitExecuted(userId, itemId, kind, status string) {
	if s.natsPub == nil {
		return
	}
	event := events.ActionExecuted(userId, itemId, kind, status)
	bound.Go(5*time.Second, func(err error) {
		s.logger.Warn("action", "Event publish failed", map[string]interface{}{"error": err.Error()})
	}, func(ctx context.Context) error {
		return s.natsPub.Publish(ctx, event)
	})
}

func stringParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceParam(params map[string]interface{}, key string) []string {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
