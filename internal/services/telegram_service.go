package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"channelgate/internal/caching"
	"channelgate/internal/common"
	"channelgate/internal/models"
)

// TelegramService is the messaging platform client: direct messages, invite
// links, membership revocation and the getUpdates long-poll.
type TelegramService interface {
	// BotUsername returns the bot's username, resolving it on first use.
	// Operations that need it fail with ErrExternalUnavailable until the
	// platform has answered at least once.
	BotUsername(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendContactPrompt(ctx context.Context, chatID int64, text string) error
	// CreateInviteLink requests a single-use link valid for the given window.
	CreateInviteLink(ctx context.Context, validity time.Duration) (string, error)
	// RevokeChatMember kicks a member: ban then immediate unban, so the
	// person can rejoin later on renewal.
	RevokeChatMember(ctx context.Context, memberID string) error
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]models.Update, error)
}

type telegramService struct {
	baseURL   string
	channelID string
	cache     caching.CacheService
	http      *http.Client

	mu       sync.RWMutex
	username string
}

const botUsernameCacheKey = "bot:username"

// NewTelegramService creates a Bot API client. baseURL is overridable for
// tests; pass "" for the production endpoint.
func NewTelegramService(token, channelID, baseURL string, cache caching.CacheService) TelegramService {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &telegramService{
		baseURL:   fmt.Sprintf("%s/bot%s", baseURL, token),
		channelID: channelID,
		cache:     cache,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (s *telegramService) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w: %v", method, common.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: %w: decode response: %v", method, common.ErrExternalUnavailable, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram %s: %w: %s", method, common.ErrExternalUnavailable, envelope.Description)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("telegram %s: %w: decode result: %v", method, common.ErrExternalUnavailable, err)
		}
	}
	return nil
}

func (s *telegramService) BotUsername(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.username != "" {
		defer s.mu.RUnlock()
		return s.username, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.username != "" {
		return s.username, nil
	}

	if cached, err := s.cache.GetString(ctx, botUsernameCacheKey); err == nil && cached != "" {
		s.username = cached
		return s.username, nil
	}

	var me models.TelegramUser
	if err := s.call(ctx, "getMe", map[string]interface{}{}, &me); err != nil {
		return "", fmt.Errorf("resolve bot identity: %w", err)
	}
	if me.Username == "" {
		return "", fmt.Errorf("resolve bot identity: %w: empty username", common.ErrExternalUnavailable)
	}

	s.username = me.Username
	// Best effort; the in-memory copy is authoritative for this process.
	_ = s.cache.SetString(ctx, botUsernameCacheKey, me.Username, 24*time.Hour)
	return s.username, nil
}

func (s *telegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
		"reply_markup": map[string]interface{}{
			"remove_keyboard": true,
		},
	}
	return s.call(ctx, "sendMessage", payload, nil)
}

func (s *telegramService) SendContactPrompt(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
		"reply_markup": map[string]interface{}{
			"keyboard": [][]map[string]interface{}{
				{{"text": "📱 Verify Phone Number", "request_contact": true}},
			},
			"one_time_keyboard": true,
			"resize_keyboard":   true,
		},
	}
	return s.call(ctx, "sendMessage", payload, nil)
}

func (s *telegramService) CreateInviteLink(ctx context.Context, validity time.Duration) (string, error) {
	payload := map[string]interface{}{
		"chat_id":      s.channelID,
		"member_limit": 1,
		"expire_date":  time.Now().Add(validity).Unix(),
	}

	var link models.ChatInviteLink
	if err := s.call(ctx, "createChatInviteLink", payload, &link); err != nil {
		return "", err
	}
	if link.InviteLink == "" {
		return "", fmt.Errorf("telegram createChatInviteLink: %w: empty link", common.ErrExternalUnavailable)
	}
	return link.InviteLink, nil
}

func (s *telegramService) RevokeChatMember(ctx context.Context, memberID string) error {
	userID, err := strconv.ParseInt(memberID, 10, 64)
	if err != nil {
		return fmt.Errorf("revoke member %q: %w", memberID, common.ErrMalformed)
	}

	ban := map[string]interface{}{
		"chat_id": s.channelID,
		"user_id": userID,
	}
	if err := s.call(ctx, "banChatMember", ban, nil); err != nil {
		return err
	}

	unban := map[string]interface{}{
		"chat_id":        s.channelID,
		"user_id":        userID,
		"only_if_banned": true,
	}
	return s.call(ctx, "unbanChatMember", unban, nil)
}

func (s *telegramService) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]models.Update, error) {
	payload := map[string]interface{}{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message", "chat_member"},
	}

	var updates []models.Update
	if err := s.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
