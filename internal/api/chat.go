package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/truenorth/chartsql/internal/auth"
	"github.com/truenorth/chartsql/internal/chat"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type chatMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type conversationListResponse struct {
	Items []chat.Conversation `json:"items"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func handleChatMessage(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat pipeline is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request chatMessageRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat message body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}

	final := deps.Chat.ProcessMessage(r.Context(), strings.TrimSpace(request.ConversationID), request.Message)
	writeJSON(w, http.StatusOK, final)
}

func handleListConversations(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "conversation history is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	page, err := queryInt(r, "page", 0)
	if err != nil || page < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PAGINATION", "page must be a non-negative integer", false, nil)
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit <= 0 || limit > maxHistoryLimit {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PAGINATION", fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit), false, nil)
		return
	}

	items, err := deps.History.ListTitles(r.Context(), page, limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_LIST_FAILED", err.Error(), true, nil)
		return
	}
	if items == nil {
		items = []chat.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversationListResponse{Items: items, Page: page, Limit: limit})
}

func handleConversationTurns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "conversation history is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChatUser); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	conversationID := strings.TrimSpace(r.PathValue("id"))
	turns, err := deps.History.Read(r.Context(), conversationID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_READ_FAILED", err.Error(), true, map[string]any{"conversation_id": conversationID})
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// requireRole passes requests without an identity; auth is optional by profile.
func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
