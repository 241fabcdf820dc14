package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// RoleChatUser may send messages and read conversation history.
const RoleChatUser = "chat_user"

// Identity is the caller behind an API key.
type Identity struct {
	ClientID string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	for _, candidate := range i.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses comma separated key:client:role|role entries.
// A key:client entry without roles is granted RoleChatUser.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		key, identity, err := parseKeyEntry(strings.TrimSpace(entry))
		if err != nil {
			return nil, err
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("duplicate static key for client %q", identity.ClientID)
		}
		validator.keys[key] = identity
	}
	return validator, nil
}

func parseKeyEntry(entry string) (string, Identity, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: expected key:client[:role|role]", entry)
	}
	key := strings.TrimSpace(parts[0])
	client := strings.TrimSpace(parts[1])
	if key == "" || client == "" {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: empty key/client", entry)
	}
	if len(parts) == 2 {
		return key, Identity{ClientID: client, Roles: []string{RoleChatUser}}, nil
	}

	roles := make([]string, 0)
	for _, role := range strings.Split(parts[2], "|") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
	}
	sort.Strings(roles)
	return key, Identity{ClientID: client, Roles: roles}, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
