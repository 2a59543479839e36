package slackfeed

import (
	"context"
	"sync"

	"github.com/slack-go/slack"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

// UserLister is the part of the Slack API needed to build the identity cache.
type UserLister interface {
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
}

// IdentityCache maps workspace member ids to their names. It is loaded once
// and never refreshed on its own; call Reset to force a reload on the next Load.
type IdentityCache struct {
	mu     sync.RWMutex
	api    UserLister
	logger *zap.Logger
	users  map[string]models.UserIdentity
	loaded bool
}

func NewIdentityCache(api UserLister, logger *zap.Logger) *IdentityCache {
	return &IdentityCache{
		api:    api,
		logger: logger,
		users:  make(map[string]models.UserIdentity),
	}
}

// Load fetches the member list unless it was already loaded.
func (c *IdentityCache) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}

	members, err := c.api.GetUsersContext(ctx)
	if err != nil {
		c.logger.Error("Failed to get workspace users", zap.Error(err))
		return apperr.Upstream("list users", err)
	}

	for _, u := range members {
		c.users[u.ID] = models.UserIdentity{
			FullName:    u.RealName,
			DisplayName: u.Profile.DisplayName,
		}
	}
	c.loaded = true
	c.logger.Info("Loaded workspace users", zap.Int("count", len(c.users)))
	return nil
}

// Lookup returns the identity of id or models.UnknownUser.
func (c *IdentityCache) Lookup(id string) models.UserIdentity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if u, ok := c.users[id]; ok {
		return u
	}
	return models.UnknownUser
}

// Enrich attaches author names to m.
func (c *IdentityCache) Enrich(m models.Message) models.EnrichedMessage {
	u := c.Lookup(m.AuthorID)
	return models.EnrichedMessage{
		Message:           m,
		AuthorFullName:    u.FullName,
		AuthorDisplayName: u.DisplayName,
	}
}

func (c *IdentityCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.users = make(map[string]models.UserIdentity)
	c.loaded = false
}

func (c *IdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}
