package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Router holds the registered clients and routes requests by role
// ("planner", "executor"). Roles not explicitly bound fall back to the
// default client, then to the role's fallback chain.
type Router struct {
	clients   map[string]Client
	bindings  map[string]string   // role -> client ID
	fallbacks map[string][]string // role -> fallback client chain
	defaults  string              // default client ID
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		clients:   make(map[string]Client),
		bindings:  make(map[string]string),
		fallbacks: make(map[string][]string),
		logger:    logger,
	}
}

// Register adds a client. The first registered client becomes the default.
func (r *Router) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID()] = c
	if r.defaults == "" {
		r.defaults = c.ID()
	}
	r.logger.Info("registered provider", zap.String("id", c.ID()), zap.String("name", c.Name()))
}

// SetDefault sets the default client.
func (r *Router) SetDefault(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = clientID
}

// Bind associates a role with a specific client.
func (r *Router) Bind(role, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[role] = clientID
}

// SetFallbacks configures fallback clients for a role.
func (r *Router) SetFallbacks(role string, clientIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[role] = clientIDs
}

// Route sends a chat request through the client bound to the role, trying
// fallbacks in order when the primary fails.
func (r *Router) Route(ctx context.Context, role string, req *ChatRequest) (*ChatResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	primary := r.getClient(role)
	if primary == nil {
		return nil, fmt.Errorf("no provider available for role %s", role)
	}

	resp, err := primary.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}
	r.logger.Warn("primary provider failed, trying fallbacks",
		zap.String("role", role), zap.Error(err))

	for _, fbID := range r.fallbacks[role] {
		fb, ok := r.clients[fbID]
		if !ok {
			continue
		}
		resp, err = fb.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("fallback provider failed", zap.String("provider", fbID), zap.Error(err))
	}

	return nil, fmt.Errorf("all providers failed for role %s: %w", role, err)
}

func (r *Router) getClient(role string) Client {
	if cid, ok := r.bindings[role]; ok {
		if c, ok := r.clients[cid]; ok {
			return c
		}
	}
	if c, ok := r.clients[r.defaults]; ok {
		return c
	}
	return nil
}

// GetClient returns a client by ID.
func (r *Router) GetClient(id string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}
