package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/collexus/erp/backend/internal/domain"
)

// AdminObservers is the group every admin dashboard joins to receive student-count updates.
const AdminObservers = "admin-dashboard"

type Observer interface {
	ID() string
	Send(update domain.StudentCountUpdate) error
}

// Group is a named set of observers. Membership changes may race with publishes; an observer
// that joined before a publish started receives that publish.
type Group struct {
	name   string
	logger *slog.Logger

	mutex   sync.RWMutex
	members map[string]Observer

	// publishes are serialized so every member sees updates in publish order
	publishMutex sync.Mutex
}

func NewGroup(name string, logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{
		name:    name,
		logger:  logger,
		members: make(map[string]Observer),
	}
}

func (g *Group) Name() string {
	return g.name
}

// Join adds the observer. Joining twice is a no-op.
func (g *Group) Join(o Observer) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.members[o.ID()]; ok {
		return
	}
	g.members[o.ID()] = o
	g.logger.Info("observer joined", "group", g.name, "observer", o.ID(), "members", len(g.members))
}

// Leave removes the observer. Leaving a group one is not in is a no-op.
func (g *Group) Leave(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.members[id]; !ok {
		return
	}
	delete(g.members, id)
	g.logger.Info("observer left", "group", g.name, "observer", id, "members", len(g.members))
}

func (g *Group) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	_, ok := g.members[id]
	return ok
}

func (g *Group) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return len(g.members)
}

// Publish delivers the update once to every current member and returns the number of
// members that accepted it. Delivery failures are logged and otherwise ignored.
func (g *Group) Publish(update domain.StudentCountUpdate) int {
	g.publishMutex.Lock()
	defer g.publishMutex.Unlock()

	g.mutex.RLock()
	members := make([]Observer, 0, len(g.members))
	for _, o := range g.members {
		members = append(members, o)
	}
	g.mutex.RUnlock()

	delivered := 0
	for _, o := range members {
		if err := o.Send(update); err != nil {
			g.logger.Warn("failed to deliver update", "group", g.name, "observer", o.ID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Broadcast makes a Group usable as an in-process Broadcaster.
func (g *Group) Broadcast(_ context.Context, update domain.StudentCountUpdate) error {
	g.Publish(update)
	return nil
}
