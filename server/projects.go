package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Project is an AI Lab project as returned by /api/projects.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type projectStore struct {
	lock    sync.RWMutex
	byOwner map[string][]Project
}

func newProjectStore() *projectStore {
	return &projectStore{byOwner: make(map[string][]Project)}
}

func (p *projectStore) create(ownerID, name, description string, now time.Time) Project {
	p.lock.Lock()
	defer p.lock.Unlock()

	project := Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
	}
	p.byOwner[ownerID] = append(p.byOwner[ownerID], project)
	return project
}

// list never returns nil so an empty result encodes as [].
func (p *projectStore) list(ownerID string) []Project {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return append([]Project{}, p.byOwner[ownerID]...)
}
