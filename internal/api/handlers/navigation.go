package handlers

import (
	"sync"

	"distance-request-service/internal/api/dto"
)

// navRecorder is the Navigator of one HTTP-driven session. Commands record their
// navigation here and the handler hands it back to the client as next_route.
type navRecorder struct {
	mu   sync.Mutex
	next dto.NavigationResponse
}

func (n *navRecorder) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next = dto.NavigationResponse{NextRoute: route}
}

func (n *navRecorder) GoBack(fallback string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next = dto.NavigationResponse{NextRoute: fallback, GoBack: true}
}

// take returns the recorded navigation and clears it.
func (n *navRecorder) take() dto.NavigationResponse {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.next
	n.next = dto.NavigationResponse{}
	return out
}
