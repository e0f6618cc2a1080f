package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("distance request session not found")

// Sessions tracks the open distance request forms by session id.
type Sessions struct {
	mu sync.Mutex
	m  map[string]*DistanceRequest
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]*DistanceRequest)}
}

func (s *Sessions) Open(ctx context.Context, cfg DistanceRequestConfig) (string, *DistanceRequest, error) {
	d, err := OpenDistanceRequest(ctx, cfg)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.m[id] = d
	s.mu.Unlock()

	return id, d, nil
}

func (s *Sessions) Get(id string) (*DistanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.m[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return d, nil
}

// Close removes the session and closes it.
func (s *Sessions) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	d, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return d.Close(ctx)
}

// CloseAll closes every open session and waits for their commands to settle.
func (s *Sessions) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	open := s.m
	s.m = make(map[string]*DistanceRequest)
	s.mu.Unlock()

	var errs []error
	for _, d := range open {
		errs = append(errs, d.Close(ctx))
	}
	for _, d := range open {
		d.Wait()
	}
	return errors.Join(errs...)
}
