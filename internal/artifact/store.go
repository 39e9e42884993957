package artifact

import (
	"errors"
	"sort"
	"sync"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Store 进程内的 Artifact 表，按会话 ID 索引，供预览服务读取
type Store struct {
	artifacts map[string]Artifact
	latest    string
	mu        sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		artifacts: make(map[string]Artifact),
	}
}

func (s *Store) Save(a Artifact) error {
	if a.Content == "" {
		return ErrEmptyArtifact
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts[a.SessionID] = a
	s.latest = a.SessionID
	return nil
}

func (s *Store) Get(sessionID string) (Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.artifacts[sessionID]
	if !exists {
		return Artifact{}, ErrArtifactNotFound
	}
	return a, nil
}

// Latest 最近一次保存的 Artifact
func (s *Store) Latest() (Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.artifacts[s.latest]
	if !exists {
		return Artifact{}, ErrArtifactNotFound
	}
	return a, nil
}

func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[sessionID]; !exists {
		return ErrArtifactNotFound
	}
	delete(s.artifacts, sessionID)
	if s.latest == sessionID {
		s.latest = ""
	}
	return nil
}

// List 按创建时间排序
func (s *Store) List() []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}
