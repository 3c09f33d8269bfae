package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
)

const (
	minSearchQuery     = 2
	defaultSearchLimit = 10
)

var (
	ErrUnknownDirectory = errors.New("unknown directory")
	ErrQueryTooShort    = errors.New("search query too short")
)

// Directory looks up patients, doctors and physiotherapists.
type Directory interface {
	Search(ctx context.Context, kind model.DirectoryKind, query string, limit int) ([]*model.DirectoryEntry, error)
	GetByID(ctx context.Context, kind model.DirectoryKind, id int64) (*model.DirectoryEntry, error)
}

type DirectoryService struct {
	directory Directory
}

func NewDirectoryService(directory Directory) *DirectoryService {
	return &DirectoryService{directory: directory}
}

// Search finds entries whose name, phone or email contains query.
func (s *DirectoryService) Search(ctx context.Context, kind model.DirectoryKind, query string) ([]*model.DirectoryEntry, error) {
	if !kind.IsValid() {
		return nil, ErrUnknownDirectory
	}

	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchQuery {
		return nil, ErrQueryTooShort
	}

	entries, err := s.directory.Search(ctx, kind, query, defaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	return entries, nil
}

// Get returns a single entry or nil if it does not exist.
func (s *DirectoryService) Get(ctx context.Context, kind model.DirectoryKind, id int64) (*model.DirectoryEntry, error) {
	if !kind.IsValid() {
		return nil, ErrUnknownDirectory
	}

	entry, err := s.directory.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return entry, nil
}
