package service

import (
	"context"

	"frontend/internal/model"
)

const (
	// HomeBody is the greeting served on the root path.
	HomeBody = "<h1>Hello from EC2 via CodeDeploy!</h1><p>Version 1</p>"
	// ContentTypeHTML is the media type of every page this service renders.
	ContentTypeHTML = "text/html; charset=utf-8"
)

// PageService defines the use cases for rendering pages.
type PageService interface {
	// Home returns the greeting page. It only fails when ctx is already done.
	Home(ctx context.Context) (*model.Page, error)
}

// pageService is a concrete implementation of PageService.
type pageService struct {
	home model.Page
}

// NewPageService constructs a new PageService.
func NewPageService() PageService {
	return &pageService{
		home: model.Page{ContentType: ContentTypeHTML, Body: HomeBody},
	}
}

func (s *pageService) Home(ctx context.Context) (*model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := s.home
	return &p, nil
}
