package service

import (
	"datastory/internal/catalog/model"
	"datastory/internal/catalog/repository"
)

type CatalogService struct {
	Repo  *repository.CatalogRepository
	Index *Index
}

func NewCatalogService(repo *repository.CatalogRepository) *CatalogService {
	return &CatalogService{Repo: repo, Index: NewIndex(repo)}
}

func (s *CatalogService) GetContents(category string) ([]model.Item, error) {
	return s.Repo.GetContents(category)
}

func (s *CatalogService) GetContent(id string) (*model.Item, error) {
	return s.Repo.GetContent(id)
}

// Search filters by category first and then ranks what is left.
func (s *CatalogService) Search(query, category string) ([]model.Item, error) {
	items, err := s.Repo.GetContents(category)
	if err != nil {
		return nil, err
	}
	return s.Index.Search(query, items), nil
}

func (s *CatalogService) Categories() []model.Category {
	return model.Categories
}

func (s *CatalogService) SaveItem(id string, req model.UpdateItemRequest) (*model.Item, error) {
	item, err := s.Repo.SaveItem(id, req)
	if err != nil {
		return nil, err
	}
	if req.BodyText != nil {
		s.Index.Forget(item.Body)
	}
	return item, nil
}
