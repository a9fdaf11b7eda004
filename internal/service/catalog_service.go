package service

import (
	"clinic/internal/domain"
	"clinic/internal/repository"
)

// Service errors. They alias the domain kinds so callers can match either.
var (
	ErrInvalidInput      = domain.ErrInvalidInput
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrNotFound          = repository.ErrNotFound
)

// CatalogReader is the listing side of the catalog.
type CatalogReader interface {
	Catalog
	Materials() []domain.Material
	OrderTypes() []domain.OrderType
}

// CatalogService exposes reference data to the presentation layer.
type CatalogService struct {
	catalog CatalogReader
}

func NewCatalogService(c CatalogReader) *CatalogService {
	return &CatalogService{catalog: c}
}

func (s *CatalogService) ListMaterials() []domain.Material {
	return s.catalog.Materials()
}

func (s *CatalogService) GetMaterial(id string) (*domain.Material, error) {
	m, err := s.catalog.MaterialByID(id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *CatalogService) ListOrderTypes() []domain.OrderType {
	return s.catalog.OrderTypes()
}

func (s *CatalogService) GetOrderType(id string) (*domain.OrderType, error) {
	t, err := s.catalog.OrderTypeByID(id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
