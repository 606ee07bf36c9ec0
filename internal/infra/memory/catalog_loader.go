package memory

import (
	"context"

	"live-quiz-service/internal/domain"
)

// StaticCatalogLoader serves a catalog held in memory (the built-in sample, or tests).
type StaticCatalogLoader struct {
	catalog domain.Catalog
}

func NewStaticCatalogLoader(catalog domain.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalog: catalog}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context) (domain.Catalog, error) {
	return l.catalog.Normalize()
}
