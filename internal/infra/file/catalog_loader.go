package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"live-quiz-service/internal/domain"
)

// CatalogLoader reads the catalog from a YAML file:
//
//	sessions:
//	  - id: 1
//	    name: General Knowledge
//	    questions:
//	      - id: q1
//	        prompt: What is the capital of France?
//	        options: [London, Berlin, Paris, Madrid]
//	        correct_index: 2
//	        time_limit: 15
type CatalogLoader struct {
	path string
}

func NewCatalogLoader(path string) *CatalogLoader {
	return &CatalogLoader{path: path}
}

func (l *CatalogLoader) LoadCatalog(_ context.Context) (domain.Catalog, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var catalog domain.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog %s: %w", l.path, err)
	}
	return catalog.Normalize()
}
