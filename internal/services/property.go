package services

import (
	"context"
	"fmt"
	"io"

	"github.com/brikvest/apiserver/internal/ids"
	"github.com/brikvest/apiserver/internal/storage"
	"github.com/brikvest/apiserver/types"
)

type propertyStore interface {
	List(ctx context.Context, offset, limit int) ([]types.Property, int, error)
	Get(ctx context.Context, id int) (types.Property, error)
	Create(ctx context.Context, p types.Property) (types.Property, error)
	Update(ctx context.Context, p types.Property) (types.Property, error)
	Delete(ctx context.Context, id int) error
}

// PropertyService manages investment listings and their images.
type PropertyService struct {
	properties propertyStore
	storage    *storage.Storage
}

func NewPropertyService(properties propertyStore, store *storage.Storage) *PropertyService {
	return &PropertyService{properties: properties, storage: store}
}

func (s *PropertyService) List(ctx context.Context, offset, limit int) ([]types.Property, int, error) {
	return s.properties.List(ctx, offset, limit)
}

func (s *PropertyService) Get(ctx context.Context, id int) (types.Property, error) {
	return s.properties.Get(ctx, id)
}

// Create inserts a new listing. New listings start as drafts with all
// units available.
func (s *PropertyService) Create(ctx context.Context, p types.Property) (types.Property, error) {
	if p.Status == "" {
		p.Status = types.PropertyStatusDraft
	}
	p.AvailableUnits = p.TotalUnits
	return s.properties.Create(ctx, p)
}

func (s *PropertyService) Update(ctx context.Context, p types.Property) (types.Property, error) {
	return s.properties.Update(ctx, p)
}

func (s *PropertyService) Delete(ctx context.Context, id int) error {
	return s.properties.Delete(ctx, id)
}

// AttachImage uploads a listing image to object storage and appends its
// key to the property.
func (s *PropertyService) AttachImage(ctx context.Context, propertyID int, r io.Reader, size int64, contentType string) (types.Property, error) {
	p, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return types.Property{}, err
	}

	key := fmt.Sprintf("properties/%d/%s", propertyID, ids.New())
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.Property{}, fmt.Errorf("upload property image: %w", err)
	}

	p.ImageKeys = append(p.ImageKeys, key)
	updated, err := s.properties.Update(ctx, p)
	if err != nil {
		// Best effort cleanup of the orphaned object.
		_ = s.storage.Delete(ctx, key)
		return types.Property{}, err
	}
	return updated, nil
}

// OpenImage streams a stored listing image.
func (s *PropertyService) OpenImage(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.storage.Get(ctx, key)
}
