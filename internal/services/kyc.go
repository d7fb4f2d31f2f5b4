package services

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/brikvest/apiserver/internal/ids"
	"github.com/brikvest/apiserver/internal/storage"
	"github.com/brikvest/apiserver/types"
)

type kycStore interface {
	Create(ctx context.Context, doc types.KYCDocument) (types.KYCDocument, error)
	Get(ctx context.Context, id int) (types.KYCDocument, error)
	ListByUser(ctx context.Context, userID int) ([]types.KYCDocument, error)
	ListPending(ctx context.Context) ([]types.KYCDocument, error)
	Review(ctx context.Context, id int, status, note string) (types.KYCDocument, error)
}

// KYCService handles identity document submission and review. Files go
// to object storage; only the object key is persisted.
type KYCService struct {
	docs     kycStore
	users    userAdminStore
	storage  *storage.Storage
	notifier *Notifier
	logger   *zap.Logger
}

func NewKYCService(docs kycStore, users userAdminStore, store *storage.Storage, notifier *Notifier, logger *zap.Logger) *KYCService {
	return &KYCService{docs: docs, users: users, storage: store, notifier: notifier, logger: logger}
}

// Submit uploads a document and records it as pending. The owning
// user's KYC status moves to pending as well.
func (s *KYCService) Submit(ctx context.Context, userID int, documentType string, r io.Reader, size int64, contentType string) (types.KYCDocument, error) {
	key := fmt.Sprintf("kyc/%d/%s", userID, ids.New())
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.KYCDocument{}, fmt.Errorf("upload kyc document: %w", err)
	}

	doc, err := s.docs.Create(ctx, types.KYCDocument{
		UserID:       userID,
		DocumentType: documentType,
		ObjectKey:    key,
		Status:       types.KYCStatusPending,
	})
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return types.KYCDocument{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.KYCDocument{}, err
	}
	if user.KYCStatus != types.KYCStatusApproved {
		user.KYCStatus = types.KYCStatusPending
		if _, err := s.users.Update(ctx, user); err != nil {
			return types.KYCDocument{}, err
		}
	}
	return doc, nil
}

func (s *KYCService) ListByUser(ctx context.Context, userID int) ([]types.KYCDocument, error) {
	return s.docs.ListByUser(ctx, userID)
}

func (s *KYCService) ListPending(ctx context.Context) ([]types.KYCDocument, error) {
	return s.docs.ListPending(ctx)
}

// Open streams the stored document for review. Callers check ownership
// or reviewer permission first.
func (s *KYCService) Open(ctx context.Context, id int) (types.KYCDocument, io.ReadCloser, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return types.KYCDocument{}, nil, err
	}
	rc, err := s.storage.Get(ctx, doc.ObjectKey)
	if err != nil {
		return types.KYCDocument{}, nil, err
	}
	return doc, rc, nil
}

// Review approves or rejects a pending document, syncs the user's KYC
// status, and notifies the user.
func (s *KYCService) Review(ctx context.Context, id int, approve bool, note string) (types.KYCDocument, error) {
	status := types.KYCStatusRejected
	if approve {
		status = types.KYCStatusApproved
	}
	doc, err := s.docs.Review(ctx, id, status, note)
	if err != nil {
		return types.KYCDocument{}, err
	}

	user, err := s.users.GetByID(ctx, doc.UserID)
	if err != nil {
		return types.KYCDocument{}, err
	}
	user.KYCStatus = status
	if _, err := s.users.Update(ctx, user); err != nil {
		return types.KYCDocument{}, err
	}
	s.notifier.SendKYCDecision(ctx, user.Email, user.FirstName, status, note)
	return doc, nil
}
