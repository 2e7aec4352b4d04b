package chatbot

import (
	"context"
	"fmt"

	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
)

// StorageCreator records chat transactions in a service.Storage, resolving the
// category display name against the user's own categories first.
type StorageCreator struct {
	store service.Storage
}

// NewStorageCreator wraps store.
func NewStorageCreator(store service.Storage) *StorageCreator {
	return &StorageCreator{store: store}
}

// CreateChatTransaction implements TransactionCreator.
func (c *StorageCreator) CreateChatTransaction(ctx context.Context, userID string, req NewTransaction) (*model.Transaction, error) {
	uc, err := c.store.ResolveUserCategory(ctx, userID, req.Category)
	if err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		UserID:         userID,
		UserCategoryID: uc.ID,
		Type:           req.Type,
		Amount:         req.Amount,
		Date:           req.Date,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		CreatedBy:      req.CreatedBy,
	}
	if err := c.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record chat transaction: %w", err)
	}
	return txn, nil
}
