package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/utils"
)

// BankAccountRemoteId returns the remote id of a local bank account. The
// remote bank account id is the remote id of the linked GL account, so no
// translation happens. A nil id with a nil error means the account is not
// linked yet.
func (r *Resolver) BankAccountRemoteId(ctx context.Context, bankAccountId string) (*int64, error) {
	if bankAccountId == "" {
		return nil, nil
	}
	store := r.writer.Store()
	account, err := store.Get(ctx, models.TableBankAccounts, bankAccountId)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bank account %s: %w", bankAccountId, err)
	}
	glId := utils.AsString(account["gl_account_id"])
	if glId == "" {
		return nil, nil
	}
	gl, err := store.Get(ctx, models.TableGlAccounts, glId)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load gl account %s: %w", glId, err)
	}
	if id, ok := utils.ParseInt64(gl["external_gl_account_id"]); ok && id > 0 {
		return &id, nil
	}
	return nil, nil
}
