package postgresql

import (
	"context"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
)

type txRunner struct {
	db *database.DB
}

// RunTx implements record.TxRunner on top of a pgx transaction.
func (r *txRunner) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTransaction(ctx, r.db, fn)
}

func NewTxRunner(db *database.DB) record.TxRunner {
	return &txRunner{db: db}
}
