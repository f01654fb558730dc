package service

import "context"

// TxRepositories exposes the repositories that can take part in a single
// unit of work.
type TxRepositories interface {
	LibraryItems() LibraryItemRepositoryInterface
	ReindexJobs() ReindexJobRepositoryInterface
	Users() UserRepositoryInterface
	APIKeys() APIKeyRepositoryInterface
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
