package service

import "context"

// inlineTx runs the unit of work directly against the given repositories and
// counts how often a transaction was opened.
type inlineTx struct {
	items LibraryItemRepositoryInterface
	jobs  ReindexJobRepositoryInterface
	users UserRepositoryInterface
	keys  APIKeyRepositoryInterface
	runs  int
}

func (x *inlineTx) LibraryItems() LibraryItemRepositoryInterface { return x.items }

func (x *inlineTx) ReindexJobs() ReindexJobRepositoryInterface { return x.jobs }

func (x *inlineTx) Users() UserRepositoryInterface { return x.users }

func (x *inlineTx) APIKeys() APIKeyRepositoryInterface { return x.keys }

func (x *inlineTx) WithTx(_ context.Context, fn func(repos TxRepositories) error) error {
	x.runs++
	return fn(x)
}
