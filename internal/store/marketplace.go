// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/models"
)

const (
	userKeyPrefix      = "user:"
	projectKeyPrefix   = "project:"
	projectOwnerPrefix = "project_owner:"
	proposalKeyPrefix  = "proposal:"
	proposalProjPrefix = "proposal_proj:"
	proposalFreePrefix = "proposal_free:"
	contractKeyPrefix  = "contract:"
	walletTxKeyPrefix  = "wallet_tx:"
	walletTxUserPrefix = "wallet_tx_user:"
)

// MarketplaceStore persists users, projects, proposals, contracts, and
// wallet transaction records.
type MarketplaceStore struct {
	store *Store
}

// NewMarketplaceStore returns a MarketplaceStore backed by the shared
// database.
func NewMarketplaceStore(s *Store) *MarketplaceStore {
	return &MarketplaceStore{store: s}
}

// ---- Users ----

// PutUser upserts a user record.
func (s *MarketplaceStore) PutUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = NewID()
	}
	err := s.store.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(userKeyPrefix+u.ID), u)
	})
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// GetUser returns one user by id.
func (s *MarketplaceStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.view(ctx, userKeyPrefix+id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all known users. The NewProject broadcast recipient set
// comes from here.
func (s *MarketplaceStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	err := s.scan(ctx, userKeyPrefix, func(val []byte) error {
		var u models.User
		if err := json.Unmarshal(val, &u); err != nil {
			return err
		}
		out = append(out, &u)
		return nil
	})
	return out, err
}

// ---- Projects ----

// InsertProject assigns id and timestamp, sets status Open, and persists.
func (s *MarketplaceStore) InsertProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.ID = NewID()
	p.CreatedAt = time.Now().UTC()
	p.Status = models.ProjectOpen

	err := s.store.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, []byte(projectKeyPrefix+p.ID), p); err != nil {
			return err
		}
		return txn.Set([]byte(projectOwnerPrefix+p.OwnerID+":"+p.ID), []byte(p.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return p, nil
}

// GetProject returns one project by id.
func (s *MarketplaceStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := s.view(ctx, projectKeyPrefix+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProjectStatus transitions a project's lifecycle state.
func (s *MarketplaceStore) UpdateProjectStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.db.Update(func(txn *badger.Txn) error {
		var p models.Project
		if err := getJSON(txn, []byte(projectKeyPrefix+id), &p); err != nil {
			return err
		}
		p.Status = status
		return setJSON(txn, []byte(projectKeyPrefix+id), &p)
	})
}

// ListProjects returns projects, optionally filtered by status. Ascending by
// creation time.
func (s *MarketplaceStore) ListProjects(ctx context.Context, status models.ProjectStatus) ([]*models.Project, error) {
	var out []*models.Project
	err := s.scan(ctx, projectKeyPrefix, func(val []byte) error {
		var p models.Project
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		if status == "" || p.Status == status {
			out = append(out, &p)
		}
		return nil
	})
	return out, err
}

// ---- Proposals ----

// InsertProposal assigns id and timestamp, sets status Pending, and persists.
func (s *MarketplaceStore) InsertProposal(ctx context.Context, p *models.Proposal) (*models.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.ID = NewID()
	p.CreatedAt = time.Now().UTC()
	p.Status = models.ProposalPending

	err := s.store.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, []byte(proposalKeyPrefix+p.ID), p); err != nil {
			return err
		}
		if err := txn.Set([]byte(proposalProjPrefix+p.ProjectID+":"+p.ID), []byte(p.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(proposalFreePrefix+p.FreelancerID+":"+p.ID), []byte(p.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert proposal: %w", err)
	}
	return p, nil
}

// GetProposal returns one proposal by id.
func (s *MarketplaceStore) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	var p models.Proposal
	if err := s.view(ctx, proposalKeyPrefix+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProposal persists a mutated proposal document.
func (s *MarketplaceStore) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.store.db.Update(func(txn *badger.Txn) error {
		var existing models.Proposal
		if err := getJSON(txn, []byte(proposalKeyPrefix+p.ID), &existing); err != nil {
			return err
		}
		return setJSON(txn, []byte(proposalKeyPrefix+p.ID), p)
	})
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	return nil
}

// ListProposalsByProject returns a project's proposals ascending by creation
// time.
func (s *MarketplaceStore) ListProposalsByProject(ctx context.Context, projectID string) ([]*models.Proposal, error) {
	return s.listProposalsByIndex(ctx, proposalProjPrefix+projectID+":")
}

// ListProposalsByFreelancer returns a freelancer's proposals ascending by
// creation time.
func (s *MarketplaceStore) ListProposalsByFreelancer(ctx context.Context, freelancerID string) ([]*models.Proposal, error) {
	return s.listProposalsByIndex(ctx, proposalFreePrefix+freelancerID+":")
}

func (s *MarketplaceStore) listProposalsByIndex(ctx context.Context, prefix string) ([]*models.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*models.Proposal
	err := s.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var id string
			err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			var prop models.Proposal
			if err := getJSON(txn, []byte(proposalKeyPrefix+id), &prop); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, &prop)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return out, nil
}

// ---- Contracts ----

// InsertContract assigns id and timestamp, sets status Active, and persists.
func (s *MarketplaceStore) InsertContract(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.ID = NewID()
	c.CreatedAt = time.Now().UTC()
	c.Status = models.ContractActive

	err := s.store.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(contractKeyPrefix+c.ID), c)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert contract: %w", err)
	}
	return c, nil
}

// GetContract returns one contract by id.
func (s *MarketplaceStore) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	var c models.Contract
	if err := s.view(ctx, contractKeyPrefix+id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContract persists a mutated contract document.
func (s *MarketplaceStore) UpdateContract(ctx context.Context, c *models.Contract) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.store.db.Update(func(txn *badger.Txn) error {
		var existing models.Contract
		if err := getJSON(txn, []byte(contractKeyPrefix+c.ID), &existing); err != nil {
			return err
		}
		return setJSON(txn, []byte(contractKeyPrefix+c.ID), c)
	})
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	return nil
}

// ---- Wallet transactions ----

// InsertWalletTransaction records a completed external wallet mutation.
func (s *MarketplaceStore) InsertWalletTransaction(ctx context.Context, tx *models.WalletTransaction) (*models.WalletTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx.ID = NewID()
	tx.CreatedAt = time.Now().UTC()

	err := s.store.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, []byte(walletTxKeyPrefix+tx.ID), tx); err != nil {
			return err
		}
		return txn.Set([]byte(walletTxUserPrefix+tx.UserID+":"+tx.ID), []byte(tx.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return tx, nil
}

// ---- helpers ----

func (s *MarketplaceStore) view(ctx context.Context, key string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(key), out)
	})
}

func (s *MarketplaceStore) scan(ctx context.Context, prefix string, fn func(val []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", prefix, err)
	}
	return nil
}
