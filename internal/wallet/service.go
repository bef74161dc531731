// Package wallet implements the member-facing wallet record operations.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"wallet-roster/internal/directory"
	"wallet-roster/internal/domain"
	"wallet-roster/internal/observability"
	"wallet-roster/internal/roles"
	"wallet-roster/internal/storage"
)

// ErrInvalidAddress indicates the submitted wallet address is not a
// valid EVM address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Options configures a Service.
type Options struct {
	Store     storage.WalletStore
	Directory directory.Directory
	Roles     *roles.PriorityList
	Metrics   *observability.Metrics
	Logger    *log.Logger
}

// Service handles wallet submissions and lookups.
type Service struct {
	store     storage.WalletStore
	directory directory.Directory
	roles     *roles.PriorityList
	metrics   *observability.Metrics
	logger    *log.Logger
}

// NewService creates a wallet service.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if opts.Roles == nil {
		return nil, fmt.Errorf("priority list is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		store:     opts.Store,
		directory: opts.Directory,
		roles:     opts.Roles,
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

// SubmitOrUpdate validates the address, resolves the member's current
// priority role and writes the record. A directory failure downgrades
// the role to empty but never fails the submission: the next refresh
// pass repairs it.
func (s *Service) SubmitOrUpdate(ctx context.Context, memberID, displayName, walletAddress string) (domain.UpsertAction, error) {
	if memberID == "" {
		return "", storage.ErrInvalidInput
	}

	walletAddress = strings.TrimSpace(walletAddress)
	if !domain.ValidWalletAddress(walletAddress) {
		if s.metrics != nil {
			s.metrics.InvalidAddresses.Inc()
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, walletAddress)
	}

	label := ""
	member, err := s.directory.Member(ctx, memberID)
	switch {
	case errors.Is(err, directory.ErrMemberNotFound):
		// Submission from someone the directory no longer knows; store
		// it with an empty role.
	case err != nil:
		s.logger.Printf("wallet: role lookup for %s failed, storing empty role: %v", memberID, err)
	default:
		label = s.roles.Resolve(member.Roles)
		if displayName == "" {
			displayName = member.DisplayName
		}
	}

	rec := &domain.WalletRecord{
		MemberID:      memberID,
		DisplayName:   displayName,
		WalletAddress: walletAddress,
		RoleLabel:     label,
	}

	action, err := s.store.Upsert(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("store wallet record: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSubmission(string(action))
	}
	s.logger.Printf("wallet: %s record for member %s (role %q)", action, memberID, label)

	return action, nil
}

// Lookup returns the stored record for a member.
// Returns storage.ErrNotFound when no record exists.
func (s *Service) Lookup(ctx context.Context, memberID string) (*domain.WalletRecord, error) {
	return s.store.GetByMemberID(ctx, memberID)
}
