package history

import (
	"context"
	"log/slog"

	"github.com/eazycard/eazycard/internal/account"
)

// Report is the fleet-wide reload history. Accounts whose records could not be
// decoded are listed in Corrupt and left out of Entries.
type Report struct {
	Entries []account.ReloadEntry
	Corrupt []*account.CorruptRecordError
}

// Service answers reload history queries against the record store.
type Service struct {
	repo   account.Repository
	logger *slog.Logger
}

func NewService(repo account.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ForClient returns one client's annotated history, newest first.
func (s *Service) ForClient(ctx context.Context, id string) ([]account.ReloadEntry, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	acc, err := account.Decode(rec)
	if err != nil {
		return nil, err
	}
	return SortDescendingByDate(Annotate(acc.ReloadHistory, acc.FirstName, acc.LastName)), nil
}

// All merges every client's history. A corrupt record never aborts the report.
func (s *Service) All(ctx context.Context) (Report, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return Report{}, err
	}
	accounts, corrupt := account.DecodeAll(records)
	for _, c := range corrupt {
		s.logger.Warn("skipping corrupt client record", "client_id", c.ClientID, "field", c.Field, "error", c.Err)
	}
	entries := MergeAll(accounts)
	if entries == nil {
		entries = []account.ReloadEntry{}
	}
	return Report{Entries: entries, Corrupt: corrupt}, nil
}
