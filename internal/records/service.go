package records

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/validation"
)

// Store is a document store with live queries.
type Store interface {
	docstore.Store
	WatchQuery(ctx context.Context, collection string, q docstore.Query) (*stream.Subscription[[]docstore.Document], error)
}

type Service struct {
	collection string
	store      Store
}

func NewService(collection string, store Store) *Service {
	return &Service{collection: collection, store: store}
}

func (s *Service) Collection() string {
	return s.collection
}

func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	doc, err := s.store.Get(ctx, s.collection, id)
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return nil, apperr.NotFound("Record not found.")
	}
	if err != nil {
		return nil, apperr.Internal("Error loading record.", err)
	}
	p, err := fromDocument(*doc)
	if err != nil {
		return nil, apperr.Internal("Error loading record.", err)
	}
	return &p, nil
}

// Save creates the profile when it has no id and updates it otherwise.
func (s *Service) Save(ctx context.Context, p Profile) (*Profile, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	fields, err := p.fields()
	if err != nil {
		return nil, apperr.Internal("Error saving record.", err)
	}

	if p.ID == "" {
		id, err := s.store.Add(ctx, s.collection, fields)
		if err != nil {
			return nil, apperr.Internal("Error saving record.", err)
		}
		p.ID = id
		return &p, nil
	}

	err = s.store.Update(ctx, s.collection, p.ID, fields)
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return nil, apperr.NotFound("Record not found.")
	}
	if err != nil {
		return nil, apperr.Internal("Error saving record.", err)
	}
	return &p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, s.collection, id)
	if errors.Is(err, docstore.ErrInvalidPath) {
		return apperr.NotFound("Record not found.")
	}
	if err != nil {
		return apperr.Internal("Error removing record.", err)
	}
	return nil
}

// List returns the profiles visible to a viewer with the given sectors,
// narrowed by a case-insensitive search over the listed columns. A viewer
// without sectors sees every profile.
func (s *Service) List(ctx context.Context, sectors []string, search string) ([]Profile, error) {
	docs, err := s.store.Query(ctx, s.collection, visibleTo(sectors))
	if err != nil {
		return nil, apperr.Internal("Error loading records.", err)
	}
	profiles, err := toProfiles(docs)
	if err != nil {
		return nil, apperr.Internal("Error loading records.", err)
	}
	return Search(profiles, search), nil
}

// Watch emits the visible profiles and again after every change. A stored
// document that cannot be decoded ends the stream.
func (s *Service) Watch(ctx context.Context, sectors []string) (*stream.Subscription[[]Profile], error) {
	docs, err := s.store.WatchQuery(ctx, s.collection, visibleTo(sectors))
	if err != nil {
		return nil, apperr.Internal("Error loading records.", err)
	}
	return stream.Start(ctx, func(ctx context.Context, emit func([]Profile) bool) {
		defer docs.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-docs.C:
				if !ok {
					return
				}
				profiles, err := toProfiles(batch)
				if err != nil {
					slog.Error("failed to decode records", "collection", s.collection, "error", err)
					return
				}
				if !emit(profiles) {
					return
				}
			}
		}
	}), nil
}

func visibleTo(sectors []string) docstore.Query {
	q := docstore.Query{OrderBy: "name"}
	if len(sectors) > 0 {
		q = q.Where("sector", docstore.OpArrayContainsAny, sectors)
	}
	return q
}

func toProfiles(docs []docstore.Document) ([]Profile, error) {
	profiles := make([]Profile, 0, len(docs))
	for _, doc := range docs {
		p, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Search keeps the profiles whose listed columns contain term, ignoring case.
func Search(profiles []Profile, term string) []Profile {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return profiles
	}
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		for _, col := range []string{p.Name, p.Surname, p.TaxID, p.Phone, p.Ethnicity} {
			if strings.Contains(strings.ToLower(col), term) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func validate(p Profile) error {
	details, err := validation.Fields(p)
	if err != nil {
		return err
	}
	if !validIncome(p.MonthlyIncome) {
		if details == nil {
			details = map[string]string{}
		}
		details["monthly_income"] = "must be a non-negative amount with at most 2 decimal places"
	}
	if len(details) > 0 {
		return apperr.ValidationFields("invalid input", details)
	}
	return nil
}
