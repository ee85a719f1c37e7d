package service

import (
	"context"

	"moments/internal/cache"
	"moments/internal/models"
	"moments/internal/observability"
	"moments/internal/store"
	"moments/internal/validation"
)

type SearchService struct {
	core
}

func NewSearchService(deps Deps) *SearchService {
	return &SearchService{core: newCore(deps)}
}

// Search matches query case-insensitively against moment title, description
// and location and against user name and username. With SearchAll, moment
// hits come before user hits. A blank query matches nothing.
func (s *SearchService) Search(ctx context.Context, query string, filter models.SearchFilter) ([]models.SearchResult, error) {
	defer observability.TrackQuery("search")()

	filter, err := models.ParseSearchFilter(string(filter))
	if err != nil {
		return nil, err
	}

	needle := validation.NormalizeQuery(query)
	if needle == "" {
		return []models.SearchResult{}, nil
	}

	snap := s.snapshot()
	if s.cache == nil {
		return searchSnapshot(snap, needle, filter), nil
	}

	var results []models.SearchResult
	key := cache.SearchKey(snap.Epoch(), snap.Version(), string(filter), needle)
	err = s.cache.Aside(ctx, key, &results, s.ttl(cache.SearchTTL), func() error {
		results = searchSnapshot(snap, needle, filter)
		return nil
	})
	if err != nil || results == nil {
		return searchSnapshot(snap, needle, filter), nil
	}
	return results, nil
}

func searchSnapshot(snap *store.Snapshot, needle string, filter models.SearchFilter) []models.SearchResult {
	results := make([]models.SearchResult, 0)

	if filter == models.SearchAll || filter == models.SearchMoments {
		for _, m := range snap.Moments() {
			if !validation.ContainsFold(m.Title, needle) &&
				!validation.ContainsFold(m.Description, needle) &&
				!validation.ContainsFold(m.Location, needle) {
				continue
			}
			date := m.Date
			hit := models.SearchResult{
				Type:        models.SearchResultMoment,
				MomentID:    m.ID,
				MomentTitle: m.Title,
				MomentTime:  &date,
				UserID:      m.HostID,
			}
			if host, ok := snap.User(m.HostID); ok {
				hit.Name = host.Name
				hit.Username = host.Username
				hit.ProfilePictureURL = host.ProfilePictureURL
			}
			results = append(results, hit)
		}
	}

	if filter == models.SearchAll || filter == models.SearchUsers {
		for _, u := range snap.Users() {
			if !validation.ContainsFold(u.Name, needle) && !validation.ContainsFold(u.Username, needle) {
				continue
			}
			results = append(results, models.SearchResult{
				Type:              models.SearchResultUser,
				UserID:            u.ID,
				Name:              u.Name,
				Username:          u.Username,
				ProfilePictureURL: u.ProfilePictureURL,
			})
		}
	}

	return results
}
