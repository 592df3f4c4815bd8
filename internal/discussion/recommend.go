package discussion

import (
	"context"
	"errors"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

// ToggleRecommendation переключает рекомендацию и возвращает итоговое состояние.
// Конфликт уникальности при вставке означает, что рекомендация уже стоит.
func (s *Service) ToggleRecommendation(ctx context.Context, p *domain.Principal, space domain.Space, itemID int64) (*domain.RecommendState, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	item, err := visibleItem(ctx, s.store, p, space, itemID)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.RemoveRecommendation(ctx, p.UserID, item.ID)
	if err != nil {
		return nil, err
	}
	recommended := false
	if !removed {
		err := s.store.AddRecommendation(ctx, p.UserID, item.ID)
		switch {
		case err == nil, errors.Is(err, storage.ErrDuplicate):
			recommended = true
		default:
			return nil, notFound(err, "item %d not found", item.ID)
		}
	}

	count, err := s.store.CountRecommendations(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return &domain.RecommendState{Recommended: recommended, RecommendCount: count}, nil
}

// IsRecommended читает состояние, всегда пересчитывая строки.
func (s *Service) IsRecommended(ctx context.Context, p *domain.Principal, space domain.Space, itemID int64) (*domain.RecommendState, error) {
	item, err := visibleItem(ctx, s.store, p, space, itemID)
	if err != nil {
		return nil, err
	}
	state := &domain.RecommendState{}
	if p != nil && p.UserID != "" {
		if state.Recommended, err = s.store.HasRecommendation(ctx, p.UserID, item.ID); err != nil {
			return nil, err
		}
	}
	if state.RecommendCount, err = s.store.CountRecommendations(ctx, item.ID); err != nil {
		return nil, err
	}
	return state, nil
}
