package service

import (
	"context"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CreateOffer создаёт предложение бизнес-пользователя. Состав тарифов
// обязан содержать ровно по одному basic, standard и premium.
func (s *Service) CreateOffer(ctx context.Context, actorID int64, actorType model.UserType, title, description string, tiers []model.OfferTier) (*model.Offer, error) {
	if actorType != model.UserTypeBusiness {
		return nil, ErrPermissionDenied
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateTierSet(tiers); err != nil {
		return nil, err
	}

	return s.repo.CreateOffer(ctx, actorID, title, description, tiers)
}

func validateTierSet(tiers []model.OfferTier) error {
	if len(tiers) != 3 {
		return ErrInvalidTierSet
	}

	seen := make(map[model.TierType]bool, 3)
	for _, t := range tiers {
		if !t.Type.IsValid() || seen[t.Type] {
			return ErrInvalidTierSet
		}
		seen[t.Type] = true

		if t.PriceCents <= 0 || t.DeliveryDays <= 0 || t.Revisions < 0 {
			return ErrInvalidTierValues
		}
	}

	return nil
}

// GetOffer возвращает предложение с тарифами.
func (s *Service) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	return s.repo.GetOffer(ctx, id)
}

// GetTier возвращает один тариф предложения.
func (s *Service) GetTier(ctx context.Context, id int64) (*model.OfferTier, error) {
	return s.repo.GetTier(ctx, id)
}

// ClampOfferFilter приводит номер и размер страницы к допустимым значениям.
// Вызывающий код строит конверт пагинации по нормализованному фильтру,
// поэтому размер страницы в ответе совпадает с размером реальной выборки.
func ClampOfferFilter(filter repository.OfferFilter) repository.OfferFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	return filter
}

// ListOffers возвращает страницу предложений и общее число совпадений.
func (s *Service) ListOffers(ctx context.Context, filter repository.OfferFilter) ([]model.Offer, int64, error) {
	return s.repo.ListOffers(ctx, ClampOfferFilter(filter))
}

// UpdateOffer применяет частичное обновление предложения. Менять предложение
// может только создавший его бизнес-пользователь; состав тарифов при этом
// остаётся фиксированным.
func (s *Service) UpdateOffer(ctx context.Context, actorID, offerID int64, upd repository.OfferUpdate) (*model.Offer, error) {
	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.CreatorID != actorID {
		return nil, ErrPermissionDenied
	}

	for _, t := range upd.Tiers {
		if !t.Type.IsValid() {
			return nil, ErrInvalidTierSet
		}
		if t.PriceCents != nil && *t.PriceCents <= 0 {
			return nil, ErrInvalidTierValues
		}
		if t.DeliveryDays != nil && *t.DeliveryDays <= 0 {
			return nil, ErrInvalidTierValues
		}
		if t.Revisions != nil && *t.Revisions < 0 {
			return nil, ErrInvalidTierValues
		}
	}

	return s.repo.UpdateOffer(ctx, offerID, upd)
}

// DeleteOffer удаляет предложение вместе с тарифами. Удалять предложение
// может только его создатель.
func (s *Service) DeleteOffer(ctx context.Context, actorID, offerID int64) error {
	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.CreatorID != actorID {
		return ErrPermissionDenied
	}

	return s.repo.DeleteOffer(ctx, offerID)
}
