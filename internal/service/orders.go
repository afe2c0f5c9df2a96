package service

import (
	"context"
	"errors"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
)

var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusInProgress, model.OrderStatusCancelled},
	model.OrderStatusInProgress: {model.OrderStatusCompleted, model.OrderStatusCancelled},
}

func transitionAllowed(from, to model.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateOrder создаёт заказ клиента на выбранный тариф предложения.
func (s *Service) CreateOrder(ctx context.Context, actorID int64, actorType model.UserType, tierID int64) (*model.Order, error) {
	if actorType != model.UserTypeCustomer {
		return nil, ErrPermissionDenied
	}

	return s.repo.CreateOrder(ctx, actorID, tierID)
}

// ListOrders возвращает заказы, в которых пользователь является
// клиентом или исполнителем.
func (s *Service) ListOrders(ctx context.Context, actorID int64) ([]model.Order, error) {
	return s.repo.ListOrdersByParticipant(ctx, actorID)
}

// UpdateOrderStatus переводит заказ в новый статус.
// Продвигать заказ (in_progress, completed) может только исполнитель;
// отменять ожидающий заказ может любая из сторон, заказ в работе — только
// исполнитель. Любой переход вне графа статусов отклоняется.
func (s *Service) UpdateOrderStatus(ctx context.Context, actorID int64, orderID int64, newStatus model.OrderStatus) (*model.Order, error) {
	if !newStatus.IsValid() {
		return nil, ErrInvalidTransition
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actorID != order.BusinessID && actorID != order.CustomerID {
		return nil, ErrPermissionDenied
	}

	if !transitionAllowed(order.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	cancellingPending := order.Status == model.OrderStatusPending && newStatus == model.OrderStatusCancelled
	if !cancellingPending && actorID != order.BusinessID {
		return nil, ErrPermissionDenied
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, orderID, order.Status, newStatus)
	if err != nil {
		// Заказ существует, но исходный статус уже изменён параллельным запросом.
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	return updated, nil
}

// CountOrders возвращает число заказов бизнес-пользователя, при
// completedOnly — только завершённых.
func (s *Service) CountOrders(ctx context.Context, businessUserID int64, completedOnly bool) (int64, error) {
	user, err := s.repo.GetUserByID(ctx, businessUserID)
	if err != nil {
		return 0, err
	}
	if user.Type != model.UserTypeBusiness {
		return 0, repository.ErrUserNotFound
	}

	var status *model.OrderStatus
	if completedOnly {
		completed := model.OrderStatusCompleted
		status = &completed
	}

	return s.repo.CountOrdersByBusiness(ctx, businessUserID, status)
}
