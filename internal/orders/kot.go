package orders

import (
	"context"
	"fmt"
	"strings"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/database"
	"restoran-pos/internal/events"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
)

// KitchenStatuses are the order statuses the kitchen queue shows.
var KitchenStatuses = []models.OrderStatus{models.OrderPending, models.OrderConfirmed, models.OrderPreparing}

func isKitchenStatus(s models.OrderStatus) bool {
	for _, k := range KitchenStatuses {
		if k == s {
			return true
		}
	}
	return false
}

type PrintResult struct {
	Order   *models.Order
	Reprint bool
}

// PrintKOT prints the kitchen ticket. The first print allocates the KOT number and confirms
// a pending order; later prints are recorded as reprints.
func (s *Service) PrintKOT(ctx context.Context, actor Actor, id uint, reason string) (*PrintResult, error) {
	var (
		order   *models.Order
		prev    models.OrderStatus
		reprint bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if IsTerminal(o.Status) {
			return apperr.Validationf("cannot print the kitchen ticket of a %s order", o.Status)
		}

		now := s.now()
		prev = o.Status
		by := actor.UserID

		if o.KOT.Number != nil {
			reprint = true
			r := models.KOTReprint{
				OrderID:     o.ID,
				PrintedAt:   now,
				Reason:      strings.TrimSpace(reason),
				PrintedByID: &by,
			}
			if r.Reason == "" {
				r.Reason = "reprint"
			}
			if err := tx.AddReprint(ctx, &r); err != nil {
				return err
			}
			o.KOTReprints = append(o.KOTReprints, r)
			o.UpdatedAt = now
			if err := tx.SaveOrder(ctx, o); err != nil {
				return err
			}
			order = o
			return nil
		}

		seq, err := tx.NextSequence(ctx, database.ScopeKOT, now)
		if err != nil {
			return err
		}
		number := database.FormatNumber("KOT", now, seq)
		o.KOT.Number = &number
		o.KOT.PrintedAt = &now
		if o.Status == models.OrderPending {
			setStatus(o, models.OrderConfirmed, now)
		}
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "print kitchen ticket")
	}

	metrics.RecordKOTPrint(reprint)
	payload := events.KOTPrintedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		KOTNumber:   *order.KOT.Number,
		Table:       order.TableID,
		Items:       events.Items(order.Items),
		IsReprint:   reprint,
		PrintedBy:   actor.UserID,
		PrintedAt:   *order.KOT.PrintedAt,
	}
	if reprint {
		last := order.KOTReprints[len(order.KOTReprints)-1]
		payload.Reason = last.Reason
		payload.PrintedAt = last.PrintedAt
	}
	evs := []events.Event{events.New(events.KOTPrinted, payload)}
	if order.Status != prev {
		metrics.RecordTransition(string(prev), string(order.Status))
		evs = append(evs, statusEvent(order, prev, actor))
	}
	events.Emit(ctx, s.events, evs...)

	if !reprint {
		s.audit(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("KOT %s printed for order %s", *order.KOT.Number, order.OrderNumber),
		})
	}
	return &PrintResult{Order: order, Reprint: reprint}, nil
}

// KOTQueue lists orders waiting on the kitchen, oldest first. status narrows the queue to one
// of KitchenStatuses.
func (s *Service) KOTQueue(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	statuses := KitchenStatuses
	if status != "" {
		if !isKitchenStatus(status) {
			return nil, apperr.Validationf("status must be one of pending, confirmed, preparing")
		}
		statuses = []models.OrderStatus{status}
	}
	out, _, err := s.store.ListOrders(ctx, ListFilter{Statuses: statuses, OldestFirst: true})
	if err != nil {
		return nil, apperr.Wrap(err, "load kitchen queue")
	}
	return out, nil
}

// UpdateKOTItem is the kitchen's item update. The order becomes ready once every item is ready.
func (s *Service) UpdateKOTItem(ctx context.Context, actor Actor, id uint, index int, to models.ItemStatus) (*models.Order, error) {
	return s.UpdateItemStatus(ctx, actor, id, index, to, RollUpReady)
}

// CompleteKOT marks every item ready and the order ready in one step.
func (s *Service) CompleteKOT(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	var (
		order *models.Order
		prev  models.OrderStatus
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		prev = o.Status
		if err := completeKitchen(o, now); err != nil {
			return err
		}
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "complete kitchen ticket")
	}

	metrics.RecordTransition(string(prev), string(order.Status))
	ready := readyPayload(order)
	events.Emit(ctx, s.events,
		events.New(events.KOTCompleted, ready),
		statusEvent(order, prev, actor),
		events.New(events.OrderReady, ready),
	)
	return order, nil
}
