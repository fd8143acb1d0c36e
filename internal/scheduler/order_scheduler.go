package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run so a stuck processor call cannot pile up runs.
const jobTimeout = 5 * time.Minute

// OrderScheduler 주문 정리 스케줄러
type OrderScheduler struct {
	cron      *cron.Cron
	cfg       config.SchedulerConfig
	orderRepo repository.OrderRepository
	lifecycle service.OrderLifecycle
	now       func() time.Time
}

// NewOrderScheduler 주문 스케줄러 생성
func NewOrderScheduler(cfg config.SchedulerConfig, orderRepo repository.OrderRepository, lifecycle service.OrderLifecycle) *OrderScheduler {
	return &OrderScheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:       cfg,
		orderRepo: orderRepo,
		lifecycle: lifecycle,
		now:       time.Now,
	}
}

// Start 스케줄러 시작
func (s *OrderScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.StaleIntentCron, s.run("expire_stale_intents", s.expireJob)); err != nil {
		logger.Error("Failed to add cron job for stale intents", err, map[string]interface{}{
			"spec": s.cfg.StaleIntentCron,
		})
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.ReconciliationCron, s.run("reconciliation_report", s.reportJob)); err != nil {
		logger.Error("Failed to add cron job for reconciliation report", err, map[string]interface{}{
			"spec": s.cfg.ReconciliationCron,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Order scheduler started", map[string]interface{}{
		"stale_intent_cron":   s.cfg.StaleIntentCron,
		"stale_intent_age":    s.cfg.StaleIntentAge.String(),
		"reconciliation_cron": s.cfg.ReconciliationCron,
	})
	return nil
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 기다린다.
func (s *OrderScheduler) Stop() {
	logger.Info("Stopping order scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Order scheduler stopped")
}

func (s *OrderScheduler) run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		if err := job(ctx); err != nil {
			logger.Error("Scheduled job failed", err, map[string]interface{}{
				"job": name,
			})
			return
		}
		logger.Debug("Scheduled job finished", map[string]interface{}{
			"job":        name,
			"latency_ms": time.Since(started).Milliseconds(),
		})
	}
}

func (s *OrderScheduler) expireJob(ctx context.Context) error {
	_, err := s.ExpireStaleIntents(ctx)
	return err
}

func (s *OrderScheduler) reportJob(ctx context.Context) error {
	_, err := s.ReportReconciliation(ctx)
	return err
}

// ExpireStaleIntents cancels orders whose external payment stayed
// unapproved longer than StaleIntentAge and returns how many were expired.
// Orders that changed underneath the job are skipped.
func (s *OrderScheduler) ExpireStaleIntents(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.FindStaleIntents(ctx, s.now().Add(-s.cfg.StaleIntentAge))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range orders {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if _, err := s.lifecycle.ExpireIntent(ctx, order.ID); err != nil {
			var transitionErr *service.InvalidTransitionError
			if errors.Is(err, service.ErrPaymentNotPending) || errors.As(err, &transitionErr) {
				logger.Debug("Stale intent resolved concurrently", map[string]interface{}{
					"order_id": order.ID,
				})
				continue
			}
			logger.Error("Failed to expire payment intent", err, map[string]interface{}{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
			})
			continue
		}
		expired++
	}

	if len(orders) > 0 {
		logger.Info("Stale payment intents processed", map[string]interface{}{
			"found":   len(orders),
			"expired": expired,
		})
	}
	return expired, nil
}

// ReportReconciliation logs every order waiting for an operator.
func (s *OrderScheduler) ReportReconciliation(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.FindNeedingReconciliation(ctx)
	if err != nil {
		return 0, err
	}
	for _, order := range orders {
		logger.Warn("Order awaiting reconciliation", map[string]interface{}{
			"order_id":       order.ID,
			"order_number":   order.OrderNumber,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
			"payment_tid":    order.PaymentTID,
			"flagged_for":    s.now().Sub(order.UpdatedAt).Round(time.Minute).String(),
		})
	}
	return len(orders), nil
}
