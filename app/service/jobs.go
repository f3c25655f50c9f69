package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// RunAuditPruneBatch deletes audit records older than the configured retention window.
func (s *PaymentService) RunAuditPruneBatch(ctx context.Context) error {
	if s.paymentsCfg.AuditRetention <= 0 {
		return errors.New("audit retention must be positive")
	}

	cutoff := s.now().Add(-s.paymentsCfg.AuditRetention)
	removed, err := s.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"cutoff":  cutoff,
		"removed": removed,
	}).Info("audit_pruned")
	return nil
}
