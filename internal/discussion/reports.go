package discussion

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

// Resolution - решение администратора по жалобе.
type Resolution struct {
	Decision domain.ReportStatus `json:"status"`
	Action   *domain.ActionType  `json:"action,omitempty"`
	Note     string              `json:"note,omitempty"`
}

// ReportPage - страница жалоб для модерации.
type ReportPage struct {
	Reports       []*domain.Report `json:"reports"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	Page          int              `json:"page"`
	Size          int              `json:"size"`
}

// ReportItem - жалоба на материал из конкретного пространства.
func (s *Service) ReportItem(ctx context.Context, p *domain.Principal, space domain.Space, itemID int64, reason string) (*domain.Report, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	if _, err := loadItem(ctx, s.store, space, itemID); err != nil {
		return nil, err
	}
	return s.FileReport(ctx, p, domain.TargetContent, itemID, reason)
}

func (s *Service) ReportComment(ctx context.Context, p *domain.Principal, commentID int64, reason string) (*domain.Report, error) {
	return s.FileReport(ctx, p, domain.TargetComment, commentID, reason)
}

// FileReport создаёт PENDING жалобу. Вторая жалоба того же автора на ту же цель,
// пока первая не рассмотрена, отклоняется с Conflict.
func (s *Service) FileReport(ctx context.Context, p *domain.Principal, targetType domain.TargetType, targetID int64, reason string) (*domain.Report, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	if !targetType.Valid() {
		return nil, domain.Validationf("unknown target type %q", targetType)
	}
	reason, err := domain.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}

	itemID, owner, err := s.reportTarget(ctx, p, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if domain.IsOwner(p, owner) {
		return nil, domain.Permissionf("authors cannot report their own %s", targetType)
	}

	existing, err := s.store.FindPendingReport(ctx, p.UserID, targetType, targetID)
	switch {
	case err == nil:
		return nil, domain.Conflictf("report %d on %s %d is still pending", existing.ID, targetType, targetID)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	created, err := s.store.CreateReport(ctx, &domain.Report{
		TargetType: targetType,
		TargetID:   targetID,
		ItemID:     itemID,
		ReporterID: p.UserID,
		Reason:     reason,
		Status:     domain.ReportPending,
		CreatedAt:  s.now(),
	})
	if errors.Is(err, storage.ErrDuplicate) {
		// Параллельный дубль: жалоба уже записана, повтор безопасен.
		r, err := s.store.FindPendingReport(ctx, p.UserID, targetType, targetID)
		if err != nil {
			return nil, notFound(err, "pending report on %s %d not found", targetType, targetID)
		}
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "report filed",
		"report_id", created.ID, "target_type", targetType, "target_id", targetID, "reporter_id", p.UserID)
	return created, nil
}

// reportTarget проверяет, что цель существует и видна заявителю.
func (s *Service) reportTarget(ctx context.Context, p *domain.Principal, targetType domain.TargetType, targetID int64) (int64, domain.Owned, error) {
	if targetType == domain.TargetContent {
		item, err := visibleItem(ctx, s.store, p, "", targetID)
		if err != nil {
			return 0, nil, err
		}
		return item.ID, item, nil
	}
	c, err := s.store.GetComment(ctx, targetID)
	if err != nil {
		return 0, nil, notFound(err, "comment %d not found", targetID)
	}
	if _, err := visibleItem(ctx, s.store, p, "", c.ItemID); err != nil {
		return 0, nil, domain.NotFoundf("comment %d not found", targetID)
	}
	return c.ItemID, c, nil
}

func (s *Service) GetReport(ctx context.Context, p *domain.Principal, id int64) (*domain.Report, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, notFound(err, "report %d not found", id)
	}
	return r, nil
}

func (s *Service) ListReports(ctx context.Context, p *domain.Principal, status domain.ReportStatus, page, size int) (*ReportPage, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, domain.Validationf("unknown status %q", status)
	}
	page, size, err := normalizePage(page, size)
	if err != nil {
		return nil, err
	}
	reports, total, err := s.store.ListReports(ctx, status, storage.PaginationArgs{Offset: page * size, Limit: size})
	if err != nil {
		return nil, err
	}
	return &ReportPage{
		Reports:       reports,
		TotalElements: total,
		TotalPages:    totalPages(total, size),
		Page:          page,
		Size:          size,
	}, nil
}

// ResolveReport закрывает жалобу и применяет действие в одной транзакции:
// если действие не удалось, жалоба остаётся PENDING.
func (s *Service) ResolveReport(ctx context.Context, p *domain.Principal, id int64, res Resolution) (*domain.Report, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if res.Decision != domain.ReportAccepted && res.Decision != domain.ReportRejected {
		return nil, domain.Validationf("decision must be ACCEPTED or REJECTED")
	}

	var (
		resolved *domain.Report
		deleted  *domain.Comment
	)
	err := s.store.Atomic(ctx, func(tx storage.Storage) error {
		r, err := tx.GetReport(ctx, id)
		if err != nil {
			return notFound(err, "report %d not found", id)
		}
		if r.Status != domain.ReportPending {
			return domain.Conflictf("report %d is already %s", id, r.Status)
		}
		switch {
		case res.Decision == domain.ReportAccepted && res.Action == nil:
			return domain.Validationf("action is required to accept a report")
		case res.Decision == domain.ReportAccepted && !res.Action.Applies(r.TargetType):
			return domain.Validationf("action %s does not apply to %s", *res.Action, r.TargetType)
		case res.Decision == domain.ReportRejected && res.Action != nil:
			return domain.Validationf("action is only allowed when accepting")
		}

		now := s.now()
		admin := p.UserID
		r.Status = res.Decision
		r.ActionType = res.Action
		r.ProcessedBy = &admin
		r.ProcessedAt = &now
		if res.Note != "" {
			note := res.Note
			r.ProcessNote = &note
		}
		ok, err := tx.ResolveReport(ctx, r)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("report %d is no longer pending", id)
		}

		if res.Decision == domain.ReportAccepted {
			c, err := s.applyAction(ctx, tx, *res.Action, r.TargetType, r.TargetID)
			if err != nil {
				return fmt.Errorf("apply %s: %w", *res.Action, err)
			}
			deleted = c
		}
		resolved = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deleted != nil {
		s.publish(deleted.ItemID, events.CommentDeleted, deleted)
	}
	s.log.InfoContext(ctx, "report resolved",
		"report_id", id, "status", resolved.Status, "target_type", resolved.TargetType,
		"target_id", resolved.TargetID, "admin_id", p.UserID)
	return resolved, nil
}
