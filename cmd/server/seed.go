package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UkralStul/matjip-discussion/internal/discussion"
	"github.com/UkralStul/matjip-discussion/internal/domain"
)

// fillWithMockData создаёт демо-данные через сервис, чтобы они прошли те же проверки.
func fillWithMockData(ctx context.Context, svc *discussion.Service) error {
	admin := &domain.Principal{UserID: "user-admin", Nickname: "운영자", Role: domain.RoleAdmin}
	alice := &domain.Principal{UserID: "user-1", Nickname: "맛객", Role: domain.RoleUser}
	bob := &domain.Principal{UserID: "user-2", Nickname: "먹보", Role: domain.RoleUser}

	// 1. Объявление на доске.
	notice, err := svc.CreateItem(ctx, admin, domain.SpaceBoard, discussion.ItemInput{
		Kind:  domain.KindNotice,
		Title: "게시판 이용 안내",
		Body:  `{"ops":[{"insert":"광고와 욕설은 신고해 주세요.\n"}]}`,
	})
	if err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	if _, err := svc.Pin(ctx, admin, domain.SpaceBoard, notice.ID); err != nil {
		return fmt.Errorf("pin notice: %w", err)
	}

	// 2. Обзор с веткой комментариев.
	review, err := svc.CreateItem(ctx, alice, domain.SpaceBoard, discussion.ItemInput{
		Title: "을지로 노포 냉면",
		Body:  `{"ops":[{"insert":"육수가 깊고 면이 쫄깃합니다.\n"},{"insert":{"image":"https://cdn.example/naengmyeon.jpg"}}]}`,
	})
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	c1, err := svc.AddComment(ctx, bob, domain.SpaceBoard, review.ID, discussion.CommentInput{Content: "여기 웨이팅 길어요?"})
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	if _, err := svc.AddComment(ctx, alice, domain.SpaceBoard, review.ID, discussion.CommentInput{
		Content:  "평일 점심엔 20분 정도요.",
		ParentID: &c1.ID,
	}); err != nil {
		return fmt.Errorf("create reply: %w", err)
	}
	if _, err := svc.ToggleRecommendation(ctx, bob, domain.SpaceBoard, review.ID); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	// 3. Пост в блоге с жалобой, ожидающей модерации.
	post, err := svc.CreateItem(ctx, bob, domain.SpaceBlog, discussion.ItemInput{
		Title: "성수동 디저트 투어",
		Body:  "케이크 세 곳을 돌아봤습니다.",
	})
	if err != nil {
		return fmt.Errorf("create blog post: %w", err)
	}
	if _, err := svc.ReportItem(ctx, alice, domain.SpaceBlog, post.ID, "홍보성 글 같아요"); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	slog.InfoContext(ctx, "mock data filled", "notice_id", notice.ID, "review_id", review.ID, "blog_post_id", post.ID)
	return nil
}
