package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

const (
	// 32 случайных байта дают 64 hex-символа; требование к энтропии
	// токена — не меньше 128 бит
	tokenBytes = 32

	auditActionIssue  = "token.issue"
	auditActionRedeem = "token.redeem"
)

// TokenService выдает и гасит одноразовые delivery-токены.
// Выдача предполагает, что вызывающий уже подтвердил права через
// PermissionService; при погашении сам факт валидного токена —
// единственное основание для выдачи файла.
type TokenService struct {
	tokens    TokenStore
	documents DocumentStore
	audit     AuditStore

	now func() time.Time
}

func NewTokenService(tokens TokenStore, documents DocumentStore, audit AuditStore) *TokenService {
	return &TokenService{
		tokens:    tokens,
		documents: documents,
		audit:     audit,
		now:       time.Now,
	}
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issue создает одноразовый токен на документ. Повторные вызовы просто
// выдают новые токены; политика ретраев на выдаче не нужна.
func (s *TokenService) Issue(ctx context.Context, documentID uuid.UUID, userID string, purpose domain.TokenPurpose) (*domain.DeliveryToken, error) {
	if _, err := s.documents.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	tokenStr, err := generateToken()
	if err != nil {
		return nil, err
	}

	token := &domain.DeliveryToken{
		Token:      tokenStr,
		DocumentID: documentID,
		UserID:     userID,
		Purpose:    purpose,
		ExpiresAt:  s.now().Add(purpose.TTL()),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	s.writeAudit(ctx, token.UserID, auditActionIssue, &documentID, tokenStr, string(purpose))

	return token, nil
}

// Redeem проверяет и гасит токен как единую операцию. Порядок проверок:
// существование, used, срок, назначение. Ни одна проверка не расходует
// токен; расходует только успешное прохождение всех проверок, причем
// отметка used ставится условным UPDATE — из конкурирующих погашений
// одного токена преуспеет ровно одно.
func (s *TokenService) Redeem(ctx context.Context, tokenStr string, purpose domain.TokenPurpose) (*domain.DocumentRef, error) {
	token, err := s.tokens.GetByToken(ctx, tokenStr)
	if err != nil {
		s.writeAudit(ctx, "", auditActionRedeem, nil, tokenStr, "rejected: unknown token")
		return nil, err
	}

	if token.Used {
		s.writeAudit(ctx, token.UserID, auditActionRedeem, &token.DocumentID, tokenStr, "rejected: already used")
		return nil, domain.ErrTokenAlreadyUsed
	}

	if s.now().After(token.ExpiresAt) {
		s.writeAudit(ctx, token.UserID, auditActionRedeem, &token.DocumentID, tokenStr, "rejected: expired")
		return nil, domain.ErrTokenExpired
	}

	if token.Purpose != purpose {
		s.writeAudit(ctx, token.UserID, auditActionRedeem, &token.DocumentID, tokenStr,
			fmt.Sprintf("rejected: purpose %s used at %s endpoint", token.Purpose, purpose))
		return nil, domain.ErrTokenPurposeMismatch
	}

	if err := s.tokens.Consume(ctx, tokenStr, s.now()); err != nil {
		// Проигрыш CAS неотличим от повторного использования
		s.writeAudit(ctx, token.UserID, auditActionRedeem, &token.DocumentID, tokenStr, "rejected: concurrent redemption")
		return nil, err
	}

	doc, err := s.documents.GetByID(ctx, token.DocumentID)
	if err != nil {
		s.writeAudit(ctx, token.UserID, auditActionRedeem, &token.DocumentID, tokenStr, "consumed, but document missing")
		return nil, err
	}

	s.writeAudit(ctx, token.UserID, auditActionRedeem, &token.DocumentID, tokenStr,
		fmt.Sprintf("redeemed for %s", purpose))

	return &domain.DocumentRef{
		DocumentID: doc.ID,
		StorageKey: doc.StorageKey,
		MIMEType:   doc.MIMEType,
		Name:       doc.Name,
	}, nil
}

// writeAudit фиксирует попытку в аудите. Сбой записи аудита не должен
// ронять выдачу файла, поэтому ошибка только логируется.
func (s *TokenService) writeAudit(ctx context.Context, userID, action string, documentID *uuid.UUID, token, detail string) {
	record := &domain.AuditRecord{
		UserID:     userID,
		Action:     action,
		DocumentID: documentID,
		Token:      token,
		Detail:     detail,
	}
	if err := s.audit.Record(ctx, record); err != nil {
		log.Printf("[TokenService] Не удалось записать аудит (%s): %v", action, err)
	}
}
