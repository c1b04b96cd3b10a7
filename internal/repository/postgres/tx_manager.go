package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yourusername/tracker-api/internal/domain/repository"
)

// uniqueViolationCode — SQLSTATE код нарушения уникального индекса в PostgreSQL
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// TxManager реализует repository.TxManager поверх GORM-транзакций
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Do выполняет fn в одной транзакции: либо коммитятся все записи
// (новый пользователь, связка, принятое приглашение), либо ни одна.
func (m *TxManager) Do(ctx context.Context, fn func(store repository.Store) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{tx: tx})
	})
}

// txStore раздает репозитории, привязанные к одной транзакции
type txStore struct {
	tx *gorm.DB
}

func (s *txStore) Users() repository.UserRepository {
	return NewUserRepo(s.tx)
}

func (s *txStore) Identities() repository.UserIdentityRepository {
	return NewUserIdentityRepo(s.tx)
}

func (s *txStore) Memberships() repository.MembershipRepository {
	return NewMembershipRepo(s.tx)
}
