package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepository persists the credential pair.
type TokenRepository interface {
	Get(ctx context.Context) (*Token, error)
	Upsert(ctx context.Context, token *Token) error
	Clear(ctx context.Context) error
}

// ProfileRepository persists the cached user profile.
type ProfileRepository interface {
	Get(ctx context.Context) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
	Clear(ctx context.Context) error
}

// SymbolRepository defines decoupled operations for the symbol catalogue.
type SymbolRepository interface {
	Put(ctx context.Context, s Symbol) error
	Get(ctx context.Context, symbol string) (*Symbol, error)
	List(ctx context.Context) ([]Symbol, error)
	Search(ctx context.Context, term string) ([]Symbol, error)
	Clear(ctx context.Context) error
	// Replace swaps the whole catalogue for symbols in one transaction.
	Replace(ctx context.Context, symbols []Symbol) error
}

// tokenRowID is the primary key of the only credential row.
const tokenRowID = 1

type gormTokenRepo struct{ db *gorm.DB }

type gormProfileRepo struct{ db *gorm.DB }

type gormSymbolRepo struct{ db *gorm.DB }

// NewTokenRepository creates a TokenRepository. Accepts *gorm.DB to avoid global access.
func NewTokenRepository(db *gorm.DB) TokenRepository { return &gormTokenRepo{db: db} }

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(db *gorm.DB) ProfileRepository { return &gormProfileRepo{db: db} }

// NewSymbolRepository creates a SymbolRepository.
func NewSymbolRepository(db *gorm.DB) SymbolRepository { return &gormSymbolRepo{db: db} }

var errNotInitialized = fmt.Errorf("repository not initialized")

func (r *gormTokenRepo) Get(ctx context.Context) (*Token, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var token Token
	err := r.db.WithContext(ctx).First(&token, "id = ?", tokenRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Upsert writes both tokens in a single statement, so readers see either
// the previous pair or the new one.
func (r *gormTokenRepo) Upsert(ctx context.Context, token *Token) error {
	if r.db == nil {
		return errNotInitialized
	}
	if token == nil {
		return fmt.Errorf("token is nil")
	}
	row := Token{
		ID:           tokenRowID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at"}),
	}).Create(&row).Error
}

// Clear removes the credential row, dropping both tokens at once.
func (r *gormTokenRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Token{}).Error
}

func (r *gormProfileRepo) Get(ctx context.Context) (*Profile, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var profile Profile
	err := r.db.WithContext(ctx).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *gormProfileRepo) Upsert(ctx context.Context, profile *Profile) error {
	if r.db == nil {
		return errNotInitialized
	}
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}
	profile.ID = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(profile).Error
}

func (r *gormProfileRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Profile{}).Error
}

func (r *gormSymbolRepo) Put(ctx context.Context, s Symbol) error {
	if r.db == nil {
		return errNotInitialized
	}
	return putSymbol(r.db.WithContext(ctx), s)
}

func putSymbol(tx *gorm.DB, s Symbol) error {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if s.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&s).Error
}

func (r *gormSymbolRepo) Get(ctx context.Context, symbol string) (*Symbol, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var s Symbol
	err := r.db.WithContext(ctx).First(&s, "symbol = ?", strings.ToUpper(symbol)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormSymbolRepo) List(ctx context.Context) ([]Symbol, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var symbols []Symbol
	if err := r.db.WithContext(ctx).Order("symbol").Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// Search matches the term against symbol and name; SQLite LIKE is case-insensitive for ASCII.
func (r *gormSymbolRepo) Search(ctx context.Context, term string) ([]Symbol, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	like := "%" + term + "%"
	var symbols []Symbol
	if err := r.db.WithContext(ctx).
		Where("symbol LIKE ? OR name LIKE ?", like, like).
		Order("symbol").
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

func (r *gormSymbolRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Symbol{}).Error
}

func (r *gormSymbolRepo) Replace(ctx context.Context, symbols []Symbol) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Symbol{}).Error; err != nil {
			return fmt.Errorf("failed to empty the catalogue: %w", err)
		}
		for _, s := range symbols {
			if err := putSymbol(tx, s); err != nil {
				return fmt.Errorf("failed to store symbol %q: %w", s.Symbol, err)
			}
		}
		return nil
	})
}
