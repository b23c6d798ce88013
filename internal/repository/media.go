package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tadcms/media-module/internal/domain/model"
)

// isMediaIDConflict проверяет нарушение уникальности первичного ключа
// таблицы media (UUID записи) — единственного уникального ключа схемы.
func isMediaIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// MediaRepository — интерфейс операций над таблицей media.
type MediaRepository interface {
	// Create регистрирует новую запись медиа-файла. Чистая вставка,
	// без upsert-семантики.
	Create(ctx context.Context, asset *model.MediaAsset) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*model.MediaAsset, error)
	// List возвращает записи с фильтрацией и пагинацией.
	List(ctx context.Context, filters MediaListFilters, limit, offset int) ([]*model.MediaAsset, error)
	// Count возвращает количество записей с фильтрацией.
	Count(ctx context.Context, filters MediaListFilters) (int, error)
	// Delete удаляет запись.
	Delete(ctx context.Context, id string) error
}

// MediaListFilters — фильтры для списка медиа-файлов.
type MediaListFilters struct {
	Type     *string
	FolderID *int64
}

// mediaRepo — реализация MediaRepository.
type mediaRepo struct {
	db DBTX
}

// NewMediaRepository создаёт репозиторий медиа-файлов.
func NewMediaRepository(db DBTX) MediaRepository {
	return &mediaRepo{db: db}
}

func (r *mediaRepo) Create(ctx context.Context, asset *model.MediaAsset) error {
	query := `
		INSERT INTO media (id, name, type, mimetype, path, size, extension, folder_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		asset.ID, asset.Name, asset.Type, asset.Mimetype, asset.Path,
		asset.Size, asset.Extension, asset.FolderID, asset.CreatedAt,
	)
	if err != nil {
		if isMediaIDConflict(err) {
			return fmt.Errorf("%w: медиа-файл с таким ID уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка регистрации медиа-файла: %w", err)
	}
	return nil
}

func (r *mediaRepo) GetByID(ctx context.Context, id string) (*model.MediaAsset, error) {
	query := `
		SELECT id, name, type, mimetype, path, size, extension, folder_id, created_at
		FROM media
		WHERE id = $1`

	asset := &model.MediaAsset{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&asset.ID, &asset.Name, &asset.Type, &asset.Mimetype, &asset.Path,
		&asset.Size, &asset.Extension, &asset.FolderID, &asset.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения медиа-файла: %w", err)
	}
	return asset, nil
}

// buildMediaWhere строит WHERE-условие и аргументы для фильтрации.
func buildMediaWhere(filters MediaListFilters, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argNum))
		args = append(args, *filters.Type)
		argNum++
	}
	if filters.FolderID != nil {
		conditions = append(conditions, fmt.Sprintf("folder_id = $%d", argNum))
		args = append(args, *filters.FolderID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *mediaRepo) List(ctx context.Context, filters MediaListFilters, limit, offset int) ([]*model.MediaAsset, error) {
	where, args := buildMediaWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT id, name, type, mimetype, path, size, extension, folder_id, created_at
		FROM media
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка медиа-файлов: %w", err)
	}
	defer rows.Close()

	var assets []*model.MediaAsset
	for rows.Next() {
		asset := &model.MediaAsset{}
		if err := rows.Scan(
			&asset.ID, &asset.Name, &asset.Type, &asset.Mimetype, &asset.Path,
			&asset.Size, &asset.Extension, &asset.FolderID, &asset.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода результата: %w", err)
	}
	return assets, nil
}

func (r *mediaRepo) Count(ctx context.Context, filters MediaListFilters) (int, error) {
	where, args := buildMediaWhere(filters, 1)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM media %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта медиа-файлов: %w", err)
	}
	return count, nil
}

func (r *mediaRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления медиа-файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
