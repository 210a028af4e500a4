package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested session or photo does not exist.
var ErrNotFound = errors.New("gallery: not found")

const listSessionsSQL = `
SELECT s.id, s.slug, s.title, s.spot, s.shot_at, s.cover_url, s.published, s.created_at,
       (SELECT COUNT(*) FROM photos p WHERE p.session_id = s.id) AS photo_count
FROM photo_sessions s
WHERE s.published = TRUE
ORDER BY s.shot_at DESC
LIMIT $1 OFFSET $2`

const countSessionsSQL = `SELECT COUNT(*) FROM photo_sessions WHERE published = TRUE`

const sessionBySlugSQL = `
SELECT s.id, s.slug, s.title, s.spot, s.shot_at, s.cover_url, s.published, s.created_at,
       (SELECT COUNT(*) FROM photos p WHERE p.session_id = s.id) AS photo_count
FROM photo_sessions s
WHERE s.slug = $1 AND s.published = TRUE`

const photosBySessionSQL = `
SELECT p.id, p.session_id, p.display_name, p.preview_url, p.original_key, p.taken_at, p.created_at
FROM photos p
JOIN photo_sessions s ON s.id = p.session_id
WHERE s.slug = $1 AND s.published = TRUE
ORDER BY p.taken_at, p.id`

const photoByIDSQL = `
SELECT p.id, p.session_id, p.display_name, p.preview_url, p.original_key, p.taken_at, p.created_at
FROM photos p
WHERE p.id = $1`

// Service answers gallery reads with Redis caching in front of Postgres.
type Service struct {
	Pool  *pgxpool.Pool
	Cache *Cache
}

// ListResult pairs a page of sessions with the total count.
type ListResult struct {
	Items []Session `json:"items"`
	Total int64     `json:"total"`
}

// ListSessions returns published sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, page, perPage int) (ListResult, error) {
	if s == nil || s.Pool == nil {
		return ListResult{}, errors.New("gallery service not configured")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 24
	}
	key := fmt.Sprintf("gallery:sessions:%d:%d", page, perPage)
	var cached ListResult
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	offset := (page - 1) * perPage
	rows, err := s.Pool.Query(ctx, listSessionsSQL, perPage, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out ListResult
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return ListResult{}, err
		}
		out.Items = append(out.Items, sess)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}
	if err := s.Pool.QueryRow(ctx, countSessionsSQL).Scan(&out.Total); err != nil {
		return ListResult{}, fmt.Errorf("count sessions: %w", err)
	}

	_ = s.Cache.SetJSON(ctx, key, out)
	return out, nil
}

// SessionBySlug returns a single published session.
func (s *Service) SessionBySlug(ctx context.Context, slug string) (Session, error) {
	if s == nil || s.Pool == nil {
		return Session{}, errors.New("gallery service not configured")
	}
	key := "gallery:session:" + slug
	var cached Session
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	sess, err := scanSession(s.Pool.QueryRow(ctx, sessionBySlugSQL, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("session by slug: %w", err)
	}
	_ = s.Cache.SetJSON(ctx, key, sess)
	return sess, nil
}

// SessionPhotos returns every photo of a published session.
func (s *Service) SessionPhotos(ctx context.Context, slug string) ([]Photo, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("gallery service not configured")
	}
	key := "gallery:photos:" + slug
	var cached []Photo
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	if _, err := s.SessionBySlug(ctx, slug); err != nil {
		return nil, err
	}
	rows, err := s.Pool.Query(ctx, photosBySessionSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("session photos: %w", err)
	}
	defer rows.Close()

	photos := make([]Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, key, photos)
	return photos, nil
}

// PhotoByID fetches a single photo, original key included. Used by the
// fulfillment worker and by cart item validation.
func (s *Service) PhotoByID(ctx context.Context, id string) (Photo, error) {
	if s == nil || s.Pool == nil {
		return Photo{}, errors.New("gallery service not configured")
	}
	p, err := scanPhoto(s.Pool.QueryRow(ctx, photoByIDSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, ErrNotFound
		}
		return Photo{}, fmt.Errorf("photo by id: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess   Session
		shotAt time.Time
	)
	if err := row.Scan(&sess.ID, &sess.Slug, &sess.Title, &sess.Spot, &shotAt, &sess.CoverURL, &sess.Published, &sess.CreatedAt, &sess.PhotoCount); err != nil {
		return Session{}, err
	}
	sess.ShotAt = shotAt
	return sess, nil
}

func scanPhoto(row rowScanner) (Photo, error) {
	var p Photo
	if err := row.Scan(&p.ID, &p.SessionID, &p.DisplayName, &p.PreviewURL, &p.OriginalKey, &p.TakenAt, &p.CreatedAt); err != nil {
		return Photo{}, err
	}
	return p, nil
}
