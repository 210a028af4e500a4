package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Favorite links a user to a photo they starred in the gallery.
type Favorite struct {
	PhotoID     string    `json:"photoId"`
	DisplayName string    `json:"displayName"`
	PreviewURL  string    `json:"previewUrl"`
	SessionSlug string    `json:"sessionSlug"`
	CreatedAt   time.Time `json:"createdAt"`
}

const addFavoriteSQL = `
INSERT INTO favorites (user_id, photo_id)
VALUES ($1, $2)
ON CONFLICT (user_id, photo_id) DO NOTHING`

const removeFavoriteSQL = `DELETE FROM favorites WHERE user_id = $1 AND photo_id = $2`

const checkFavoriteSQL = `SELECT 1 FROM favorites WHERE user_id = $1 AND photo_id = $2`

const listFavoritesSQL = `
SELECT f.photo_id, p.display_name, p.preview_url, s.slug, f.created_at
FROM favorites f
JOIN photos p ON p.id = f.photo_id
JOIN photo_sessions s ON s.id = p.session_id
WHERE f.user_id = $1
ORDER BY f.created_at DESC`

// Service stores per-user photo favorites.
type Service struct {
	Pool *pgxpool.Pool
}

func (s *Service) Add(ctx context.Context, userID, photoID string) error {
	if s == nil || s.Pool == nil {
		return errors.New("favorites service not configured")
	}
	if _, err := s.Pool.Exec(ctx, addFavoriteSQL, userID, photoID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, userID, photoID string) error {
	if s == nil || s.Pool == nil {
		return errors.New("favorites service not configured")
	}
	if _, err := s.Pool.Exec(ctx, removeFavoriteSQL, userID, photoID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *Service) Check(ctx context.Context, userID, photoID string) (bool, error) {
	if s == nil || s.Pool == nil {
		return false, errors.New("favorites service not configured")
	}
	var one int
	err := s.Pool.QueryRow(ctx, checkFavoriteSQL, userID, photoID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return true, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Favorite, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("favorites service not configured")
	}
	rows, err := s.Pool.Query(ctx, listFavoritesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]Favorite, 0)
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.PhotoID, &f.DisplayName, &f.PreviewURL, &f.SessionSlug, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
