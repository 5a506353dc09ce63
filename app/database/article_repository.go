package database

import (
	"database/sql"
	"fmt"
)

// ArticleRepo handles database operations for articles. Articles are never
// hard-deleted: the unlisted flag soft-hides a row while keeping its
// starred state and history.
type ArticleRepo struct {
	db *DB
}

func NewArticleRepo(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

// InsertIfAbsent inserts an article unless a row with the same (url, token)
// already exists. The existing row, including its read/starred/unlisted
// flags, is never touched; re-ingestion of a seen entry is a no-op. Reports
// whether a new row was written.
func (r *ArticleRepo) InsertIfAbsent(article Article) (bool, error) {
	// Timestamps are stored as text with their zone offset, which would
	// make published_at ordering a wall-clock comparison across feeds in
	// different timezones. Normalizing to UTC keeps it an instant ordering.
	publishedAt := article.PublishedAt
	if publishedAt != nil {
		utc := publishedAt.UTC()
		publishedAt = &utc
	}

	result, err := r.db.Exec(`
		INSERT INTO articles (feed_id, title, url, content, published_at, token, unlisted)
		VALUES (?, ?, ?, ?, ?, ?, FALSE)
		ON CONFLICT (url, token) DO NOTHING
	`, article.FeedID, article.Title, article.URL, article.Content,
		publishedAt, article.Token)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// GetArticle retrieves an article by id, scoped to the owning token.
// Returns (nil, nil) when no row matches.
func (r *ArticleRepo) GetArticle(token string, articleID int64) (*Article, error) {
	row := r.db.QueryRow(`
		SELECT id, feed_id, title, url, COALESCE(content, ''), published_at,
		       is_read, starred, unlisted, token, created_at
		FROM articles
		WHERE id = ? AND token = ?
	`, articleID, token)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

// ListByFeed returns a feed's articles for display. Unlisted rows are
// excluded unless starred. Unread articles come first, then read unstarred
// ones, then starred ones; each group is ordered by publish time descending
// with unknown-time articles last.
func (r *ArticleRepo) ListByFeed(token string, feedID int64) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, title, url, COALESCE(content, ''), published_at,
		       is_read, starred, unlisted, token, created_at
		FROM articles
		WHERE feed_id = ? AND token = ?
		  AND (starred = TRUE OR unlisted = FALSE)
		ORDER BY CASE WHEN starred THEN 2 WHEN is_read THEN 1 ELSE 0 END,
		         published_at IS NULL, published_at DESC
	`, feedID, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

// ListStarred returns every starred article for a token across all feeds,
// unlisted or not, ordered by publish time descending.
func (r *ArticleRepo) ListStarred(token string) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, title, url, COALESCE(content, ''), published_at,
		       is_read, starred, unlisted, token, created_at
		FROM articles
		WHERE token = ? AND starred = TRUE
		ORDER BY published_at IS NULL, published_at DESC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list starred articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

// MarkRead sets is_read on an article. Affecting zero rows (unknown id, or
// an id owned by another token) is not an error; the mutation is idempotent.
func (r *ArticleRepo) MarkRead(token string, articleID int64) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET is_read = TRUE
		WHERE id = ? AND token = ?
	`, articleID, token)
	if err != nil {
		return fmt.Errorf("failed to mark article read: %w", err)
	}
	return nil
}

// MarkAllStarredRead sets is_read on every starred article owned by token.
func (r *ArticleRepo) MarkAllStarredRead(token string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET is_read = TRUE
		WHERE token = ? AND starred = TRUE
	`, token)
	if err != nil {
		return fmt.Errorf("failed to mark starred articles read: %w", err)
	}
	return nil
}

// SetStarred updates the starred flag. Starring also marks the article read
// in the same statement; un-starring leaves is_read untouched.
func (r *ArticleRepo) SetStarred(token string, articleID int64, starred bool) error {
	var err error
	if starred {
		_, err = r.db.Exec(`
			UPDATE articles
			SET starred = TRUE, is_read = TRUE
			WHERE id = ? AND token = ?
		`, articleID, token)
	} else {
		_, err = r.db.Exec(`
			UPDATE articles
			SET starred = FALSE
			WHERE id = ? AND token = ?
		`, articleID, token)
	}
	if err != nil {
		return fmt.Errorf("failed to update starred flag: %w", err)
	}
	return nil
}

// UpdateContent replaces an article's content with freshly scraped text.
func (r *ArticleRepo) UpdateContent(token string, articleID int64, content string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET content = ?
		WHERE id = ? AND token = ?
	`, content, articleID, token)
	if err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}
	return nil
}

// Purge soft-hides every non-starred article of a feed. Starred articles
// are exempt so favorites survive a backlog sweep.
func (r *ArticleRepo) Purge(token string, feedID int64) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET unlisted = TRUE
		WHERE feed_id = ? AND token = ? AND starred = FALSE
	`, feedID, token)
	if err != nil {
		return fmt.Errorf("failed to purge feed articles: %w", err)
	}
	return nil
}

// CountArticles returns the total number of articles across all tokens
func (r *ArticleRepo) CountArticles() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var publishedAt sql.NullTime

	err := row.Scan(
		&article.ID, &article.FeedID, &article.Title, &article.URL,
		&article.Content, &publishedAt, &article.IsRead, &article.Starred,
		&article.Unlisted, &article.Token, &article.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		article.PublishedAt = &publishedAt.Time
	}

	return &article, nil
}

func collectArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}
