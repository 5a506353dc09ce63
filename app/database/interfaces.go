package database

type FeedRepository interface {
	CreateFeed(token, url, title string) (int64, error)
	GetFeed(token string, feedID int64) (*Feed, error)
	ListUnread(token string) ([]FeedUnread, error)
	CountFeeds() (int, error)
}

type ArticleRepository interface {
	InsertIfAbsent(article Article) (bool, error)
	GetArticle(token string, articleID int64) (*Article, error)
	ListByFeed(token string, feedID int64) ([]Article, error)
	ListStarred(token string) ([]Article, error)
	MarkRead(token string, articleID int64) error
	MarkAllStarredRead(token string) error
	SetStarred(token string, articleID int64, starred bool) error
	UpdateContent(token string, articleID int64, content string) error
	Purge(token string, feedID int64) error
	CountArticles() (int, error)
}
