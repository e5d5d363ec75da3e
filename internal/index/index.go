package index

// PostIndex defines the search index operations used by the service layer.
type PostIndex interface {
	UpsertPost(r PostRow) error
	DeletePost(k Key) error
	GetChecksum(k Key) (string, error)
	AllChecksums() (map[Key]string, error)
	Count() (int, error)
	Search(query string, limit, offset int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies PostIndex at compile time.
var _ PostIndex = (*DB)(nil)
