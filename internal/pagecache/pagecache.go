package pagecache

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// DefaultTTL is how long a cached page stays fresh
const DefaultTTL = 24 * time.Hour

const (
	indexFile = "index.json"
	lockFile  = ".lock"
)

// Index maps cached URLs to their files and cache times
type Index struct {
	Pages    map[string]string    `json:"pages"`     // url → file name
	CachedAt map[string]time.Time `json:"cached_at"` // url → cache time
}

func newIndex() *Index {
	return &Index{
		Pages:    make(map[string]string),
		CachedAt: make(map[string]time.Time),
	}
}

// merge adds the entries of other that are missing from idx or newer there.
// Entries listed in removed stay out unless other cached them again later.
func (idx *Index) merge(other *Index, removed map[string]time.Time) {
	for url, name := range other.Pages {
		cachedAt := other.CachedAt[url]
		if removedAt, ok := removed[url]; ok && !cachedAt.After(removedAt) {
			continue
		}
		if mine, ok := idx.CachedAt[url]; ok && !cachedAt.After(mine) {
			continue
		}
		idx.Pages[url] = name
		idx.CachedAt[url] = cachedAt
	}
}

// Cache stores page bodies on disk. The index file may be shared by several
// processes; every save merges what is on disk under the lock.
type Cache struct {
	dir     string
	ttl     time.Duration
	index   *Index
	removed map[string]time.Time // url → removal time, until the next save
	lock    *flock.Flock
	now     func() time.Time
}

// Open opens or creates the cache in dir. A leading "~/" is expanded to the
// home directory. A non-positive ttl selects DefaultTTL.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		dir:     dir,
		ttl:     ttl,
		removed: make(map[string]time.Time),
		lock:    flock.New(filepath.Join(dir, lockFile)),
		now:     time.Now,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns the cached body of url if it has not expired.
// Expired or unreadable entries are removed.
func (c *Cache) Get(url string) ([]byte, bool) {
	name, ok := c.index.Pages[url]
	if !ok {
		return nil, false
	}

	if c.expired(url) {
		c.remove(url)
		_ = c.save()
		return nil, false
	}

	body, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		c.remove(url)
		_ = c.save()
		return nil, false
	}
	return body, true
}

// Put stores body as the cached page of url
func (c *Cache) Put(url string, body []byte) error {
	name := fileName(url)
	if err := os.WriteFile(filepath.Join(c.dir, name), body, 0644); err != nil {
		return fmt.Errorf("writing cached page: %w", err)
	}

	c.index.Pages[url] = name
	c.index.CachedAt[url] = c.now()
	return c.save()
}

// CleanExpired removes expired entries and returns how many were removed
func (c *Cache) CleanExpired() (int, error) {
	removed := 0
	for url := range c.index.Pages {
		if c.expired(url) {
			c.remove(url)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, c.save()
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	return len(c.index.Pages)
}

func (c *Cache) expired(url string) bool {
	cachedAt, ok := c.index.CachedAt[url]
	return !ok || c.now().Sub(cachedAt) > c.ttl
}

func (c *Cache) remove(url string) {
	if name, ok := c.index.Pages[url]; ok {
		_ = os.Remove(filepath.Join(c.dir, name))
	}
	delete(c.index.Pages, url)
	delete(c.index.CachedAt, url)
	c.removed[url] = c.now()
}

func (c *Cache) load() error {
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("locking cache: %w", err)
	}
	defer c.lock.Unlock() // nolint:errcheck

	index, err := c.readIndex()
	if err != nil {
		return err
	}
	c.index = index
	return nil
}

// readIndex reads the index file. The caller must hold the lock.
func (c *Cache) readIndex() (*Index, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return newIndex(), nil
		}
		return nil, fmt.Errorf("reading cache index: %w", err)
	}

	index := newIndex()
	if err := json.Unmarshal(data, index); err != nil {
		return nil, fmt.Errorf("parsing cache index: %w", err)
	}
	if index.Pages == nil {
		index.Pages = make(map[string]string)
	}
	if index.CachedAt == nil {
		index.CachedAt = make(map[string]time.Time)
	}
	return index, nil
}

func (c *Cache) save() error {
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("locking cache: %w", err)
	}
	defer c.lock.Unlock() // nolint:errcheck

	onDisk, err := c.readIndex()
	if err != nil {
		return err
	}
	c.index.merge(onDisk, c.removed)

	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}

	path := filepath.Join(c.dir, indexFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}

	c.removed = make(map[string]time.Time)
	return nil
}

// fileName derives a stable file name from url
func fileName(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return fmt.Sprintf("%x.html", h.Sum(nil))
}
