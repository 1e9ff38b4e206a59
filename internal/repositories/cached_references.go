package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
	"strconv"
	"time"
)

type referenceRepository interface {
	Cities(ctx context.Context) ([]models.City, error)
	Categories(ctx context.Context) ([]models.Category, error)
	CityByName(ctx context.Context, name string) (*models.City, error)
	CategoryByName(ctx context.Context, name string) (*models.Category, error)
	CityByID(ctx context.Context, id int) (*models.City, error)
	CategoryByID(ctx context.Context, id int) (*models.Category, error)
}

// CachedReferences caches city and category lookups, the rows never change after seeding.
type CachedReferences struct {
	repo  referenceRepository
	cache *gocache.Cache
}

func NewCachedReferences(repo referenceRepository) *CachedReferences {
	return &CachedReferences{repo: repo, cache: gocache.New(30*time.Minute, time.Hour)}
}

func (c *CachedReferences) Cities(ctx context.Context) ([]models.City, error) {
	return cached(c.cache, "cities", func() ([]models.City, error) { return c.repo.Cities(ctx) })
}

func (c *CachedReferences) Categories(ctx context.Context) ([]models.Category, error) {
	return cached(c.cache, "categories", func() ([]models.Category, error) { return c.repo.Categories(ctx) })
}

func (c *CachedReferences) CityByName(ctx context.Context, name string) (*models.City, error) {
	return cached(c.cache, "city:name:"+models.NormalizeName(name), func() (*models.City, error) {
		return c.repo.CityByName(ctx, name)
	})
}

func (c *CachedReferences) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return cached(c.cache, "category:name:"+models.NormalizeName(name), func() (*models.Category, error) {
		return c.repo.CategoryByName(ctx, name)
	})
}

func (c *CachedReferences) CityByID(ctx context.Context, id int) (*models.City, error) {
	return cached(c.cache, "city:id:"+strconv.Itoa(id), func() (*models.City, error) {
		return c.repo.CityByID(ctx, id)
	})
}

func (c *CachedReferences) CategoryByID(ctx context.Context, id int) (*models.Category, error) {
	return cached(c.cache, "category:id:"+strconv.Itoa(id), func() (*models.Category, error) {
		return c.repo.CategoryByID(ctx, id)
	})
}

// cached stores only successful non-empty results so a transient db error or a typo is not remembered.
func cached[T any](cache *gocache.Cache, key string, load func() (T, error)) (T, error) {
	if value, found := cache.Get(key); found {
		return value.(T), nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if !isEmpty(value) {
		cache.Set(key, value, gocache.DefaultExpiration)
	}
	return value, nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case *models.City:
		return v == nil
	case *models.Category:
		return v == nil
	case []models.City:
		return len(v) == 0
	case []models.Category:
		return len(v) == 0
	default:
		return value == nil
	}
}
