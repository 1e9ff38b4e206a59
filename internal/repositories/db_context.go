package repositories

import (
	"embed"
	"encoding/csv"
	"fmt"
	"github.com/glebarez/sqlite"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"os"
	"path/filepath"
	"strconv"
)

//go:embed seed/*.csv
var seedFS embed.FS

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {

	if dir := filepath.Dir(connectionString); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer, serialize access instead of failing with SQLITE_BUSY
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {

	entities := []struct {
		name  string
		model any
	}{
		{"City", models.City{}},
		{"Category", models.Category{}},
		{"Chat", models.Chat{}},
		{"Subscription", models.Subscription{}},
		{"Vacancy", models.Vacancy{}},
		{"VacancyParameters", models.VacancyParameters{}},
		{"DeliveryRecord", models.DeliveryRecord{}},
		{"Greeting", models.Greeting{}},
		{"Post", models.Post{}},
		{"Statistic", models.Statistic{}},
		{"ArbitraryData", models.ArbitraryData{}},
	}

	for _, entity := range entities {
		if err := c.DB.AutoMigrate(entity.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", entity.name, err)
		}
	}

	var citiesCount, categoriesCount int64
	if err := c.DB.Model(models.City{}).Count(&citiesCount).Error; err != nil {
		return fmt.Errorf("failed to count cities: %w", err)
	}

	if citiesCount == 0 {
		if err := c.PopulateCities(); err != nil {
			return fmt.Errorf("failed to populate cities: %w", err)
		}
	}

	if err := c.DB.Model(models.Category{}).Count(&categoriesCount).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}

	if categoriesCount == 0 {
		if err := c.PopulateCategories(); err != nil {
			return fmt.Errorf("failed to populate categories: %w", err)
		}
	}

	return nil
}

func (c *DbContext) PopulateCities() error {
	rows, err := readSeed("seed/cities.csv")
	if err != nil {
		return err
	}

	cities := make([]models.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, models.NewCity(row.id, row.name, row.param))
	}

	if err = c.DB.Create(cities).Error; err != nil {
		return fmt.Errorf("failed to create cities in the database: %w", err)
	}
	return nil
}

func (c *DbContext) PopulateCategories() error {
	rows, err := readSeed("seed/categories.csv")
	if err != nil {
		return err
	}

	categories := make([]models.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, models.NewCategory(row.id, row.name, row.param))
	}

	if err = c.DB.Create(categories).Error; err != nil {
		return fmt.Errorf("failed to create categories in the database: %w", err)
	}
	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}

type seedRow struct {
	id    int
	name  string
	param string
}

func readSeed(name string) ([]seedRow, error) {
	file, err := seedFS.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var rows []seedRow
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		if len(record) != 3 {
			return nil, fmt.Errorf("%s:%d: expected 3 columns, got %d", name, i+1, len(record))
		}
		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid id: %w", name, i+1, err)
		}
		rows = append(rows, seedRow{id: id, name: record[1], param: record[2]})
	}
	return rows, nil
}
