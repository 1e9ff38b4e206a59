package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

type Vacancies struct {
	db *gorm.DB
}

func NewVacanciesRepository(db *gorm.DB) *Vacancies {
	return &Vacancies{db: db}
}

// FindOrCreate returns the stored vacancy with the same URL, inserting the given one if
// there is none yet. A stored vacancy keeps its original text.
func (v *Vacancies) FindOrCreate(ctx context.Context, vacancy models.Vacancy) (*models.Vacancy, error) {
	existing, err := v.GetByURL(ctx, vacancy.URL)
	if err != nil || existing != nil {
		return existing, err
	}

	vacancy.ID = 0
	res := v.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&vacancy)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to create vacancy")
	}
	if res.RowsAffected > 0 {
		return &vacancy, nil
	}

	// lost an insert race
	existing, err = v.GetByURL(ctx, vacancy.URL)
	if err == nil && existing == nil {
		err = errors.Errorf("vacancy %s vanished after conflicting insert", vacancy.URL)
	}
	return existing, err
}

func (v *Vacancies) GetByURL(ctx context.Context, url string) (*models.Vacancy, error) {
	var vacancy models.Vacancy
	err := v.db.WithContext(ctx).First(&vacancy, "url = ?", url).Error
	return nilIfNotFound(&vacancy, err)
}

func (v *Vacancies) GetByID(ctx context.Context, id int) (*models.Vacancy, error) {
	var vacancy models.Vacancy
	err := v.db.WithContext(ctx).First(&vacancy, "id = ?", id).Error
	return nilIfNotFound(&vacancy, err)
}

func (v *Vacancies) ParametersExist(ctx context.Context, vacancyID, cityID, categoryID int) (bool, error) {
	var count int64
	err := v.db.WithContext(ctx).
		Model(&models.VacancyParameters{}).
		Where("vacancy_id = ? AND city_id = ? AND category_id = ?", vacancyID, cityID, categoryID).
		Count(&count).Error
	return count > 0, err
}

// AddParameters links the vacancy to the search pair. Returns false when the link already
// existed, including when a concurrent insert won.
func (v *Vacancies) AddParameters(ctx context.Context, vacancyID, cityID, categoryID int) (bool, error) {
	res := v.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.VacancyParameters{VacancyID: vacancyID, CityID: cityID, CategoryID: categoryID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LatestFor returns up to limit vacancies linked to the pair, newest published first.
func (v *Vacancies) LatestFor(ctx context.Context, cityID, categoryID, limit int) ([]models.Vacancy, error) {
	var vacancies []models.Vacancy
	err := v.db.WithContext(ctx).
		Joins("JOIN vacancy_parameters vp ON vp.vacancy_id = vacancies.id").
		Where("vp.city_id = ? AND vp.category_id = ?", cityID, categoryID).
		Order("vacancies.published_at DESC, vacancies.id DESC").
		Limit(limit).
		Find(&vacancies).Error
	return vacancies, err
}

// MarkProcessed stamps vacancies that have delivery records and no record left to attempt.
func (v *Vacancies) MarkProcessed(ctx context.Context, maxAttempts int) (int64, error) {
	res := v.db.WithContext(ctx).
		Model(&models.Vacancy{}).
		Where("processed_at IS NULL").
		Where("EXISTS (SELECT 1 FROM vacancy_chats vc WHERE vc.vacancy_id = vacancies.id)").
		Where("NOT EXISTS (SELECT 1 FROM vacancy_chats vc WHERE vc.vacancy_id = vacancies.id "+
			"AND vc.sent_at IS NULL AND vc.attempt < ?)", maxAttempts).
		Update("processed_at", time.Now())
	return res.RowsAffected, res.Error
}
