package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	log "github.com/sirupsen/logrus"
	"iter"
)

type vacancyRepository interface {
	FindOrCreate(ctx context.Context, vacancy models.Vacancy) (*models.Vacancy, error)
	AddParameters(ctx context.Context, vacancyID, cityID, categoryID int) (bool, error)
}

type VacancyStore struct {
	vacancies vacancyRepository
}

func NewVacancyStore(vacancies vacancyRepository) *VacancyStore {
	return &VacancyStore{vacancies: vacancies}
}

// Ingest stores the feed for the pair and returns the vacancies linked to it by this call.
// The feed is newest first, so the first vacancy already linked to the pair means the rest
// of the feed was seen before and ingestion stops.
func (s *VacancyStore) Ingest(ctx context.Context, city models.City, category models.Category,
	vacancies iter.Seq[models.Vacancy]) ([]models.Vacancy, error) {

	var linked []models.Vacancy

	for vacancy := range vacancies {

		stored, err := s.vacancies.FindOrCreate(ctx, vacancy)
		if err != nil {
			return linked, fmt.Errorf("failed to store vacancy %s: %w", vacancy.URL, err)
		}

		created, err := s.vacancies.AddParameters(ctx, stored.ID, city.ID, category.ID)
		if err != nil {
			return linked, fmt.Errorf("failed to link vacancy %s: %w", vacancy.URL, err)
		}

		if !created {
			log.Debugf("vacancy %s already known for %s/%s, skipping the rest of the feed",
				stored.URL, city.Name, category.Name)
			break
		}

		metrics.IngestedVacanciesCounter.Inc()
		linked = append(linked, *stored)
	}

	return linked, nil
}
