package gormstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dodje/logger"
	"dodje/models"
	"dodje/progression"
)

// CatalogRepo implements progression.CatalogRepository over the parcours,
// videos and quizzes tables. Soft-deleted rows are invisible.
type CatalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) *CatalogRepo {
	return &CatalogRepo{db: db, log: baseLog.With("repo", "CatalogRepo")}
}

func (r *CatalogRepo) GetParcours(ctx context.Context, id string) (*progression.CatalogParcours, error) {
	var row models.Parcours
	if err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).Take(&row).Error; err != nil {
		return nil, missing(err, "parcours", id)
	}
	out, err := r.withVideos(ctx, []models.Parcours{row})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (r *CatalogRepo) ListParcoursByGroup(ctx context.Context, domain, level string) ([]progression.CatalogParcours, error) {
	var rows []models.Parcours
	err := r.db.WithContext(ctx).
		Where("domain = ? AND level = ? AND is_deleted = ?", domain, level, false).
		Order("sort_order").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list parcours by group")
	}
	return r.withVideos(ctx, rows)
}

func (r *CatalogRepo) ListAllParcours(ctx context.Context) ([]progression.CatalogParcours, error) {
	var rows []models.Parcours
	err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("domain").Order("level").Order("sort_order").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list parcours")
	}
	return r.withVideos(ctx, rows)
}

func (r *CatalogRepo) GetVideo(ctx context.Context, id string) (*progression.CatalogVideo, error) {
	var row models.Video
	if err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).Take(&row).Error; err != nil {
		return nil, missing(err, "video", id)
	}
	v := catalogVideo(row)
	return &v, nil
}

func (r *CatalogRepo) ListVideosByParcours(ctx context.Context, parcoursID string) ([]progression.CatalogVideo, error) {
	var rows []models.Video
	err := r.db.WithContext(ctx).
		Where("parcours_id = ? AND is_deleted = ?", parcoursID, false).
		Order("sort_order").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list videos")
	}
	out := make([]progression.CatalogVideo, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalogVideo(row))
	}
	return out, nil
}

func (r *CatalogRepo) GetQuiz(ctx context.Context, id string) (*progression.CatalogQuiz, error) {
	var row models.Quiz
	if err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).Take(&row).Error; err != nil {
		return nil, missing(err, "quiz", id)
	}
	return &progression.CatalogQuiz{ID: row.ID, ParcoursID: row.ParcoursID, PassingScore: row.PassingScore}, nil
}

// Import upserts a parcours with its videos and quiz in one transaction. It
// backs the catalog import script.
func (r *CatalogRepo) Import(ctx context.Context, p models.Parcours, videos []models.Video, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if quiz != nil {
			quiz.ParcoursID = p.ID
			p.QuizID = quiz.ID
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&p).Error; err != nil {
			return errors.Wrapf(err, "upsert parcours %s", p.ID)
		}
		for i := range videos {
			videos[i].ParcoursID = p.ID
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&videos[i]).Error; err != nil {
				return errors.Wrapf(err, "upsert video %s", videos[i].ID)
			}
		}
		if quiz != nil {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(quiz).Error; err != nil {
				return errors.Wrapf(err, "upsert quiz %s", quiz.ID)
			}
		}
		r.log.Info("Imported parcours", "id", p.ID, "videos", len(videos))
		return nil
	})
}

func (r *CatalogRepo) withVideos(ctx context.Context, rows []models.Parcours) ([]progression.CatalogParcours, error) {
	out := make([]progression.CatalogParcours, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var videos []models.Video
	err := r.db.WithContext(ctx).
		Select("id", "parcours_id").
		Where("parcours_id IN ? AND is_deleted = ?", ids, false).
		Order("sort_order").Order("id").
		Find(&videos).Error
	if err != nil {
		return nil, errors.Wrap(err, "list parcours videos")
	}
	byParcours := make(map[string][]string, len(rows))
	for _, v := range videos {
		byParcours[v.ParcoursID] = append(byParcours[v.ParcoursID], v.ID)
	}
	for _, row := range rows {
		out = append(out, progression.CatalogParcours{
			ID:       row.ID,
			Domain:   row.Domain,
			Level:    row.Level,
			Order:    row.SortOrder,
			VideoIDs: byParcours[row.ID],
			QuizID:   row.QuizID,
		})
	}
	return out, nil
}

func catalogVideo(row models.Video) progression.CatalogVideo {
	return progression.CatalogVideo{ID: row.ID, ParcoursID: row.ParcoursID, Order: row.SortOrder, Duration: row.Duration}
}

func missing(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(progression.ErrNotFound, "%s %s", what, id)
	}
	return errors.Wrapf(err, "get %s %s", what, id)
}
