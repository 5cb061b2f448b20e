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

// StatusRepo implements progression.StatusStore with one table per kind.
type StatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatusRepo(db *gorm.DB, baseLog *logger.Logger) *StatusRepo {
	return &StatusRepo{db: db, log: baseLog.With("repo", "StatusRepo")}
}

func (r *StatusRepo) Get(ctx context.Context, userID string, kind progression.Kind, id string) (*progression.Record, error) {
	rec, err := r.load(r.db.WithContext(ctx), userID, kind, id, false)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %s", kind, id)
	}
	return rec, nil
}

// UpsertMerge reads, merges and writes the record inside one transaction with
// the row locked, so Previous is exact even under concurrent writers. A missing
// row cannot be locked: the first write only inserts, and losing that insert to
// another writer reruns the transaction against the now existing row.
func (r *StatusRepo) UpsertMerge(ctx context.Context, userID string, kind progression.Kind, id string, m progression.Mutation) (progression.WriteResult, error) {
	var (
		out progression.WriteResult
		err error
	)
	for try := 0; try < maxInsertRetries; try++ {
		out, err = r.upsertOnce(ctx, userID, kind, id, m)
		if !errors.Is(err, errInsertRace) {
			break
		}
		r.log.Debug("Concurrent first write, retrying", "kind", kind, "id", id, "try", try+1)
	}
	if err != nil {
		r.log.Warn("Upsert failed", "kind", kind, "id", id, "error", err)
		return progression.WriteResult{}, errors.Wrapf(err, "upsert %s %s", kind, id)
	}
	return out, nil
}

func (r *StatusRepo) upsertOnce(ctx context.Context, userID string, kind progression.Kind, id string, m progression.Mutation) (progression.WriteResult, error) {
	var out progression.WriteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.load(tx, userID, kind, id, true)
		if err != nil {
			return err
		}
		fresh := rec == nil
		if fresh {
			rec = &progression.Record{UserID: userID, Kind: kind, EntityID: id}
		} else {
			out.Previous = rec.Status
		}

		stored := 0
		if rec.Quiz != nil {
			stored = len(rec.Quiz.Attempts)
		}
		if progression.ApplyMutation(rec, m) {
			if err := r.save(tx, rec, stored, fresh); err != nil {
				return err
			}
		}
		out.Record = *rec
		return nil
	})
	return out, err
}

// QueryByField lists the user's records of kind whose field equals value,
// sorted by entity id. Quiz records carry the summary but not the attempt log.
func (r *StatusRepo) QueryByField(ctx context.Context, userID string, kind progression.Kind, field progression.Field, value string) ([]progression.Record, error) {
	col, err := column(kind, field)
	if err != nil {
		return nil, err
	}
	if col == "" {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Where(col+" = ?", value)

	var out []progression.Record
	switch kind {
	case progression.KindParcours:
		var rows []models.UserParcoursStatus
		if err := q.Order("parcours_id").Find(&rows).Error; err != nil {
			return nil, errors.Wrap(err, "query parcours statuses")
		}
		for _, row := range rows {
			out = append(out, *parcoursRecord(row))
		}
	case progression.KindVideo:
		var rows []models.UserVideoStatus
		if err := q.Order("video_id").Find(&rows).Error; err != nil {
			return nil, errors.Wrap(err, "query video statuses")
		}
		for _, row := range rows {
			rec, err := videoRecord(row)
			if err != nil {
				return nil, err
			}
			out = append(out, *rec)
		}
	case progression.KindQuiz:
		var rows []models.UserQuizStatus
		if err := q.Order("quiz_id").Find(&rows).Error; err != nil {
			return nil, errors.Wrap(err, "query quiz statuses")
		}
		for _, row := range rows {
			rec, err := quizRecord(row, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, *rec)
		}
	}
	return out, nil
}

// column maps a field to its column. An empty column with a nil error means
// the kind has no such attribute and nothing can match.
func column(kind progression.Kind, field progression.Field) (string, error) {
	if !kind.Valid() {
		return "", errors.Errorf("unknown kind %q", kind)
	}
	switch field {
	case progression.FieldParcoursID:
		return "parcours_id", nil
	case progression.FieldStatus:
		return "status", nil
	case progression.FieldDomain:
		if kind == progression.KindParcours {
			return "domain", nil
		}
		return "", nil
	}
	return "", errors.Errorf("unsupported field %q", field)
}

func (r *StatusRepo) load(tx *gorm.DB, userID string, kind progression.Kind, id string, lock bool) (*progression.Record, error) {
	q := tx
	if lock {
		q = forUpdate(tx)
	}
	switch kind {
	case progression.KindParcours:
		var row models.UserParcoursStatus
		if err := q.Where("user_id = ? AND parcours_id = ?", userID, id).Take(&row).Error; err != nil {
			return nil, notFoundAsNil(err)
		}
		return parcoursRecord(row), nil
	case progression.KindVideo:
		var row models.UserVideoStatus
		if err := q.Where("user_id = ? AND video_id = ?", userID, id).Take(&row).Error; err != nil {
			return nil, notFoundAsNil(err)
		}
		return videoRecord(row)
	case progression.KindQuiz:
		var row models.UserQuizStatus
		if err := q.Where("user_id = ? AND quiz_id = ?", userID, id).Take(&row).Error; err != nil {
			return nil, notFoundAsNil(err)
		}
		var attempts []models.QuizAttempt
		if err := tx.Where("user_id = ? AND quiz_id = ?", userID, id).Order("id").Find(&attempts).Error; err != nil {
			return nil, err
		}
		return quizRecord(row, attempts)
	}
	return nil, errors.Errorf("unknown kind %q", kind)
}

// save writes rec back. A fresh record is inserted only if no row exists yet;
// otherwise the locked row is overwritten with the merged values. Attempts past
// index stored are new and get inserted.
func (r *StatusRepo) save(tx *gorm.DB, rec *progression.Record, stored int, fresh bool) error {
	write := func(row interface{}) error {
		if !fresh {
			return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInsertRace
		}
		return nil
	}
	switch rec.Kind {
	case progression.KindParcours:
		row := parcoursRow(*rec)
		return write(&row)
	case progression.KindVideo:
		row, err := videoRow(*rec)
		if err != nil {
			return err
		}
		return write(&row)
	case progression.KindQuiz:
		row := quizRow(*rec)
		if err := write(&row); err != nil {
			return err
		}
		if rec.Quiz != nil {
			for _, a := range rec.Quiz.Attempts[stored:] {
				row, err := attemptRow(rec.UserID, rec.EntityID, a)
				if err != nil {
					return err
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	}
	return errors.Errorf("unknown kind %q", rec.Kind)
}
