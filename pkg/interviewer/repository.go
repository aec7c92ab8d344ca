package interviewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrInterviewerNotFound = errors.New("interviewer not found")
var ErrProfileExists = errors.New("user already has an interviewer profile")
var ErrTagExists = errors.New("tag with this name or slug already exists")

type Repository interface {
	// ListActive returns active interviewers, newest first. A limit of 0
	// returns all of them.
	ListActive(ctx context.Context, filter Filter, limit int) ([]Interviewer, error)
	Get(ctx context.Context, id int) (Interviewer, error)
	GetByUserId(ctx context.Context, userId int) (Interviewer, error)
	Create(ctx context.Context, interviewer Interviewer) (int, error)
	UpdateProfile(ctx context.Context, id int, update ProfileUpdate) error
	ListTags(ctx context.Context, kind TagKind) ([]Tag, error)
	CreateTag(ctx context.Context, kind TagKind, tag Tag) (Tag, error)
}

type tagTables struct {
	table     string
	joinTable string
	column    string
}

var tables = map[TagKind]tagTables{
	TechnologyTag: {table: "technology", joinTable: "interviewer_technology", column: "technology_id"},
	SubjectTag:    {table: "interview_subject", joinTable: "interviewer_subject", column: "subject_id"},
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectInterviewer = `SELECT i.id, i.user_id, u.username, u.first_name, u.last_name, u.email,
		i.bio, i.photo_key, i.cal_event_type_id, i.hourly_rate_cents, i.is_active, i.companies,
		i.created_at, i.updated_at
	FROM interviewer i
	JOIN users u ON u.id = i.user_id`

func scanInterviewer(row pgx.Row) (Interviewer, error) {
	var i Interviewer
	err := row.Scan(&i.Id, &i.UserId, &i.Username, &i.FirstName, &i.LastName, &i.Email,
		&i.Bio, &i.PhotoKey, &i.CalEventTypeId, &i.HourlyRateCents, &i.IsActive, &i.Companies,
		&i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (r *RepositoryImpl) ListActive(ctx context.Context, filter Filter, limit int) ([]Interviewer, error) {
	query := selectInterviewer + `
	WHERE i.is_active
	  AND ($1 = '' OR EXISTS (SELECT 1 FROM interviewer_technology it
			JOIN technology t ON t.id = it.technology_id
			WHERE it.interviewer_id = i.id AND t.slug = $1))
	  AND ($2 = '' OR EXISTS (SELECT 1 FROM interviewer_subject isub
			JOIN interview_subject s ON s.id = isub.subject_id
			WHERE isub.interviewer_id = i.id AND s.slug = $2))
	ORDER BY i.created_at DESC, i.id DESC`

	args := []any{filter.TechnologySlug, filter.SubjectSlug}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to list interviewers: %v", err)
		return nil, fmt.Errorf("could not list interviewers: %w", err)
	}
	interviewers := make([]Interviewer, 0)
	for rows.Next() {
		i, err := scanInterviewer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("could not scan interviewer: %w", err)
		}
		interviewers = append(interviewers, i)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadTags(ctx, interviewers); err != nil {
		return nil, err
	}
	return interviewers, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Interviewer, error) {
	return r.getOne(ctx, selectInterviewer+" WHERE i.id = $1", id)
}

func (r *RepositoryImpl) GetByUserId(ctx context.Context, userId int) (Interviewer, error) {
	return r.getOne(ctx, selectInterviewer+" WHERE i.user_id = $1", userId)
}

func (r *RepositoryImpl) getOne(ctx context.Context, query string, arg int) (Interviewer, error) {
	i, err := scanInterviewer(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Interviewer{}, ErrInterviewerNotFound
	}
	if err != nil {
		return Interviewer{}, fmt.Errorf("could not get interviewer: %w", err)
	}
	list := []Interviewer{i}
	if err := r.loadTags(ctx, list); err != nil {
		return Interviewer{}, err
	}
	return list[0], nil
}

func (r *RepositoryImpl) loadTags(ctx context.Context, interviewers []Interviewer) error {
	if len(interviewers) == 0 {
		return nil
	}
	ids := make([]int64, len(interviewers))
	index := make(map[int]int, len(interviewers))
	for n, i := range interviewers {
		ids[n] = int64(i.Id)
		index[i.Id] = n
	}

	for _, kind := range []TagKind{TechnologyTag, SubjectTag} {
		t := tables[kind]
		query := fmt.Sprintf(`SELECT j.interviewer_id, t.id, t.name, t.slug
			FROM %s j JOIN %s t ON t.id = j.%s
			WHERE j.interviewer_id = ANY($1)
			ORDER BY t.name`, t.joinTable, t.table, t.column)
		rows, err := r.db.Query(ctx, query, ids)
		if err != nil {
			return fmt.Errorf("could not load %s tags: %w", kind, err)
		}
		for rows.Next() {
			var interviewerId int
			var tag Tag
			if err := rows.Scan(&interviewerId, &tag.Id, &tag.Name, &tag.Slug); err != nil {
				rows.Close()
				return fmt.Errorf("could not scan %s tag: %w", kind, err)
			}
			n := index[interviewerId]
			if kind == TechnologyTag {
				interviewers[n].Technologies = append(interviewers[n].Technologies, tag)
			} else {
				interviewers[n].Subjects = append(interviewers[n].Subjects, tag)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RepositoryImpl) Create(ctx context.Context, interviewer Interviewer) (int, error) {
	var id int
	err := r.db.QueryRow(ctx,
		`INSERT INTO interviewer (user_id, bio, photo_key, cal_event_type_id, hourly_rate_cents, is_active, companies)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		interviewer.UserId,
		interviewer.Bio,
		interviewer.PhotoKey,
		interviewer.CalEventTypeId,
		interviewer.HourlyRateCents,
		interviewer.IsActive,
		interviewer.Companies,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrProfileExists
		}
		log.Errorf("failed to create interviewer: %v", err)
		return 0, fmt.Errorf("could not create interviewer: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE interviewer SET bio = $2, companies = $3, hourly_rate_cents = $4,
			photo_key = CASE WHEN $5 = '' THEN photo_key ELSE $5 END,
			updated_at = now()
		WHERE id = $1`,
		id, update.Bio, update.Companies, update.HourlyRateCents, update.PhotoKey,
	)
	if err != nil {
		return fmt.Errorf("could not update interviewer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInterviewerNotFound
	}

	sets := map[TagKind][]int{TechnologyTag: update.TechnologyIds, SubjectTag: update.SubjectIds}
	for _, kind := range []TagKind{TechnologyTag, SubjectTag} {
		t := tables[kind]
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE interviewer_id = $1", t.joinTable), id); err != nil {
			return fmt.Errorf("could not clear %s tags: %w", kind, err)
		}
		if len(sets[kind]) == 0 {
			continue
		}
		tagIds := make([]int64, len(sets[kind]))
		for n, tagId := range sets[kind] {
			tagIds[n] = int64(tagId)
		}
		// Unknown ids are skipped by the join against the tag table.
		query := fmt.Sprintf(`INSERT INTO %s (interviewer_id, %s)
			SELECT $1, id FROM %s WHERE id = ANY($2)
			ON CONFLICT DO NOTHING`, t.joinTable, t.column, t.table)
		if _, err := tx.Exec(ctx, query, id, tagIds); err != nil {
			return fmt.Errorf("could not set %s tags: %w", kind, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *RepositoryImpl) ListTags(ctx context.Context, kind TagKind) ([]Tag, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT id, name, slug FROM %s ORDER BY name", tables[kind].table))
	if err != nil {
		return nil, fmt.Errorf("could not list %s tags: %w", kind, err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.Id, &tag.Name, &tag.Slug); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *RepositoryImpl) CreateTag(ctx context.Context, kind TagKind, tag Tag) (Tag, error) {
	query := fmt.Sprintf("INSERT INTO %s (name, slug) VALUES ($1, $2) RETURNING id", tables[kind].table)
	err := r.db.QueryRow(ctx, query, tag.Name, tag.Slug).Scan(&tag.Id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Tag{}, ErrTagExists
		}
		return Tag{}, fmt.Errorf("could not create %s tag: %w", kind, err)
	}
	return tag, nil
}
