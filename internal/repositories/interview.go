package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/sqlite"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.NewSentinel("interview not found")

// PersistenceError is returned for every failure of the interview store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s interview: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type InterviewRepository struct {
	readDB  *sqlx.DB
	writeDB *sqlx.DB
	logger  *slog.Logger
}

func NewInterviewRepository(db *sqlite.Database, logger *slog.Logger) *InterviewRepository {
	return &InterviewRepository{
		readDB:  sqlx.NewDb(db.ReadOnly, "sqlite3"),
		writeDB: sqlx.NewDb(db.ReadWrite, "sqlite3"),
		logger:  logger.With(slog.String("source", "InterviewRepository")),
	}
}

type interviewRow struct {
	ID          string         `db:"id"`
	CandidateID string         `db:"candidate_id"`
	Topic       string         `db:"topic"`
	Questions   string         `db:"questions"`
	Answers     string         `db:"answers"`
	Summary     sql.NullString `db:"summary"`
	Scores      sql.NullString `db:"scores"`
	Created     string         `db:"created"`
}

const selectInterview = `SELECT id, candidate_id, topic, questions, answers, summary, scores, created FROM interviews`

// Save stores a finished interview and returns it with its assigned identity and creation time.
func (r *InterviewRepository) Save(ctx context.Context, interview models.Interview) (models.Interview, error) {
	if interview.CandidateID == "" {
		return models.Interview{}, &PersistenceError{Op: "save", Err: errors.New("missing candidate id")}
	}
	if interview.ID == "" {
		interview.ID = uuid.NewString()
	}
	row, err := toRow(interview)
	if err != nil {
		return models.Interview{}, &PersistenceError{Op: "save", Err: err}
	}

	query, args, err := sqlx.Named(`INSERT INTO interviews (id, candidate_id, topic, questions, answers, summary, scores)
VALUES (:id, :candidate_id, :topic, :questions, :answers, :summary, :scores)
RETURNING created`, row)
	if err != nil {
		return models.Interview{}, &PersistenceError{Op: "save", Err: errors.Wrap(err, "bind named query")}
	}
	if err = r.writeDB.QueryRowxContext(ctx, query, args...).Scan(&row.Created); err != nil {
		return models.Interview{}, &PersistenceError{Op: "save",
			Err: errors.Wrap(err, "insert interview", slog.String("interview_id", interview.ID))}
	}
	if interview.Created, err = parseTimestamp(row.Created); err != nil {
		return models.Interview{}, &PersistenceError{Op: "save", Err: err}
	}

	r.logger.LogAttrs(ctx, slog.LevelInfo, "saved interview",
		slog.String("interview_id", interview.ID),
		slog.Int("answers", len(interview.Answers)),
		slog.Bool("evaluated", interview.Evaluation != nil))
	return interview, nil
}

// Get returns the interview with the given ID. A missing interview wraps [ErrNotFound].
func (r *InterviewRepository) Get(ctx context.Context, id string) (models.Interview, error) {
	var row interviewRow
	if err := r.readDB.GetContext(ctx, &row, selectInterview+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Interview{}, &PersistenceError{Op: "get",
				Err: errors.Wrap(ErrNotFound, "get interview", slog.String("interview_id", id))}
		}
		return models.Interview{}, &PersistenceError{Op: "get",
			Err: errors.Wrap(err, "select interview", slog.String("interview_id", id))}
	}
	interview, err := fromRow(row)
	if err != nil {
		return models.Interview{}, &PersistenceError{Op: "get", Err: err}
	}
	return interview, nil
}

// ListByCandidate returns the candidate's interviews, newest first.
func (r *InterviewRepository) ListByCandidate(ctx context.Context, candidateID string) ([]models.Interview, error) {
	var rows []interviewRow
	if err := r.readDB.SelectContext(ctx, &rows,
		selectInterview+` WHERE candidate_id = ? ORDER BY created DESC, id`, candidateID); err != nil {
		return nil, &PersistenceError{Op: "list", Err: errors.Wrap(err, "select interviews")}
	}
	interviews := make([]models.Interview, 0, len(rows))
	for _, row := range rows {
		interview, err := fromRow(row)
		if err != nil {
			return nil, &PersistenceError{Op: "list", Err: err}
		}
		interviews = append(interviews, interview)
	}
	return interviews, nil
}

// Count returns the number of stored interviews.
func (r *InterviewRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.readDB.GetContext(ctx, &count, `SELECT COUNT(*) FROM interviews`); err != nil {
		return 0, &PersistenceError{Op: "count", Err: errors.Wrap(err, "count interviews")}
	}
	return count, nil
}

// Ping checks that both connection pools reach the database.
func (r *InterviewRepository) Ping(ctx context.Context) error {
	if err := r.readDB.PingContext(ctx); err != nil {
		return &PersistenceError{Op: "ping", Err: errors.Wrap(err, "ping read database")}
	}
	if err := r.writeDB.PingContext(ctx); err != nil {
		return &PersistenceError{Op: "ping", Err: errors.Wrap(err, "ping read-write database")}
	}
	return nil
}

func toRow(interview models.Interview) (interviewRow, error) {
	questions := interview.Questions
	if questions == nil {
		questions = []string{}
	}
	answers := interview.Answers
	if answers == nil {
		answers = []models.Answer{}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return interviewRow{}, errors.Wrap(err, "marshal questions")
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return interviewRow{}, errors.Wrap(err, "marshal answers")
	}
	row := interviewRow{
		ID:          interview.ID,
		CandidateID: interview.CandidateID,
		Topic:       interview.Topic,
		Questions:   string(questionsJSON),
		Answers:     string(answersJSON),
	}
	if interview.Evaluation != nil {
		scoresJSON, err := json.Marshal(interview.Evaluation.Scores)
		if err != nil {
			return interviewRow{}, errors.Wrap(err, "marshal scores")
		}
		row.Summary = sql.NullString{String: interview.Evaluation.Summary, Valid: true}
		row.Scores = sql.NullString{String: string(scoresJSON), Valid: true}
	}
	return row, nil
}

func fromRow(row interviewRow) (models.Interview, error) {
	interview := models.Interview{
		ID:          row.ID,
		CandidateID: row.CandidateID,
		Topic:       row.Topic,
	}
	if err := json.Unmarshal([]byte(row.Questions), &interview.Questions); err != nil {
		return models.Interview{}, errors.Wrap(err, "unmarshal questions", slog.String("interview_id", row.ID))
	}
	if err := json.Unmarshal([]byte(row.Answers), &interview.Answers); err != nil {
		return models.Interview{}, errors.Wrap(err, "unmarshal answers", slog.String("interview_id", row.ID))
	}
	if row.Scores.Valid {
		evaluation := models.Evaluation{Summary: row.Summary.String}
		if err := json.Unmarshal([]byte(row.Scores.String), &evaluation.Scores); err != nil {
			return models.Interview{}, errors.Wrap(err, "unmarshal scores", slog.String("interview_id", row.ID))
		}
		interview.Evaluation = &evaluation
	}
	created, err := parseTimestamp(row.Created)
	if err != nil {
		return models.Interview{}, err
	}
	interview.Created = created
	return interview, nil
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse timestamp", slog.String("value", value))
	}
	return t, nil
}
