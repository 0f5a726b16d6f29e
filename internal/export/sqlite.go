package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
    key TEXT PRIMARY KEY,
    idx INTEGER NOT NULL,
    id_pregunta TEXT,
    pregunta TEXT NOT NULL,
    correcta TEXT NOT NULL,
    correcta_texto TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS options (
    question_key TEXT NOT NULL,
    position INTEGER NOT NULL,
    letter TEXT NOT NULL,
    text TEXT NOT NULL,
    PRIMARY KEY (question_key, position),
    FOREIGN KEY (question_key) REFERENCES questions(key) ON DELETE CASCADE
);
`

// WriteSQLite replaces the content of the database at path with the
// resolved records.
func WriteSQLite(ctx context.Context, path string, recs []quiz.AnswerRecord) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM options", "DELETE FROM questions"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, r := range Resolved(recs) {
		key := questionbank.Key(r.Question)
		var id any
		if r.Question.ID != "" {
			id = r.Question.ID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO questions (key, idx, id_pregunta, pregunta, correcta, correcta_texto) VALUES (?, ?, ?, ?, ?, ?)`,
			key, r.Question.Index, id, r.Question.Text, r.Letter(), r.CorrectText); err != nil {
			return fmt.Errorf("insert question %s: %w", r.Question.Label(), err)
		}
		for pos, o := range r.Question.Options {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO options (question_key, position, letter, text) VALUES (?, ?, ?, ?)`,
				key, pos, quiz.Letter(pos), o.Text); err != nil {
				return fmt.Errorf("insert option %s of %s: %w", quiz.Letter(pos), r.Question.Label(), err)
			}
		}
	}
	return tx.Commit()
}
