package export

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
)

func sampleRecords() []quiz.AnswerRecord {
	mk := func(idx int, id, text string, correct int, opts ...string) quiz.AnswerRecord {
		q := quiz.Question{Index: idx, ID: id, Text: text}
		for _, o := range opts {
			q.Options = append(q.Options, quiz.Option{Text: o})
		}
		return quiz.NewRecord(q, correct)
	}
	return []quiz.AnswerRecord{
		mk(0, "1", "Pregunta uno", 1, "A-opt", "B-opt"),
		mk(1, "2", "¿Señalización «correcta»?", 2, "Sí", "No", "Depende, según el árbitro"),
		mk(2, "3", "Sin resolver", quiz.Unresolved, "x", "y"),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"idx,id_pregunta,pregunta,A,B,C,correcta,correcta_texto",
		"0,1,Pregunta uno,A-opt,B-opt,,B,B-opt",
		`1,2,¿Señalización «correcta»?,Sí,No,"Depende, según el árbitro",C,"Depende, según el árbitro"`,
	}, lines)
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	require.Equal(t, "idx,id_pregunta,pregunta,correcta,correcta_texto\n", buf.String())
}

func TestWriteJSONLoadsAsBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRecords()))
	require.NotContains(t, buf.String(), `\u00`)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	b := questionbank.New(nil)
	skipped, err := b.Load(path)
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Equal(t, sampleRecords()[:2], b.Records())
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"idx", "id_pregunta", "pregunta", "A", "B", "C", "correcta", "correcta_texto"}, rows[0])
	require.Equal(t, "¿Señalización «correcta»?", rows[2][2])
	require.Equal(t, "C", rows[2][6])
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	ctx := context.Background()
	require.NoError(t, WriteSQLite(ctx, path, sampleRecords()))
	// A second export replaces the first.
	require.NoError(t, WriteSQLite(ctx, path, sampleRecords()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var questions, options int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&questions))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM options`).Scan(&options))
	require.Equal(t, 2, questions)
	require.Equal(t, 5, options)

	var letter, text string
	require.NoError(t, db.QueryRow(`SELECT correcta, correcta_texto FROM questions WHERE id_pregunta = ?`, "1").Scan(&letter, &text))
	require.Equal(t, "B", letter)
	require.Equal(t, "B-opt", text)
}
