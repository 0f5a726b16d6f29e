// Package quiztest serves an in-process imitation of the anonymous quiz site.
// Tests point a scraper.Client at it to exercise the whole pipeline.
package quiztest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/encoding/charmap"
)

const cookieName = "PHPSESSID"

// Question is one question of the site's bank with its answer key.
type Question struct {
	ID      string
	Text    string
	Options []string
	Correct int
}

// Site is a scripted quiz site. Fields may be set before the server starts.
type Site struct {
	Questions []Question
	// Disclose makes the result page reveal the correct text of missed questions.
	Disclose bool
	// Hide lists question positions whose disclosure is suppressed even when missed.
	Hide map[int]bool
	// Latin1 serves every page encoded as ISO-8859-1.
	Latin1 bool
	// Adjust rewrites the score of the n-th grading request (1-based).
	Adjust func(n, score int) int
	// Fail makes the n-th grading request answer with the returned status when non-zero.
	Fail func(n int) int

	mu       sync.Mutex
	sessions int
	grades   int
	answers  [][]int
}

// Start serves site on an httptest server closed at the end of the test.
// The returned URL is the base URL expected by scraper.NewClient.
func Start(t testing.TB, site *Site) string {
	t.Helper()
	srv := httptest.NewServer(site.Router())
	t.Cleanup(srv.Close)
	return srv.URL + "/Tests"
}

// Router exposes the three pages of the anonymous quiz flow.
func (s *Site) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/Tests", func(r chi.Router) {
		r.Get("/configurarTestAnonimo.php", s.handleConfig)
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/mostrarTestAnonimo.php", s.handleQuiz)
			r.Post("/testAnonimo2.php", s.handleGrade)
		})
	})
	return r
}

// Sessions is the number of sessions opened so far.
func (s *Site) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Grades is the number of grading requests received so far.
func (s *Site) Grades() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grades
}

// Submitted returns the positions chosen in the n-th grading request (1-based).
func (s *Site) Submitted(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > len(s.answers) {
		return nil
	}
	return s.answers[n-1]
}

// OptionValue is the form value of option pos of question idx.
func OptionValue(idx, pos int) string { return strconv.Itoa(1000*(idx+1) + pos) }

func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(cookieName); err != nil {
			http.Error(w, "sesión caducada", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Site) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.sessions++
	id := "sess" + strconv.Itoa(s.sessions)
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: id, Path: "/"})
	s.write(w, `<html><body><form action="mostrarTestAnonimo.php?ins=0" method="post">
<select name="tipo"><option value="testArb">Árbitros</option><option value="testOf">Oficiales</option></select>
</form></body></html>`)
}

func (s *Site) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString(`<html><body><table><tr><td><table><form method="post" action="testAnonimo2.php?ins=0">`)
	for i, q := range s.Questions {
		fmt.Fprintf(&b, `<tr><td><input type="hidden" name="id%d" value="%s"><b>%s</b><br>`, i, html.EscapeString(q.ID), html.EscapeString(q.Text))
		for pos, o := range q.Options {
			fmt.Fprintf(&b, "\n<input type=\"radio\" name=\"opcion%d\" value=\"%s\"> %s<br>", i, OptionValue(i, pos), html.EscapeString(o))
		}
		b.WriteString("</td></tr>\n")
	}
	b.WriteString(`<tr><td><input type="submit" name="enviar" value="Corregir test"></td></tr></form></table></td></tr></table></body></html>`)
	s.write(w, b.String())
}

func (s *Site) handleGrade(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.grades++
	n := s.grades
	chosen := make([]int, len(s.Questions))
	for i := range s.Questions {
		chosen[i] = -1
		for pos := range s.Questions[i].Options {
			if r.PostForm.Get(fmt.Sprintf("opcion%d", i)) == OptionValue(i, pos) {
				chosen[i] = pos
			}
		}
	}
	s.answers = append(s.answers, chosen)
	s.mu.Unlock()

	if s.Fail != nil {
		if status := s.Fail(n); status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
	}

	score := 0
	for i, q := range s.Questions {
		if chosen[i] == q.Correct {
			score++
		}
	}
	if s.Adjust != nil {
		score = s.Adjust(n, score)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h2>Resultado</h2><p>Tienes <b>%d</b> aciertos sobre <b>%d</b></p><hr>`, score, len(s.Questions))
	for i, q := range s.Questions {
		fmt.Fprintf(&b, "\n<p><b>%d) %s</b><br>", i+1, html.EscapeString(q.Text))
		if chosen[i] != q.Correct && s.Disclose && !s.Hide[i] {
			fmt.Fprintf(&b, `<u>Respuesta correcta:</u> <i>%s (ART. %d)</i>`, html.EscapeString(q.Options[q.Correct]), i+1)
		}
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	s.write(w, b.String())
}

func (s *Site) write(w http.ResponseWriter, page string) {
	if !s.Latin1 {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
		return
	}
	encoded, err := charmap.ISO8859_1.NewEncoder().String(page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
	_, _ = w.Write([]byte(encoded))
}
