package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"psp.com/arbitro-quiz/internal/quiz"
)

var (
	hiddenIDRe   = regexp.MustCompile(`^id(\d+)$`)
	scoreRe      = regexp.MustCompile(`(?i)Tienes\s+(\d+)\s+aciertos\s+sobre\s+(\d+)`)
	numberedRe   = regexp.MustCompile(`^(\d+)\)`)
	disclosureRe = regexp.MustCompile(`(?i)Respuesta\s+correcta`)
	trailingRef  = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
)

// ParseQuiz extracts the questions of a generated quiz page. A row whose
// question has no options is left out and reported in skipped.
// A page without any question fails with ErrNoQuestions.
func ParseQuiz(markup string) (questions []quiz.Question, skipped []error, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, nil, &ParseError{What: "quiz page", Err: err}
	}

	seen := map[int]bool{}
	doc.Find("input[type=hidden]").Each(func(_ int, hid *goquery.Selection) {
		name, _ := hid.Attr("name")
		m := hiddenIDRe.FindStringSubmatch(name)
		if m == nil {
			return
		}
		idx, _ := strconv.Atoi(m[1])
		if seen[idx] {
			return
		}
		seen[idx] = true

		id, _ := hid.Attr("value")
		row := hid.Closest("tr")
		q := quiz.Question{
			Index: idx,
			ID:    strings.TrimSpace(id),
			Text:  collapse(row.Find("b").First().Text()),
		}

		radios := fmt.Sprintf("input[type=radio][name='opcion%d']", idx)
		sel := row.Find(radios)
		if sel.Length() == 0 {
			sel = doc.Find(radios)
		}
		sel.Each(func(_ int, r *goquery.Selection) {
			val, _ := r.Attr("value")
			q.Options = append(q.Options, quiz.Option{Text: optionText(r), Value: strings.TrimSpace(val)})
		})

		if len(q.Options) == 0 {
			skipped = append(skipped, &ParseError{What: fmt.Sprintf("options of question %s", q.Label())})
			return
		}
		questions = append(questions, q)
	})

	if len(questions) == 0 {
		return nil, skipped, &ParseError{What: "quiz page", Err: ErrNoQuestions}
	}
	return questions, skipped, nil
}

// optionText joins the text that follows a radio button up to the next <br>.
func optionText(radio *goquery.Selection) string {
	var parts []string
	for n := radio.Get(0).NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && (n.Data == "br" || n.Data == "input") {
			break
		}
		switch n.Type {
		case html.TextNode:
			parts = append(parts, n.Data)
		case html.ElementNode:
			parts = append(parts, goquery.NewDocumentFromNode(n).Text())
		}
	}
	return collapse(strings.Join(parts, " "))
}

// ParseOutcome reads the aggregate score and the disclosed correct answers
// from a result page. Disclosures are keyed by question index, the page
// numbers questions from 1.
func ParseOutcome(markup string) (quiz.Outcome, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return quiz.Outcome{}, &ParseError{What: "result page", Err: err}
	}

	m := scoreRe.FindStringSubmatch(doc.Text())
	if m == nil {
		return quiz.Outcome{}, &ParseError{What: "score", Err: ErrScoreMissing}
	}
	score, _ := strconv.Atoi(m[1])
	total, _ := strconv.Atoi(m[2])

	out := quiz.Outcome{Score: score, Total: total, Disclosed: map[int]string{}}
	current, pending := -1, false
	doc.Find("b, u, i").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		switch goquery.NodeName(s) {
		case "b":
			if m := numberedRe.FindStringSubmatch(text); m != nil {
				n, _ := strconv.Atoi(m[1])
				current, pending = n-1, false
			}
		case "u":
			if current >= 0 && disclosureRe.MatchString(text) {
				pending = true
			}
		case "i":
			if pending {
				if t := strings.TrimSpace(trailingRef.ReplaceAllString(text, "")); t != "" {
					out.Disclosed[current] = t
				}
				current, pending = -1, false
			}
		}
	})
	return out, nil
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }
