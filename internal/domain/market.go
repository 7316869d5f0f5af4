package domain

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeType distingue mercados binarios de mercados con varias respuestas.
type OutcomeType string

const (
	OutcomeBinary OutcomeType = "BINARY"
	OutcomeMulti  OutcomeType = "MULTI"
)

// Answer es una respuesta de un mercado MULTI.
type Answer struct {
	ID          string
	Label       string
	Probability float64 // clamped a [0, 1]
}

// Token es un outcome negociable en el CLOB (solo Polymarket).
type Token struct {
	TokenID string
	Outcome string
}

// CanonicalMarket es un mercado normalizado, independiente del venue de origen.
// Las probabilidades de las respuestas no tienen por qué sumar 1.
type CanonicalMarket struct {
	ID          string
	Question    string
	Slug        string
	URL         string
	OutcomeType OutcomeType
	Probability OptionalFloat // solo BINARY; ausente si ningún campo resolvió
	Answers     []Answer      // solo MULTI
	Liquidity   float64
	Volume24h   float64
	CloseTime   time.Time // zero = desconocido
	UpdatedAt   time.Time // zero = desconocido
	Resolved    bool
	Tokens      []Token
	NegRisk     bool
}

// IsBinary devuelve true para mercados YES/NO.
func (m CanonicalMarket) IsBinary() bool {
	return m.OutcomeType != OutcomeMulti
}

// Outcomes devuelve el vector de probabilidades por outcome.
// Para binarios se sintetiza {YES: p, NO: 1-p}; sin p conocida devuelve nil.
func (m CanonicalMarket) Outcomes() []Answer {
	if !m.IsBinary() {
		return m.Answers
	}
	if !m.Probability.Valid {
		return nil
	}
	p := Clamp01(m.Probability.Value)
	return []Answer{
		{Label: "YES", Probability: p},
		{Label: "NO", Probability: 1 - p},
	}
}

// MarkPrice resuelve el precio actual de un outcome. outcome puede ser un
// answer id o una etiqueta (case-insensitive).
func (m CanonicalMarket) MarkPrice(outcome string) OptionalFloat {
	key := strings.TrimSpace(outcome)
	if m.IsBinary() && m.Probability.Valid {
		p := Clamp01(m.Probability.Value)
		switch strings.ToUpper(key) {
		case "YES":
			return Some(p)
		case "NO":
			return Some(1 - p)
		}
	}
	if a, ok := m.FindAnswer(key); ok {
		return Some(a.Probability)
	}
	if m.IsBinary() {
		return m.Probability
	}
	return OptionalFloat{}
}

// FindAnswer busca una respuesta por id exacto o por texto sin distinguir mayúsculas.
func (m CanonicalMarket) FindAnswer(key string) (Answer, bool) {
	if key == "" {
		return Answer{}, false
	}
	for _, a := range m.Answers {
		if a.ID != "" && a.ID == key {
			return a, true
		}
	}
	for _, a := range m.Answers {
		if strings.EqualFold(strings.TrimSpace(a.Label), key) {
			return a, true
		}
	}
	return Answer{}, false
}

// TopAnswer devuelve la respuesta con mayor probabilidad.
func (m CanonicalMarket) TopAnswer() (Answer, bool) {
	var best Answer
	found := false
	for _, a := range m.Answers {
		if !found || a.Probability > best.Probability {
			best = a
			found = true
		}
	}
	return best, found
}

// ResolveAnswer busca una respuesta por id o texto. "top outcome" (o vacío)
// elige la respuesta más probable.
func (m CanonicalMarket) ResolveAnswer(label string) (Answer, error) {
	l := strings.TrimSpace(label)
	if l == "" || strings.EqualFold(l, "top outcome") {
		if a, ok := m.TopAnswer(); ok {
			return a, nil
		}
		return Answer{}, &ValidationError{Field: "outcome", Msg: "market " + m.ID + " has no answers"}
	}
	if a, ok := m.FindAnswer(l); ok {
		return a, nil
	}
	return Answer{}, &ValidationError{Field: "outcome", Msg: fmt.Sprintf("answer %q not found in market %s", label, m.ID)}
}

// DescribeOutcome devuelve la etiqueta legible de un outcome:
// YES/NO en binarios, el texto de la respuesta en MULTI.
func (m CanonicalMarket) DescribeOutcome(answerID, label string) string {
	if m.IsBinary() {
		return NormalizeLabel(label)
	}
	if a, ok := m.FindAnswer(answerID); ok {
		return a.Label
	}
	if a, ok := m.FindAnswer(strings.TrimSpace(label)); ok {
		return a.Label
	}
	if label != "" {
		return label
	}
	return answerID
}

// TokenFor devuelve el token id del outcome dado.
func (m CanonicalMarket) TokenFor(outcome string) (string, bool) {
	for _, t := range m.Tokens {
		if strings.EqualFold(strings.TrimSpace(t.Outcome), strings.TrimSpace(outcome)) {
			return t.TokenID, true
		}
	}
	return "", false
}

// ClosedAt devuelve true si el mercado ya pasó su fecha de cierre.
func (m CanonicalMarket) ClosedAt(now time.Time) bool {
	return !m.CloseTime.IsZero() && !now.Before(m.CloseTime)
}

// NormalizeLabel pasa una etiqueta de outcome a su forma canónica (trim + upper).
func NormalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
