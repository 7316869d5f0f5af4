package domain

import "time"

// RawFillRecord es un trade/bet histórico tal como lo devuelve el venue.
// Es inmutable una vez leído.
type RawFillRecord struct {
	ID           string
	MarketID     string
	OutcomeLabel string
	AnswerID     string    // solo mercados MULTI
	Shares       float64   // magnitud, >= 0
	SignedAmount float64   // > 0 compra, < 0 venta
	Timestamp    time.Time // zero = desconocido
}

// OutcomeKey es el answer id si existe, o la etiqueta normalizada.
func (f RawFillRecord) OutcomeKey() string {
	if f.AnswerID != "" {
		return f.AnswerID
	}
	return NormalizeLabel(f.OutcomeLabel)
}

// Skip registra un registro descartado y el motivo.
type Skip struct {
	Record string
	Reason string
}
