package domain

import (
	"encoding/json"
	"strconv"
)

// OptionalFloat es un float64 que puede no existir.
// Un precio desconocido se representa con Valid=false, nunca con un 0.0 "real".
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Some envuelve un valor presente.
func Some(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Valid: true}
}

// Or devuelve el valor si existe, o def.
func (o OptionalFloat) Or(def float64) float64 {
	if o.Valid {
		return o.Value
	}
	return def
}

// Format formatea con el verbo dado o "-" si está ausente.
func (o OptionalFloat) Format(prec int) string {
	if !o.Valid {
		return "-"
	}
	return strconv.FormatFloat(o.Value, 'f', prec, 64)
}

// MarshalJSON serializa ausente como null.
func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON acepta null o un número.
func (o *OptionalFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptionalFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Clamp01 limita p al intervalo [0, 1].
func Clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
