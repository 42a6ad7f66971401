package domain

import (
	"errors"
	"strings"
)

var ErrInvalidCharacterID = errors.New("character id must not be empty")

// CharacterID identifica a un personaje. Se compara por el string subyacente,
// por lo que puede usarse directamente como clave de map.
type CharacterID struct {
	value string
}

// NewCharacterID valida y construye un CharacterID.
func NewCharacterID(value string) (CharacterID, error) {
	if strings.TrimSpace(value) == "" {
		return CharacterID{}, ErrInvalidCharacterID
	}
	return CharacterID{value: value}, nil
}

// MustCharacterID es como NewCharacterID pero entra en panic ante un id invalido.
// Pensado para constantes de datos y tests.
func MustCharacterID(value string) CharacterID {
	id, err := NewCharacterID(value)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseCharacterIDs convierte una lista de strings, fallando con el primer id invalido.
func ParseCharacterIDs(values []string) ([]CharacterID, error) {
	ids := make([]CharacterID, 0, len(values))
	for _, v := range values {
		id, err := NewCharacterID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (id CharacterID) Value() string { return id.value }

func (id CharacterID) String() string { return id.value }

func (id CharacterID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

func (id *CharacterID) UnmarshalText(text []byte) error {
	parsed, err := NewCharacterID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsZero indica si el id no fue construido con NewCharacterID.
func (id CharacterID) IsZero() bool { return id.value == "" }
