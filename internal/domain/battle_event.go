package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownBattleEvent = errors.New("unknown battle event")

// BattleEventType es el motivo de combate que altera relaciones.
type BattleEventType int

const (
	BattleCooperation BattleEventType = iota
	BattleFriendlyFire
	// BattleProtection: el protector gana +12, el protegido +25.
	BattleProtection
	BattleRivalry
	BattleSupport
)

// Magnitudes fijas de los eventos de combate.
const (
	largePositiveChange         = 25
	largeNegativeChange         = -25
	smallPositiveChange         = 12
	smallNegativeChange         = -12
	protectionBeneficiaryChange = 25
	protectionProtectorChange   = 12
)

// Motivos registrados en los eventos de cambio de nivel.
const (
	ReasonCooperation  = "協力行動"
	ReasonFriendlyFire = "誤射"
	ReasonProtecting   = "保護行動"
	ReasonProtected    = "保護された"
	ReasonRivalry      = "対立"
	ReasonSupport      = "支援"
)

var battleEventNames = map[BattleEventType]string{
	BattleCooperation:  "cooperation",
	BattleFriendlyFire: "friendly_fire",
	BattleProtection:   "protection",
	BattleRivalry:      "rivalry",
	BattleSupport:      "support",
}

func (b BattleEventType) String() string {
	if name, ok := battleEventNames[b]; ok {
		return name
	}
	return fmt.Sprintf("BattleEventType(%d)", int(b))
}

// ParseBattleEventType acepta "cooperation", "friendly_fire", "protection", "rivalry", "support".
func ParseBattleEventType(s string) (BattleEventType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for kind, name := range battleEventNames {
		if name == norm {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBattleEvent, s)
}

// BattleEventTypes lista los tipos en orden de declaracion.
func BattleEventTypes() []BattleEventType {
	return []BattleEventType{BattleCooperation, BattleFriendlyFire, BattleProtection, BattleRivalry, BattleSupport}
}
