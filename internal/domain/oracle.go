package domain

import (
	"fmt"
	"strings"
)

// OracleType is the kind of source behind an oracle principal.
type OracleType uint8

const (
	OraclePyth OracleType = iota + 1
	OracleAI
	OracleManual
)

func (t OracleType) Valid() bool { return t >= OraclePyth && t <= OracleManual }

func (t OracleType) String() string {
	switch t {
	case OraclePyth:
		return "pyth"
	case OracleAI:
		return "ai"
	case OracleManual:
		return "manual"
	default:
		return fmt.Sprintf("oracle(%d)", uint8(t))
	}
}

// Oracle is a principal allowed to submit resolutions while Active.
type Oracle struct {
	Principal    Principal
	Type         OracleType
	Label        string
	Active       bool
	RegisteredAt uint64
}

// ValidateOracle checks registration input.
func ValidateOracle(principal Principal, t OracleType, label string) error {
	if strings.TrimSpace(string(principal)) == "" {
		return fmt.Errorf("empty oracle principal: %w", ErrInvalidParams)
	}
	if !t.Valid() {
		return fmt.Errorf("oracle type %d: %w", t, ErrInvalidParams)
	}
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("empty oracle label: %w", ErrInvalidParams)
	}
	return nil
}
