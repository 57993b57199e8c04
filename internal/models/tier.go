package models

import (
	"fmt"
	"strings"
)

// Tier is a named service level. The set is closed; callers must not rely
// on any ordering between tiers.
type Tier string

const (
	TierNano     Tier = "NANO"
	TierStandard Tier = "STANDARD"
	TierPro      Tier = "PRO"
	TierMax      Tier = "MAX"
)

// modelSeparator splits a namespaced model id such as "AURIA:PRO".
const modelSeparator = ":"

func AllTiers() []Tier {
	return []Tier{TierNano, TierStandard, TierPro, TierMax}
}

// ParseTier matches s against the tier names, ignoring case and
// surrounding whitespace.
func ParseTier(s string) (Tier, bool) {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierNano, TierStandard, TierPro, TierMax:
		return t, true
	default:
		return "", false
	}
}

// ResolveModelTier extracts the tier from a model identifier. Both
// "AURIA:STANDARD" and "STANDARD" resolve; the namespace part is ignored.
func ResolveModelTier(model string) (Tier, bool) {
	m := strings.TrimSpace(model)
	parts := strings.Split(m, modelSeparator)
	if len(parts) == 2 {
		return ParseTier(parts[1])
	}
	return ParseTier(m)
}

// Valid reports whether t is one of the canonical tier values.
func (t Tier) Valid() bool {
	switch t {
	case TierNano, TierStandard, TierPro, TierMax:
		return true
	default:
		return false
	}
}

func (t Tier) String() string {
	return string(t)
}

// UnmarshalText lets config files and env values use any casing.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, ok := ParseTier(string(text))
	if !ok {
		return fmt.Errorf("unknown tier %q", string(text))
	}
	*t = parsed
	return nil
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t), nil
}
