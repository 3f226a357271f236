package models

import (
	"encoding/json"
	"errors"
)

// ErrInvalidPayload is returned when a stat payload has no usable data object.
var ErrInvalidPayload = errors.New("stat payload has no data object")

// PlayerStats is the stable per-player schema handed to the feature encoder.
// Every numeric field is optional; absent values resolve to 0 at encode time.
type PlayerStats struct {
	// TomatoOverall is the provider's data object with the per-vehicle
	// breakdown removed.
	TomatoOverall map[string]json.RawMessage `json:"tomato_overall,omitempty"`

	Battles    FlexFloat `json:"battles"`
	Wins       FlexFloat `json:"wins"`
	Losses     FlexFloat `json:"losses"`
	OverallWN8 FlexFloat `json:"overallWN8"`
	OverallWNX FlexFloat `json:"overallWNX"`
	Winrate    FlexFloat `json:"winrate"`
	DPG        FlexFloat `json:"dpg"`
	Assist     FlexFloat `json:"assist"`
	Frags      FlexFloat `json:"frags"`
	Survival   FlexFloat `json:"survival"`
	Spots      FlexFloat `json:"spots"`
	Cap        FlexFloat `json:"cap"`
	Def        FlexFloat `json:"def"`
	XP         FlexFloat `json:"xp"`
	KD         FlexFloat `json:"kd"`

	TotalDamage FlexFloat `json:"total_damage"`
	TotalFrags  FlexFloat `json:"total_frags"`
}

// tomatoOverallFields mirrors the numeric fields of the tomato.gg overall
// data object.
type tomatoOverallFields struct {
	Battles     FlexFloat `json:"battles"`
	Wins        FlexFloat `json:"wins"`
	Losses      FlexFloat `json:"losses"`
	OverallWN8  FlexFloat `json:"overallWN8"`
	OverallWNX  FlexFloat `json:"overallWNX"`
	Winrate     FlexFloat `json:"winrate"`
	DPG         FlexFloat `json:"dpg"`
	Assist      FlexFloat `json:"assist"`
	Frags       FlexFloat `json:"frags"`
	Survival    FlexFloat `json:"survival"`
	Spots       FlexFloat `json:"spots"`
	Cap         FlexFloat `json:"cap"`
	Def         FlexFloat `json:"def"`
	XP          FlexFloat `json:"xp"`
	KD          FlexFloat `json:"kd"`
	TotalDamage FlexFloat `json:"totalDamage"`
	TotalFrags  FlexFloat `json:"totalFrags"`
}

// NewPlayerStats reduces a provider data object to the stable schema.
// The heavy "tanks" breakdown is dropped from the kept copy.
func NewPlayerStats(data json.RawMessage) (*PlayerStats, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, ErrInvalidPayload
	}

	var f tomatoOverallFields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, ErrInvalidPayload
	}

	delete(raw, "tanks")

	return &PlayerStats{
		TomatoOverall: raw,
		Battles:       f.Battles,
		Wins:          f.Wins,
		Losses:        f.Losses,
		OverallWN8:    f.OverallWN8,
		OverallWNX:    f.OverallWNX,
		Winrate:       f.Winrate,
		DPG:           f.DPG,
		Assist:        f.Assist,
		Frags:         f.Frags,
		Survival:      f.Survival,
		Spots:         f.Spots,
		Cap:           f.Cap,
		Def:           f.Def,
		XP:            f.XP,
		KD:            f.KD,
		TotalDamage:   f.TotalDamage,
		TotalFrags:    f.TotalFrags,
	}, nil
}
