package models

import (
	"encoding/json"
	"strings"
)

// MaxPlayersPerTeam is the fixed roster size of one side.
const MaxPlayersPerTeam = 15

type PlayerWithSpawn struct {
	Name  string `json:"name"`
	Spawn int    `json:"spawn" validate:"oneof=1 2"`
}

// PredictRequest describes one match to score. Rosters come either as
// explicit spawn_1/spawn_2 lists, as players[] tagged with their spawn, or as
// a flat pseudos list split 15/15.
type PredictRequest struct {
	User      string            `json:"user" validate:"required"`
	UserSpawn int               `json:"user_spawn" validate:"required,oneof=1 2"`
	Region    string            `json:"region,omitempty"`
	MapID     *int64            `json:"map_id,omitempty" validate:"omitempty,gte=0"`
	Pseudos   []string          `json:"pseudos,omitempty"`
	Spawn1    []string          `json:"spawn_1,omitempty"`
	Spawn2    []string          `json:"spawn_2,omitempty"`
	Players   []PlayerWithSpawn `json:"players,omitempty" validate:"omitempty,dive"`
}

// UnmarshalJSON accepts the field aliases older overlay builds send
// (current_user/nickname, current_user_spawn/spawn).
func (r *PredictRequest) UnmarshalJSON(data []byte) error {
	type Alias PredictRequest
	aux := struct {
		*Alias
		CurrentUser      string `json:"current_user"`
		Nickname         string `json:"nickname"`
		CurrentUserSpawn int    `json:"current_user_spawn"`
		Spawn            int    `json:"spawn"`
	}{Alias: (*Alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if r.User == "" {
		r.User = firstNonEmpty(aux.CurrentUser, aux.Nickname)
	}
	if r.UserSpawn == 0 {
		if aux.CurrentUserSpawn != 0 {
			r.UserSpawn = aux.CurrentUserSpawn
		} else {
			r.UserSpawn = aux.Spawn
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// NormalizeNames trims every name and drops empty entries, keeping order.
func NormalizeNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if n := strings.TrimSpace(name); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	return cleaned
}

// ParseCSVList splits a comma separated query value into normalized names.
func ParseCSVList(value string) []string {
	if value == "" {
		return nil
	}
	return NormalizeNames(strings.Split(value, ","))
}

// SplitTeams returns the two rosters of the request, each capped at
// MaxPlayersPerTeam. Explicit spawn lists win over players[], which wins over
// the flat pseudos list.
func SplitTeams(r *PredictRequest) (team1, team2 []string) {
	if r.Spawn1 != nil || r.Spawn2 != nil {
		return capTeam(NormalizeNames(r.Spawn1)), capTeam(NormalizeNames(r.Spawn2))
	}

	if len(r.Players) > 0 {
		for _, p := range r.Players {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				continue
			}
			switch p.Spawn {
			case 1:
				team1 = append(team1, name)
			case 2:
				team2 = append(team2, name)
			}
		}
		return capTeam(team1), capTeam(team2)
	}

	pseudos := NormalizeNames(r.Pseudos)
	return capTeam(pseudos), capTeam(skip(pseudos, MaxPlayersPerTeam))
}

func capTeam(names []string) []string {
	if len(names) > MaxPlayersPerTeam {
		return names[:MaxPlayersPerTeam]
	}
	return names
}

func skip(names []string, n int) []string {
	if len(names) <= n {
		return nil
	}
	return names[n:]
}
