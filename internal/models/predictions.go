package models

// PredictionResult is the outcome of one match prediction for the requesting
// user. It is derived per request and never stored.
type PredictionResult struct {
	PredictionID string `json:"prediction_id"`
	User         string `json:"user"`
	UserSpawn    int    `json:"user_spawn"`
	Region       string `json:"region"`

	Predicted           bool    `json:"predicted"`
	Probability         float64 `json:"probability"`           // 0-100, for the user's side
	Team1WinProbability float64 `json:"team1_win_probability"` // 0-1, raw model output

	Architecture string `json:"architecture"`
	MapID        int64  `json:"map_id"`
	MapIndex     int    `json:"map_index"`
	MapUnknown   bool   `json:"map_unknown"`

	MissingPlayers map[string]string `json:"missing_players"`
}

// PlayerFeatures is the collected data for one resolved player.
type PlayerFeatures struct {
	AccountID int64        `json:"account_id"`
	Stats     *PlayerStats `json:"stats"`
}

// FeaturesResponse exposes the collection stage without scoring.
type FeaturesResponse struct {
	User           string                    `json:"user"`
	UserSpawn      int                       `json:"user_spawn"`
	Region         string                    `json:"region"`
	MapID          *int64                    `json:"map_id,omitempty"`
	MapIndex       *int                      `json:"map_index,omitempty"`
	MapUnknown     bool                      `json:"map_unknown"`
	Team1          []string                  `json:"spawn_1"`
	Team2          []string                  `json:"spawn_2"`
	Players        map[string]PlayerFeatures `json:"players"`
	MissingPlayers map[string]string         `json:"missing_players"`
}
