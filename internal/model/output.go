package model

import (
	"time"
)

// UnsetRank marks a rank which has not been assigned by a user.
const UnsetRank = -1

// PluginOutput is a single finding produced by a plugin run against a target.
type PluginOutput struct {
	ID          int64     `json:"id"`
	TargetID    int64     `json:"target_id"`
	PluginKey   string    `json:"plugin_key"`
	PluginCode  string    `json:"plugin_code"`
	PluginGroup string    `json:"plugin_group"`
	PluginType  string    `json:"plugin_type"`
	PluginName  string    `json:"plugin_name"`
	Status      string    `json:"status"`
	Output      string    `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
	UserNotes   string    `json:"user_notes,omitempty"`
	UserRank    int       `json:"user_rank"`
	OWTFRank    int       `json:"owtf_rank"`
	StartTime   time.Time `json:"start_time,omitzero"`
	EndTime     time.Time `json:"end_time,omitzero"`
	RunTime     string    `json:"run_time"`
	Rank        string    `json:"rank,omitempty"` // derived, see EffectiveRank
}

// EffectiveRank is the rank used for display: a user override wins only
// when it is higher than the computed one.
func (o PluginOutput) EffectiveRank() int {
	return max(o.UserRank, o.OWTFRank)
}

// Filter holds multi valued query parameters narrowing down plugin outputs.
// Interpretation of keys is up to the collaborator fetching the outputs.
type Filter map[string][]string
