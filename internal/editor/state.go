package editor

import (
	"time"

	"github.com/arxaplan/cutout/internal/render"
)

// ShadowState is the JSON form of a drop shadow
type ShadowState struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Blur    float64 `json:"blur"`
	Color   string  `json:"color"`
	Enabled bool    `json:"enabled"`
}

func NewShadowState(sh render.Shadow) ShadowState {
	return ShadowState{
		OffsetX: sh.OffsetX,
		OffsetY: sh.OffsetY,
		Blur:    sh.Blur,
		Color:   render.HexColor(sh.Color),
		Enabled: sh.Enabled(),
	}
}

// State is an immutable snapshot of a session
type State struct {
	ID              string         `json:"id"`
	Status          Status         `json:"status"`
	Activity        Activity       `json:"activity,omitempty"`
	Generation      uint64         `json:"generation"`
	FileName        string         `json:"file_name,omitempty"`
	Error           string         `json:"error,omitempty"`
	HD              bool           `json:"is_hd"`
	Width           int            `json:"width,omitempty"`
	Height          int            `json:"height,omitempty"`
	OriginalWidth   int            `json:"original_width,omitempty"`
	OriginalHeight  int            `json:"original_height,omitempty"`
	ViewMode        ViewMode       `json:"view_mode"`
	Tool            Tool           `json:"active_tool"`
	BackgroundColor string         `json:"background_color,omitempty"`
	AIBackground    bool           `json:"ai_background"`
	RevisedPrompt   string         `json:"revised_prompt,omitempty"`
	Filters         render.Filters `json:"filters"`
	Shadow          ShadowState    `json:"shadow"`
	Feather         float64        `json:"feather"`
	ComparePosition float64        `json:"compare_position"`
	History         []string       `json:"history"`
	HistoryIndex    int            `json:"history_index"`
	CanUndo         bool           `json:"can_undo"`
	CanRedo         bool           `json:"can_redo"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Busy reports whether a transient activity is running
func (st State) Busy() bool {
	return st.Activity != ActivityNone
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:              s.ID,
		Status:          s.status,
		Activity:        s.activity,
		Generation:      s.generation,
		FileName:        s.fileName,
		Error:           s.errMsg,
		ViewMode:        s.viewMode,
		Tool:            s.tool,
		RevisedPrompt:   s.revisedPrompt,
		Filters:         s.filters,
		Shadow:          NewShadowState(s.shadow),
		Feather:         s.feather,
		ComparePosition: s.comparePosition,
		HistoryIndex:    s.history.Index(),
		CanUndo:         s.history.CanUndo(),
		CanRedo:         s.history.CanRedo(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.updatedAt,
	}
	if s.color != nil {
		st.BackgroundColor = render.HexColor(*s.color)
	}
	if s.original != nil {
		st.OriginalWidth, st.OriginalHeight = s.original.Bounds()
	}

	entries := s.history.Entries()
	st.History = make([]string, len(entries))
	for i, e := range entries {
		st.History[i] = e.Label
	}

	if cur, ok := s.history.Current(); ok {
		st.HD = cur.Value.HD
		st.AIBackground = cur.Value.Background != nil
		st.Width, st.Height = cur.Value.Foreground.Bounds()
	}
	return st
}
