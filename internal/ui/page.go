package ui

import (
	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/session"
)

// Header is the top bar. Reset is offered everywhere but the upload screen.
type Header struct {
	Title     string
	ShowReset bool
}

// StylePicker lists the catalog tiles and the "Surprise Me!" control.
type StylePicker struct {
	Styles      []catalog.DesignStyle
	CanSurprise bool
}

// Page is everything a screen needs to render one session.
type Page struct {
	SessionID  string
	Step       session.Step
	Header     Header
	Error      string
	Accept     string
	Picker     StylePicker
	Comparator *Comparator
	Chat       ChatPanel
	Original   string
	Generated  string
	Loading    bool
	Status     string
}

// NewPage builds the view model of snap. reveal is the comparator position
// the client last reported.
func NewPage(snap session.Snapshot, styles catalog.Catalog, reveal float64) Page {
	cmp := NewComparator()
	cmp.Set(reveal)

	return Page{
		SessionID: snap.ID,
		Step:      snap.Step,
		Header: Header{
			Title:     "AI Interior Redesign",
			ShowReset: snap.Step != session.StepUpload,
		},
		Error:  snap.Error,
		Accept: AcceptTypes,
		Picker: StylePicker{
			Styles:      styles.Styles(),
			CanSurprise: styles.Len() > 0 && !snap.Loading,
		},
		Comparator: cmp,
		Chat: ChatPanel{
			Messages: snap.ChatHistory,
			Loading:  snap.Loading,
		},
		Original:  string(snap.OriginalImage),
		Generated: string(snap.GeneratedImage),
		Loading:   snap.Loading,
		Status:    snap.LoadingMessage,
	}
}
