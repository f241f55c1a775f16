package models

import "github.com/dmitrijs2005/matchdeck/internal/common"

// Notice is a dismissible, non-blocking message for the user.
type Notice struct {
	Kind common.Kind
	Text string
}

// NoticeFor builds the user-facing notice for a failed action.
func NoticeFor(action string, err error) Notice {
	kind := common.Classify(err)
	switch kind {
	case common.KindAuth:
		return Notice{Kind: kind, Text: "Session expired. Please log in again."}
	case common.KindValidation:
		return Notice{Kind: kind, Text: action + ": " + err.Error()}
	default:
		return Notice{Kind: kind, Text: action + " failed. Please try again."}
	}
}
