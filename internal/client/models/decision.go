package models

import (
	"fmt"
	"time"
)

// Verdict is the committed outcome for one candidate. The string values are
// the wire actions of the swipe endpoint.
type Verdict string

const (
	VerdictAccept Verdict = "like"
	VerdictReject Verdict = "pass"
)

func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictAccept, VerdictReject:
		return Verdict(s), nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// Decision is created the instant a gesture or button commits.
type Decision struct {
	ID          string
	CandidateID string
	Verdict     Verdict
	IssuedAt    time.Time
}

type ReconcileStatus string

const (
	StatusPending   ReconcileStatus = "pending"
	StatusConfirmed ReconcileStatus = "confirmed"
	StatusMatched   ReconcileStatus = "matched"
	StatusFailed    ReconcileStatus = "failed"
)

// MatchInfo describes a mutual accept. ConversationID may be empty when the
// backend did not return one; the chat continuation is then unavailable.
type MatchInfo struct {
	ConversationID      string
	CounterpartName     string
	CounterpartPhotoURL string
}

// ReconciliationResult is the outcome of confirming a Decision with the
// backend. Match is set only when Status is StatusMatched; Err only when
// Status is StatusFailed.
type ReconciliationResult struct {
	DecisionID  string
	CandidateID string
	Status      ReconcileStatus
	Match       *MatchInfo
	Err         error
}

// UnmatchRequest carries the counterpart through the confirm/cancel protocol.
type UnmatchRequest struct {
	TargetID string
}
