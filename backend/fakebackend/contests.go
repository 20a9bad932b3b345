package fakebackend

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/jrsteele09/go-contest-portal/contesterr"
	"github.com/pkg/errors"
)

type ContestStatus string

const (
	ContestDraft  ContestStatus = "draft"
	ContestOpen   ContestStatus = "open"
	ContestClosed ContestStatus = "closed"
)

var (
	contestCodePattern     = regexp.MustCompile(`^[A-Z0-9]{4,12}$`)
	participantCodePattern = regexp.MustCompile(`^[0-9]{6,12}$`)
)

type Contest struct {
	ID               string        `json:"id"`
	Code             string        `json:"code"`
	Name             string        `json:"name"`
	OrganizationName string        `json:"organizationName"`
	Status           ContestStatus `json:"status"`
	CreatedAt        time.Time     `json:"createdAt"`
}

type Participant struct {
	ID        string    `json:"id"`
	ContestID string    `json:"contestId"`
	Name      string    `json:"name"`
	CodeHash  string    `json:"-"` // never serialize
	Active    bool      `json:"active"`
	LastEntry time.Time `json:"lastEntry,omitempty"`
}

// AddContest registers a contest under its (upper-cased) code.
func (b *Backend) AddContest(code, name, organization string, status ContestStatus) (*Contest, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !contestCodePattern.MatchString(code) {
		return nil, errors.Errorf("[Backend.AddContest] invalid contest code %q", code)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.contests[code]; exists {
		return nil, errors.Errorf("[Backend.AddContest] contest code %q already in use", code)
	}
	c := &Contest{
		ID:               uuid.New().String(),
		Code:             code,
		Name:             name,
		OrganizationName: organization,
		Status:           status,
		CreatedAt:        b.clock.Now(),
	}
	b.contests[code] = c
	return c, nil
}

// SetContestStatus opens or closes a contest.
func (b *Backend) SetContestStatus(code string, status ContestStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.contests[strings.ToUpper(code)]
	if !ok {
		return errors.Errorf("[Backend.SetContestStatus] contest %q not found", code)
	}
	c.Status = status
	return nil
}

// AddParticipant registers a participant whose code is stored hashed.
func (b *Backend) AddParticipant(contestID, name, code string, active bool) (*Participant, error) {
	if !participantCodePattern.MatchString(code) {
		return nil, errors.Errorf("[Backend.AddParticipant] invalid participant code for %q", name)
	}
	hash, err := b.hash(code)
	if err != nil {
		return nil, errors.Wrap(err, "[Backend.AddParticipant] hash code")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p := &Participant{
		ID:        uuid.New().String(),
		ContestID: contestID,
		Name:      name,
		CodeHash:  hash,
		Active:    active,
	}
	b.participants[contestID] = append(b.participants[contestID], p)
	return p, nil
}

// SetParticipantActive enables or disables a participant.
func (b *Backend) SetParticipantActive(participantID string, active bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, list := range b.participants {
		for _, p := range list {
			if p.ID == participantID {
				p.Active = active
				return nil
			}
		}
	}
	return errors.Errorf("[Backend.SetParticipantActive] participant %q not found", participantID)
}

func entryError(status int, code contesterr.Code, message string) *backend.Error {
	return &backend.Error{Status: status, Code: string(code), Message: message}
}

// EnterSession validates a code pair the way the participant-session function does.
func (b *Backend) EnterSession(req backend.ParticipantSessionRequest) (*backend.ParticipantSessionResponse, *backend.Error) {
	contestCode := strings.ToUpper(strings.TrimSpace(req.ContestCode))
	participantCode := strings.TrimSpace(req.ParticipantCode)

	if contestCode == "" || participantCode == "" {
		return nil, entryError(http.StatusBadRequest, contesterr.CodeMissingCodes, "contestCode and participantCode are required")
	}
	if !contestCodePattern.MatchString(contestCode) || !participantCodePattern.MatchString(participantCode) {
		return nil, entryError(http.StatusBadRequest, contesterr.CodeInvalidCodes, "codes are malformed")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	contest, ok := b.contests[contestCode]
	if !ok {
		return nil, entryError(http.StatusNotFound, contesterr.CodeContestNotFound, "no contest with that code")
	}
	if contest.Status != ContestOpen {
		return nil, entryError(http.StatusConflict, contesterr.CodeContestNotAccepting, "contest is "+string(contest.Status))
	}

	var match *Participant
	for _, p := range b.participants[contest.ID] {
		if checkHash(participantCode, p.CodeHash) {
			match = p
			break
		}
	}
	if match == nil {
		return nil, entryError(http.StatusBadRequest, contesterr.CodeInvalidParticipantCode, "participant code not recognised")
	}
	if !match.Active {
		return nil, entryError(http.StatusForbidden, contesterr.CodeParticipantInactive, "participant is inactive")
	}
	match.LastEntry = b.clock.Now()

	return &backend.ParticipantSessionResponse{
		Session: backend.ParticipantSession{
			ContestID:        contest.ID,
			ParticipantID:    match.ID,
			Code:             participantCode,
			OrganizationName: contest.OrganizationName,
			ContestName:      contest.Name,
			ParticipantName:  match.Name,
		},
		SessionDurationSeconds: int64(b.sessionDuration / time.Second),
	}, nil
}
