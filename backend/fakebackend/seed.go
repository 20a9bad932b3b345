package fakebackend

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Seed data for the development server.
const (
	SeedContestCode     = "ABCD12"
	SeedParticipantCode = "10234567"
	SeedPassword        = "Password123"
	SeedAdminEmail      = "admin@example.com"
	SeedJudgeEmail      = "judge@example.com"
	SeedViewerEmail     = "viewer@example.com"
)

// Seed creates an open contest with an active participant, a closed
// contest, an inactive participant, one user per role and a few rest resources.
func Seed(b *Backend) error {
	open, err := b.AddContest(SeedContestCode, "Spring Open", "Riverside Camera Club", ContestOpen)
	if err != nil {
		return errors.Wrap(err, "[fakebackend.Seed] open contest")
	}
	closed, err := b.AddContest("WXYZ99", "Winter Salon", "Riverside Camera Club", ContestClosed)
	if err != nil {
		return errors.Wrap(err, "[fakebackend.Seed] closed contest")
	}
	if _, err := b.AddParticipant(open.ID, "Ada Byron", SeedParticipantCode, true); err != nil {
		return errors.Wrap(err, "[fakebackend.Seed] participant")
	}
	if _, err := b.AddParticipant(open.ID, "Charles Babbage", "20345678", false); err != nil {
		return errors.Wrap(err, "[fakebackend.Seed] inactive participant")
	}
	if _, err := b.AddParticipant(closed.ID, "Grace Hopper", "30456789", true); err != nil {
		return errors.Wrap(err, "[fakebackend.Seed] closed contest participant")
	}

	for _, u := range []struct {
		email, name string
		role        Role
	}{
		{SeedAdminEmail, "Admin", RoleAdmin},
		{SeedJudgeEmail, "Judge", RoleJudge},
		{SeedViewerEmail, "Viewer", RoleViewer},
	} {
		if _, err := b.AddUser(u.email, SeedPassword, u.name, u.role); err != nil {
			return errors.Wrapf(err, "[fakebackend.Seed] user %s", u.email)
		}
	}

	b.AddResource("contests", RoleViewer, RoleAdmin,
		Row{"id": open.ID, "code": open.Code, "name": open.Name, "status": string(open.Status)},
		Row{"id": closed.ID, "code": closed.Code, "name": closed.Name, "status": string(closed.Status)},
	)
	b.AddResource("categories", RoleViewer, RoleAdmin,
		Row{"contest_id": open.ID, "name": "Landscape"},
		Row{"contest_id": open.ID, "name": "Portrait"},
	)
	b.AddResource("submissions", RoleJudge, RoleJudge)
	b.AddResource("scores", RoleJudge, RoleJudge)

	log.Info().
		Str("contest_code", SeedContestCode).
		Str("participant_code", SeedParticipantCode).
		Str("admin", SeedAdminEmail).
		Msg("development data seeded")
	return nil
}
