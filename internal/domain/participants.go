package domain

import (
	"errors"
	"time"

	"golang.org/x/exp/slices"
)

var (
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrParticipantAlreadyExists = errors.New("participant already exists")
	ErrUsernameTaken            = errors.New("username already taken")
	ErrWrongPassword            = errors.New("wrong room password")
	ErrRoomInactive             = errors.New("room is not active")
)

type Participant struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (r Room) ParticipantByID(id string) (Participant, int, error) {
	for index, p := range r.Participants {
		if p.ID == id {
			return p, index, nil
		}
	}

	return Participant{}, 0, ErrParticipantNotFound
}

func (r Room) HasParticipant(id string) bool {
	_, _, err := r.ParticipantByID(id)
	return err == nil
}

func (r *Room) AddParticipant(p Participant) error {
	if r.HasParticipant(p.ID) {
		return ErrParticipantAlreadyExists
	}

	r.Participants = append(r.Participants, p)
	return nil
}

func (r *Room) RemoveParticipant(id string) (Participant, error) {
	p, index, err := r.ParticipantByID(id)
	if err != nil {
		return Participant{}, err
	}

	r.Participants = slices.Delete(r.Participants, index, index+1)
	return p, nil
}

func ParticipantsEqual(a, b []Participant) bool {
	return slices.EqualFunc(a, b, func(x, y Participant) bool {
		return x.ID == y.ID && x.Username == y.Username && x.JoinedAt.Equal(y.JoinedAt)
	})
}

// Leave removes userID and hands leadership to the first remaining
// participant. An empty room becomes inactive.
func (r *Room) Leave(userID string) error {
	if _, err := r.RemoveParticipant(userID); err != nil {
		return err
	}

	if r.Leader == userID && len(r.Participants) > 0 {
		r.Leader = r.Participants[0].ID
		r.LeaderUsername = r.Participants[0].Username
	}
	if len(r.Participants) == 0 {
		r.IsActive = false
	}

	return nil
}

// Join adds p to the room. A participant that is already present only has
// its username updated.
func (r *Room) Join(p Participant, password string) error {
	if !r.IsActive {
		return ErrRoomInactive
	}
	if r.Password != "" && r.Password != password {
		return ErrWrongPassword
	}

	if _, index, err := r.ParticipantByID(p.ID); err == nil {
		r.Participants[index].Username = p.Username
		if r.Leader == p.ID {
			r.LeaderUsername = p.Username
		}
		return nil
	}

	for _, existing := range r.Participants {
		if existing.Username == p.Username {
			return ErrUsernameTaken
		}
	}

	return r.AddParticipant(p)
}
