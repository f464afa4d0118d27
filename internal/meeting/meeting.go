package meeting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"intelliclass/internal/queue"
	"intelliclass/internal/store"
)

// SignalMeetingEnded is the cross-origin message type posted by the embedded
// meeting UI when the host ends the call. It is handled exactly like a local
// end action.
const SignalMeetingEnded = "MEETING_ENDED"

var (
	ErrTeacherOnly = errors.New("only the class teacher can do this")
	ErrNoMeeting   = errors.New("no meeting in progress")
)

type Store interface {
	StartMeeting(ctx context.Context, classID, hostID string) (store.Meeting, error)
	ActiveMeeting(ctx context.Context, classID string) (store.Meeting, error)
	EndMeeting(ctx context.Context, meetingID string) error
}

type Notifier interface {
	PushNotificationJob(ctx context.Context, job queue.NotificationJob) error
}

// Service drives the per-class meeting state machine
// NoMeeting -> InProgress -> NoMeeting.
type Service struct {
	Store    Store
	Notifier Notifier
	BaseURL  string
}

func NewService(st Store, notifier Notifier, baseURL string) *Service {
	return &Service{Store: st, Notifier: notifier, BaseURL: strings.TrimRight(baseURL, "/")}
}

type Session struct {
	Meeting store.Meeting
	JoinURL string
}

// Start transitions NoMeeting -> InProgress. Teacher role only. Class
// members are notified through the queue; delivery is asynchronous and a
// queue outage does not fail the start.
func (s *Service) Start(ctx context.Context, classID, hostID, hostName, role string) (Session, error) {
	if role != "teacher" {
		return Session{}, ErrTeacherOnly
	}
	m, err := s.Store.StartMeeting(ctx, classID, hostID)
	if err != nil {
		return Session{}, err
	}

	if s.Notifier != nil {
		job := queue.NotificationJob{
			ClassID:   classID,
			MeetingID: m.ID,
			Message:   fmt.Sprintf("%s started a live class", hostName),
		}
		// Notifications are best effort; the meeting is already live.
		if err := s.Notifier.PushNotificationJob(ctx, job); err != nil {
			log.Printf("meeting: notification enqueue failed for class %s: %v", classID, err)
		}
	}

	return Session{Meeting: m, JoinURL: s.joinURL(classID, hostName, true)}, nil
}

// Join returns the session for a meeting already in progress. Either role
// may join; the shared state does not change.
func (s *Service) Join(ctx context.Context, classID, displayName string) (Session, error) {
	m, err := s.Store.ActiveMeeting(ctx, classID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrNoMeeting
		}
		return Session{}, err
	}
	return Session{Meeting: m, JoinURL: s.joinURL(classID, displayName, false)}, nil
}

// Active reports the shared state for a class.
func (s *Service) Active(ctx context.Context, classID string) (store.Meeting, bool, error) {
	m, err := s.Store.ActiveMeeting(ctx, classID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Meeting{}, false, nil
		}
		return store.Meeting{}, false, err
	}
	return m, true, nil
}

// End transitions InProgress -> NoMeeting. Teacher role only.
func (s *Service) End(ctx context.Context, classID, role string) error {
	if role != "teacher" {
		return ErrTeacherOnly
	}
	return s.endActive(ctx, classID)
}

// HandleSignal processes the embedded UI's cross-origin end message. The
// relay runs inside the sender's session, and only the meeting host may end
// the shared meeting this way; anyone else keeps the signal local to their
// own view.
func (s *Service) HandleSignal(ctx context.Context, classID, userID, signalType string) error {
	if signalType != SignalMeetingEnded {
		return fmt.Errorf("unknown signal type %q", signalType)
	}
	m, err := s.Store.ActiveMeeting(ctx, classID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoMeeting
		}
		return err
	}
	if m.HostID != userID {
		return ErrTeacherOnly
	}
	return s.Store.EndMeeting(ctx, m.ID)
}

func (s *Service) endActive(ctx context.Context, classID string) error {
	m, err := s.Store.ActiveMeeting(ctx, classID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoMeeting
		}
		return err
	}
	return s.Store.EndMeeting(ctx, m.ID)
}

func (s *Service) joinURL(classID, displayName string, host bool) string {
	params := url.Values{}
	params.Set("classId", classID)
	params.Set("name", displayName)
	params.Set("host", fmt.Sprintf("%t", host))
	return fmt.Sprintf("%s/class-%s?%s", s.BaseURL, classID, params.Encode())
}
