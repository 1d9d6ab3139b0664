package notify

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trip-planner/internal/logger"
)

type stubMessaging struct {
	sent []*messaging.Message
	err  error
}

func (s *stubMessaging) Send(_ context.Context, m *messaging.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, m)
	return "projects/p/messages/1", nil
}

func TestFCMSendBuildsMessage(t *testing.T) {
	stub := &stubMessaging{}
	f := &FCM{client: stub, log: logger.Discard()}

	id, err := f.Send(context.Background(), Message{
		Token: "tok",
		Title: "Your plan is ready",
		Body:  "Kyoto",
		Data:  map[string]string{"planId": "p1"},
	})
	require.NoError(t, err)
	require.Equal(t, "projects/p/messages/1", id)
	require.Len(t, stub.sent, 1)
	require.Equal(t, "tok", stub.sent[0].Token)
	require.Equal(t, "Your plan is ready", stub.sent[0].Notification.Title)
	require.Equal(t, "p1", stub.sent[0].Data["planId"])
}

func TestFCMSendRejectsEmptyToken(t *testing.T) {
	stub := &stubMessaging{}
	f := &FCM{client: stub, log: logger.Discard()}

	_, err := f.Send(context.Background(), Message{Title: "x"})
	require.Error(t, err)
	require.Empty(t, stub.sent)
}

func TestFCMSendWrapsError(t *testing.T) {
	boom := errors.New("unregistered")
	f := &FCM{client: &stubMessaging{err: boom}, log: logger.Discard()}

	_, err := f.Send(context.Background(), Message{Token: "tok"})
	require.ErrorIs(t, err, boom)
}

func TestNoopSend(t *testing.T) {
	id, err := Noop{}.Send(context.Background(), Message{Token: "tok"})
	require.ErrorIs(t, err, ErrDisabled)
	require.Empty(t, id)
}
