package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kvcheck/internal/control"
	"kvcheck/internal/notify"
	"kvcheck/internal/notify/mocks"
	"kvcheck/internal/platform/metrics"
	"kvcheck/internal/queue"
	dErrors "kvcheck/pkg/domain-errors"
)

// Justification for unit tests: routing decides who receives payroll data.
// Tests pin both routing modes and every configuration failure.

type RouterSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	control *mocks.MockControlSource
	worker  *mocks.MockWorker
	metrics *metrics.Metrics
	router  *notify.Router
	item    *queue.WorkItem
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func strPtr(s string) *string { return &s }

func (s *RouterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.control = mocks.NewMockControlSource(s.ctrl)
	s.worker = mocks.NewMockWorker(s.ctrl)
	s.metrics = metrics.New()
	s.router = notify.NewRouter(s.control, notify.DefaultWorkers(s.worker),
		notify.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		notify.WithMetrics(s.metrics),
		notify.WithFallbackSubject(func(process string) (string, bool) {
			return "Indbygget beskrivelse af " + process, true
		}),
	)
	s.item = &queue.WorkItem{Reference: "KV4_050324_1", Data: []byte(`{"AF_email":"af@aarhus.dk"}`)}
}

func (s *RouterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func controlTable() control.Table {
	return control.NewTable(
		control.Entry{Process: "KV1", Description: "Forkert institutionskode", WorkerType: "Send mail", WorkerData: strPtr("lon@aarhus.dk")},
		control.Entry{Process: "KV2", Description: "Tillægspar", WorkerType: "Send mail"},
		control.Entry{Process: "KV3", Description: "Overenskomst", WorkerType: "Send SMS", WorkerData: strPtr("lon@aarhus.dk")},
		control.Entry{Process: "KV4", Description: "", WorkerType: "send MAIL", WorkerData: strPtr("AF")},
	)
}

func (s *RouterSuite) TestControlTableMode() {
	s.Run("routes via control row", func() {
		s.control.EXPECT().Load(gomock.Any()).Return(controlTable(), nil).Times(1)
		s.worker.EXPECT().Handle(gomock.Any(), notify.Job{
			Process:   "KV1",
			Subject:   "Forkert institutionskode",
			Recipient: notify.LiteralAddress{Addresses: []string{"lon@aarhus.dk"}},
			Item:      s.item,
		}).Return(nil)

		s.Require().NoError(s.router.Dispatch(context.Background(), notify.Request{Process: "kv1"}, s.item))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Notifications.WithLabelValues("KV1", "Send mail", "sent")))
	})

	s.Run("AF recipient and fallback subject", func() {
		s.worker.EXPECT().Handle(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job notify.Job) error {
			s.Equal(notify.FromPayload{Field: "AF_email"}, job.Recipient)
			s.Equal("Indbygget beskrivelse af KV4", job.Subject)
			return nil
		})
		s.Require().NoError(s.router.Dispatch(context.Background(), notify.Request{Process: "KV4"}, s.item))
	})
}

func (s *RouterSuite) TestControlTableModeFailures() {
	s.control.EXPECT().Load(gomock.Any()).Return(controlTable(), nil).Times(1)

	tests := []struct {
		process string
		message string
	}{
		{"", "no process defined"},
		{"KV9", "no control defined in control table for process KV9"},
		{"KV2", "no recipient configured for process KV2"},
		{"KV3", `no worker defined for worker type "Send SMS" (known: Send mail, email, mail)`},
	}
	for _, tt := range tests {
		s.Run(tt.process, func() {
			err := s.router.Dispatch(context.Background(), notify.Request{Process: tt.process}, s.item)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
			s.Contains(err.Error(), tt.message)
		})
	}
}

func (s *RouterSuite) TestControlTableUnavailable() {
	s.control.EXPECT().Load(gomock.Any()).
		Return(control.Table{}, dErrors.New(dErrors.CodeConfiguration, "control spreadsheet not found"))

	err := s.router.Dispatch(context.Background(), notify.Request{Process: "KV1"}, s.item)
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func (s *RouterSuite) TestDirectMode() {
	s.Run("notification type names the worker", func() {
		s.control.EXPECT().Load(gomock.Any()).Return(controlTable(), nil).Times(1)
		s.worker.EXPECT().Handle(gomock.Any(), notify.Job{
			Process:   "KV3",
			Subject:   "Overenskomst",
			Recipient: notify.LiteralAddress{Addresses: []string{"test@aarhus.dk"}},
			Item:      s.item,
		}).Return(nil)

		req := notify.Request{Process: "KV3", NotificationType: "email", NotificationReceiver: "test@aarhus.dk"}
		s.Require().NoError(s.router.Dispatch(context.Background(), req, s.item))
	})

	s.Run("unknown notification type", func() {
		req := notify.Request{Process: "KV3", NotificationType: "pigeon", NotificationReceiver: "AF"}
		err := s.router.Dispatch(context.Background(), req, s.item)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	s.Run("missing receiver", func() {
		req := notify.Request{Process: "KV3", NotificationType: "Send mail"}
		err := s.router.Dispatch(context.Background(), req, s.item)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
}

func (s *RouterSuite) TestDirectModeSurvivesMissingControlTable() {
	s.control.EXPECT().Load(gomock.Any()).Return(control.Table{}, errors.New("sharepoint down"))
	s.worker.EXPECT().Handle(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, job notify.Job) error {
		s.Equal("Indbygget beskrivelse af KV4", job.Subject)
		return nil
	})

	req := notify.Request{Process: "kv4", NotificationType: "Send mail", NotificationReceiver: "AF"}
	s.Require().NoError(s.router.Dispatch(context.Background(), req, s.item))
}

func (s *RouterSuite) TestWorkerFailureIsReturned() {
	s.control.EXPECT().Load(gomock.Any()).Return(controlTable(), nil)
	boom := errors.New("smtp down")
	s.worker.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(boom)

	err := s.router.Dispatch(context.Background(), notify.Request{Process: "KV1"}, s.item)
	s.ErrorIs(err, boom)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Notifications.WithLabelValues("KV1", "Send mail", "failed")))
}

func (s *RouterSuite) TestRefreshReplacesTable() {
	gomock.InOrder(
		s.control.EXPECT().Load(gomock.Any()).Return(control.NewTable(), nil),
		s.control.EXPECT().Load(gomock.Any()).Return(controlTable(), nil),
	)
	s.worker.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(nil)

	err := s.router.Dispatch(context.Background(), notify.Request{Process: "KV1"}, s.item)
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))

	s.Require().NoError(s.router.Refresh(context.Background()))
	s.Require().NoError(s.router.Dispatch(context.Background(), notify.Request{Process: "KV1"}, s.item))
}

func TestWorkerMap_Types(t *testing.T) {
	m := notify.DefaultWorkers(notify.WorkerFunc(func(context.Context, notify.Job) error { return nil }))
	assert.Equal(t, []string{"Send mail", "email", "mail"}, m.Types())

	_, ok := m.Lookup("SEND MAIL")
	assert.True(t, ok)
	_, ok = m.Lookup("Send SMS")
	assert.False(t, ok)
}
