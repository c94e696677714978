package alert

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/guardian/pkg/types"
)

func testAlert() types.Alert {
	return types.Alert{
		AlertID:   "01J0000000000000000000000A",
		RunID:     "01J0000000000000000000000R",
		Level:     types.AlertLevelError,
		OwnerKey:  "lee@example.com",
		OwnerName: "Lee",
		Recipient: "lee@example.com",
		Message:   "1 non-compliant ticket, 0 at risk",
		NonCompliant: []types.EvaluationResult{{
			TicketID:   "INC1",
			TicketType: types.TicketIncident,
			Category:   "Network",
			Priority:   types.PriorityHigh,
			Violations: []types.Violation{{Kind: types.KindPoorSatisfaction, Severity: types.SeverityHigh}},
		}},
		TicketCount: 3,
		Timestamp:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordSink struct {
	name string
	got  []types.Alert
}

func (s *recordSink) Name() string { return s.name }

func (s *recordSink) Send(_ context.Context, a types.Alert) error {
	s.got = append(s.got, a)
	return nil
}

type errSink struct{}

func (errSink) Name() string { return "broken" }

func (errSink) Send(context.Context, types.Alert) error { return errors.New("boom") }

func TestDispatcher_FailingSinkDoesNotStopOthers(t *testing.T) {
	d, err := NewDispatcher(nil, WithLogger(quietLogger()))
	require.NoError(t, err)

	first, last := &recordSink{name: "first"}, &recordSink{name: "last"}
	d.AddSink(first)
	d.AddSink(errSink{})
	d.AddSink(last)
	assert.Equal(t, 3, d.Len())

	err = d.Dispatch(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.Len(t, first.got, 1)
	assert.Len(t, last.got, 1)
}

func TestDispatcher_AllSucceed(t *testing.T) {
	d, err := NewDispatcher(nil)
	require.NoError(t, err)
	s := &recordSink{name: "ok"}
	d.AddSink(s)
	assert.NoError(t, d.Dispatch(context.Background(), testAlert()))
}

func TestNewDispatcher_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.AlertConfig
		want string
	}{
		{"unknown", types.AlertConfig{Type: "pager"}, `unknown alert type "pager"`},
		{"webhook without url", types.AlertConfig{Type: types.AlertWebhook}, "webhook URL required"},
		{"file without path", types.AlertConfig{Type: types.AlertFile}, "file path required"},
		{"email without smtp", types.AlertConfig{Type: types.AlertEmail}, "smtp settings required"},
		{"email without host", types.AlertConfig{Type: types.AlertEmail, SMTP: &types.SMTPConfig{From: "a@b"}}, "SMTP host required"},
		{"sqs without queue", types.AlertConfig{Type: types.AlertSQS}, "queue URL required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispatcher([]types.AlertConfig{tt.cfg}, WithSQSClient(&mockSQS{}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

type closeSink struct {
	recordSink
	closed int
}

func (c *closeSink) Close() error {
	c.closed++
	return nil
}

func TestNewDispatcher_ClosesBuiltSinksOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	d := &Dispatcher{logger: quietLogger(), out: io.Discard}
	held := &closeSink{recordSink: recordSink{name: "held"}}
	d.AddSink(held)

	err := d.build([]types.AlertConfig{
		{Type: types.AlertFile, Path: path},
		{Type: "pager"},
	})
	require.Error(t, err)
	assert.Equal(t, 1, held.closed)

	require.Len(t, d.sinks, 2)
	file := d.sinks[1].(*FileSink)
	assert.ErrorContains(t, file.Send(context.Background(), testAlert()), "alert file closed")
}

func TestNewDispatcher_BuildsConfiguredSinks(t *testing.T) {
	var out bytes.Buffer
	d, err := NewDispatcher([]types.AlertConfig{
		{Type: types.AlertConsole},
		{Type: types.AlertFile, Path: filepath.Join(t.TempDir(), "alerts.jsonl")},
		{Type: types.AlertWebhook, URL: "http://localhost:1"},
		{Type: types.AlertEmail, SMTP: &types.SMTPConfig{Host: "smtp.example.com", From: "guardian@example.com"}},
		{Type: types.AlertSQS, QueueURL: "https://sqs.us-east-1.amazonaws.com/123/alerts"},
		{Type: types.AlertEventBridge},
	},
		WithOutput(&out),
		WithSQSClient(&mockSQS{}),
		WithEventBridgeClient(&mockEventBridge{}),
		WithMailFunc(func(string, smtp.Auth, string, []string, []byte) error { return nil }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	var names []string
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"console", "file", "webhook", "email", "sqs", "eventbridge"}, names)
}

func TestConsoleSink_Send(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	s := NewConsoleSink(&out)
	require.NoError(t, s.Send(context.Background(), testAlert()))
	assert.Equal(t, "[ERROR] [Lee (lee@example.com)] 1 non-compliant ticket, 0 at risk\n"+
		"    INC1: Poor customer satisfaction\n", out.String())

	out.Reset()
	left := -2.5
	a := testAlert()
	a.Level = types.AlertLevelWarning
	a.OwnerName = ""
	a.NonCompliant = nil
	a.AtRisk = []types.RiskStatus{{TicketID: "INC9", State: types.RiskAtRisk, HoursRemaining: &left}}
	require.NoError(t, s.Send(context.Background(), a))
	assert.Equal(t, "[WARN] [lee@example.com] 1 non-compliant ticket, 0 at risk\n"+
		"    INC9: AT_RISK (-2.5h remaining)\n", out.String())
}

func TestFileSink_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	s, err := NewFileSink(path)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name())

	require.NoError(t, s.Send(context.Background(), testAlert()))
	require.NoError(t, s.Send(context.Background(), testAlert()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var a types.Alert
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		assert.Equal(t, "lee@example.com", a.OwnerKey)
		lines++
	}
	assert.Equal(t, 2, lines)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Error(t, s.Send(context.Background(), testAlert()))
}

func TestNewFileSink_BadPath(t *testing.T) {
	_, err := NewFileSink(filepath.Join(t.TempDir(), "missing", "alerts.jsonl"))
	assert.Error(t, err)
}

func TestWebhookSink_Send(t *testing.T) {
	var got types.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL)
	require.NoError(t, s.Send(context.Background(), testAlert()))
	assert.Equal(t, "INC1", got.NonCompliant[0].TicketID)
}

func TestWebhookSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSink(srv.URL).Send(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func captureMail(sent *[]sentMail) MailFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return nil
	}
}

func TestEmailSink_Send(t *testing.T) {
	var sent []sentMail
	s, err := NewEmailSink(types.SMTPConfig{
		Host:     "smtp.example.com",
		Username: "guardian",
		Password: "secret",
		From:     "guardian@example.com",
		CC:       []string{"audit@example.com"},
	}, WithSendMail(captureMail(&sent)))
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), testAlert()))
	require.Len(t, sent, 1)
	m := sent[0]
	assert.Equal(t, "smtp.example.com:587", m.addr)
	assert.NotNil(t, m.auth)
	assert.Equal(t, "guardian@example.com", m.from)
	assert.Equal(t, []string{"lee@example.com", "audit@example.com"}, m.to)
	assert.Contains(t, m.msg, "Subject: ITSM Compliance Report - 02 March 2026\r\n")
	assert.Contains(t, m.msg, "Cc: audit@example.com\r\n")
	assert.Contains(t, m.msg, "Content-Type: text/html")
	assert.Contains(t, m.msg, "INC1")
}

func TestEmailSink_Fallback(t *testing.T) {
	var sent []sentMail
	s, err := NewEmailSink(types.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     25,
		From:     "guardian@example.com",
		Fallback: "itsm-leads@example.com",
	}, WithSendMail(captureMail(&sent)))
	require.NoError(t, err)

	a := testAlert()
	a.Recipient = ""
	require.NoError(t, s.Send(context.Background(), a))
	require.Len(t, sent, 1)
	assert.Equal(t, "smtp.example.com:25", sent[0].addr)
	assert.Nil(t, sent[0].auth)
	assert.Equal(t, []string{"itsm-leads@example.com"}, sent[0].to)
}

func TestEmailSink_NoRecipient(t *testing.T) {
	var sent []sentMail
	s, err := NewEmailSink(types.SMTPConfig{Host: "smtp.example.com", From: "guardian@example.com"},
		WithSendMail(captureMail(&sent)))
	require.NoError(t, err)

	a := testAlert()
	a.Recipient = ""
	err = s.Send(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipient")
	assert.Empty(t, sent)
}

type mockSQS struct {
	sent []*sqs.SendMessageInput
	err  error
}

func (m *mockSQS) SendMessage(_ context.Context, input *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.sent = append(m.sent, input)
	return &sqs.SendMessageOutput{}, m.err
}

func TestSQSSink_Send(t *testing.T) {
	mock := &mockSQS{}
	s, err := NewSQSSink("https://sqs.us-east-1.amazonaws.com/123/alerts", WithSQS(mock))
	require.NoError(t, err)
	assert.Equal(t, "sqs", s.Name())

	require.NoError(t, s.Send(context.Background(), testAlert()))
	require.Len(t, mock.sent, 1)
	in := mock.sent[0]
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/alerts", aws.ToString(in.QueueUrl))
	assert.Equal(t, "error", aws.ToString(in.MessageAttributes["level"].StringValue))
	assert.Equal(t, "lee@example.com", aws.ToString(in.MessageAttributes["owner"].StringValue))
	assert.Equal(t, "[error] ITSM compliance: Lee", aws.ToString(in.MessageAttributes["subject"].StringValue))

	var decoded types.Alert
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &decoded))
	assert.Equal(t, 3, decoded.TicketCount)
}

func TestSQSSink_Error(t *testing.T) {
	s, err := NewSQSSink("q", WithSQS(&mockSQS{err: errors.New("throttled")}))
	require.NoError(t, err)
	err = s.Send(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSubject_Truncated(t *testing.T) {
	a := testAlert()
	a.OwnerName = strings.Repeat("x", 200)
	assert.Len(t, subject(a), 100)

	a.OwnerName = strings.Repeat("é", 60)
	s := subject(a)
	assert.True(t, utf8.ValidString(s))
	assert.LessOrEqual(t, len(s), 100)
	assert.GreaterOrEqual(t, len(s), 99)
	assert.True(t, strings.HasPrefix(a.OwnerName, strings.TrimPrefix(s, "[error] ITSM compliance: ")))
}

type mockEventBridge struct {
	put []*eventbridge.PutEventsInput
	out *eventbridge.PutEventsOutput
}

func (m *mockEventBridge) PutEvents(_ context.Context, input *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	m.put = append(m.put, input)
	if m.out != nil {
		return m.out, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func TestEventBridgeSink_Send(t *testing.T) {
	mock := &mockEventBridge{}
	s, err := NewEventBridgeSink("", WithEventBridge(mock))
	require.NoError(t, err)
	assert.Equal(t, "eventbridge", s.Name())

	require.NoError(t, s.Send(context.Background(), testAlert()))
	require.Len(t, mock.put, 1)
	require.Len(t, mock.put[0].Entries, 1)
	e := mock.put[0].Entries[0]
	assert.Equal(t, "default", aws.ToString(e.EventBusName))
	assert.Equal(t, EventSource, aws.ToString(e.Source))
	assert.Equal(t, EventDetailType, aws.ToString(e.DetailType))
	assert.Equal(t, testAlert().Timestamp, aws.ToTime(e.Time))
	assert.Contains(t, aws.ToString(e.Detail), `"ownerKey":"lee@example.com"`)
}

func TestEventBridgeSink_FailedEntry(t *testing.T) {
	mock := &mockEventBridge{out: &eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []ebtypes.PutEventsResultEntry{{
			ErrorCode:    aws.String("InternalFailure"),
			ErrorMessage: aws.String("try again"),
		}},
	}}
	s, err := NewEventBridgeSink("compliance", WithEventBridge(mock))
	require.NoError(t, err)

	err = s.Send(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InternalFailure: try again")
	assert.Equal(t, "compliance", aws.ToString(mock.put[0].Entries[0].EventBusName))
}
