package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

type sendPayload struct {
	EmailID string `json:"email_id"`
}

type sendTask struct {
	got []sendPayload
	err error
}

func (t *sendTask) Name() string { return "send" }

func (t *sendTask) Handle(_ context.Context, p sendPayload) error {
	t.got = append(t.got, p)
	return t.err
}

type drainTask struct {
	calls   int
	onStart bool
}

func (t *drainTask) Name() string                 { return "drain" }
func (t *drainTask) Schedule() string             { return "*/5 * * * *" }
func (t *drainTask) RunOnStart() bool             { return t.onStart }
func (t *drainTask) Handle(context.Context) error { t.calls++; return nil }

func TestNewManager_NilPool(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil)
	require.ErrorIs(t, err, ErrPoolRequired)
}

func TestParseCronSchedule(t *testing.T) {
	t.Parallel()

	s, err := parseCronSchedule("0 * * * *")
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), s.Next(base))

	every, err := parseCronSchedule("* * * * *")
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Minute), every.Next(base))

	for _, expr := range []string{"", "* * *", "* * * * * *", "60 * * * *", "not a cron expression"} {
		_, err := parseCronSchedule(expr)
		assert.Error(t, err, expr)
	}
}

func TestWithTask_DecodesPayload(t *testing.T) {
	t.Parallel()

	task := &sendTask{}
	cfg := newConfig()
	WithTask(task)(cfg)

	exec, ok := cfg.registry.get("send")
	require.True(t, ok)
	require.NoError(t, exec.Execute(context.Background(), json.RawMessage(`{"email_id":"42"}`)))
	assert.Equal(t, []sendPayload{{EmailID: "42"}}, task.got)

	err := exec.Execute(context.Background(), json.RawMessage(`{"email_id":`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestWithScheduledTask(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	task := &drainTask{onStart: true}
	WithScheduledTask(task)(cfg)

	require.Len(t, cfg.schedules, 1)
	s := cfg.schedules[0]
	assert.Equal(t, "drain", s.name)
	assert.Equal(t, "*/5 * * * *", s.cron)
	assert.True(t, s.runOnStart)

	require.NoError(t, periodicTask(s.handle).Execute(context.Background(), json.RawMessage(`{"ignored":true}`)))
	assert.Equal(t, 1, task.calls)
}

func TestBuildJobArgs(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	args, opts, err := buildJobArgs("send", sendPayload{EmailID: "42"},
		InQueue("email"),
		ScheduledAt(at),
		MaxAttempts(3),
		Tags("mail"),
	)
	require.NoError(t, err)
	assert.Equal(t, "send", args.TaskName)
	assert.JSONEq(t, `{"email_id":"42"}`, string(args.Payload))
	assert.Equal(t, "email", opts.Queue)
	assert.Equal(t, at, opts.ScheduledAt)
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, []string{"mail"}, opts.Tags)
	assert.False(t, opts.UniqueOpts.ByArgs)
	assert.Equal(t, "mail:task", args.Kind())

	args, opts, err = buildJobArgs("drain", nil, UniqueFor(time.Minute, "2024-05-01T12:00"))
	require.NoError(t, err)
	assert.Empty(t, args.Payload)
	assert.Equal(t, "2024-05-01T12:00", args.UniqueKey)
	assert.True(t, opts.UniqueOpts.ByArgs)
	assert.Equal(t, time.Minute, opts.UniqueOpts.ByPeriod)

	_, _, err = buildJobArgs("bad", make(chan int))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestTaskWorker_Run(t *testing.T) {
	t.Parallel()

	task := &sendTask{err: errors.New("relay down")}
	cfg := newConfig()
	WithTask(task)(cfg)
	w := &taskWorker{registry: cfg.registry, logger: logger.NewNope()}

	err := w.run(context.Background(), taskArgs{TaskName: "send", Payload: json.RawMessage(`{"email_id":"1"}`)}, 1, 1)
	require.EqualError(t, err, "relay down")

	err = w.run(context.Background(), taskArgs{TaskName: "missing"}, 2, 1)
	require.ErrorIs(t, err, ErrUnknownTask)

	task.err = nil
	require.NoError(t, w.run(context.Background(), taskArgs{TaskName: "send"}, 3, 1))
	assert.Len(t, task.got, 2)
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	WithTask(&sendTask{})(cfg)
	cfg.registry.register("drain", periodicTask(func(context.Context) error { return nil }))
	assert.Equal(t, []string{"drain", "send"}, cfg.registry.names())
}
