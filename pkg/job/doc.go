// Package job runs background tasks on River, a Postgres-backed queue.
//
// Tasks are plain structs matched structurally. A task with a payload
// implements Name and Handle(ctx, P):
//
//	type SendEmail struct{ manager *mail.Manager }
//
//	func (t *SendEmail) Name() string { return "send_email" }
//	func (t *SendEmail) Handle(ctx context.Context, p SendEmailPayload) error { ... }
//
// A periodic task implements Name, Schedule (a five-field cron expression)
// and Handle(ctx):
//
//	func (t *ProcessQueue) Schedule() string { return "* * * * *" }
//
// Register both when creating the manager and start it with the application:
//
//	m, err := job.NewManager(pool,
//	    job.WithTask(tasks.NewSendEmail(manager)),
//	    job.WithScheduledTask(tasks.NewProcessQueue(manager, "* * * * *")),
//	    job.WithLogger(log),
//	)
//	if err := job.Migrate(ctx, pool, log); err != nil { ... }
//	if err := m.Start(ctx); err != nil { ... }
//	defer m.Stop(context.Background())
//
// Every task shares one River job kind; the task name and JSON payload travel
// in the job arguments and are dispatched through an in-process registry.
package job
