/*
Package session implements the Session Orchestration State Machine and the
Manager that serves many sessions concurrently.

A Session walks idle → casting → casting_complete → interpretation_pending →
interpretation_ready → persisted, with Reset returning it to idle from any
phase. The interpretation request and the history write are each guarded by a
one-shot latch, so they fire at most once per session no matter how often the
surrounding system re-evaluates:

	s := session.New("s-1",
		session.WithInterpreter(interp),
		session.WithHistoryStore(history),
	)
	_ = s.Start(domain.ModeAutomatic, "What should I focus on?")
	_, _ = s.CastRandom()
	for i := 0; i < 1000; i++ {
		_, _ = s.Evaluate(ctx, caller) // one interpretation, one history write
	}

The Manager integrates a SessionStore with per-session locks (and an optional
distributed locker) so that stateless front-ends can drive sessions across
requests and replicas.
*/
package session
