/*
Package hexcast is an I Ching casting engine with an orchestration layer for
interactive sessions.

The engine turns coin tosses into one of the 64 hexagrams, its changing lines
and the resulting hexagram, and serves the reference text in every loaded
locale. Sessions wrap a cast in a small state machine that requests an
interpretation and writes a history entry exactly once, however often the
surrounding system re-evaluates it.

# Architecture

The core (pkg/iching, pkg/content, pkg/session) is pure and knows nothing about
transports or storage. Adapters plug into the ports defined in pkg/ports:
session stores (memory, file, redis), history stores, interpreters (HTTP client
or the offline static one), and front-ends (HTTP API, MCP server, CLI).

# Usage

	eng, err := hexcast.New(hexcast.WithSeed(42))
	if err != nil {
		log.Fatal(err)
	}
	reading, err := eng.Cast()
	if err != nil {
		log.Fatal(err)
	}
	text, _ := eng.Text(reading.Hexagram.Number, "en")
	fmt.Println(reading.Hexagram.Number, text.Name)

For interactive flows, drive a session through the Manager:

	state, err := eng.Manager().Do(ctx, id, func(ctx context.Context, s *session.Session) error {
		if err := s.Start(domain.ModeAutomatic, "What should I focus on?"); err != nil {
			return err
		}
		if _, err := s.CastRandom(); err != nil {
			return err
		}
		_, err := s.Evaluate(ctx, domain.Caller{UserID: "alice"})
		return err
	})
*/
package hexcast
