/*
Package domain contains the core domain models of the hexcast engine.

It defines the values that flow through a casting session, from raw coin draws
up to a resolved reading, together with the serializable session snapshot and
the history record handed to the persistence collaborator. This package is
kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - CoinDraw, Toss and LineValue: the raw outcome of three coins and the line it yields.
  - Pattern and ChangingLines: the six assembled lines, bottom first.
  - Trigram and Hexagram: the canonical identities resolved from a Pattern.
  - Reading: everything a completed cast produces.
  - SessionState: a snapshot of the orchestration machine.
  - HistoryRecord: the payload of the single history write of a session.
*/
package domain
