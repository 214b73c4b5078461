/*
Package iching implements the casting engine: coin tosses become line values,
six lines become a Pattern, and the Pattern resolves against the static
Trigram and Hexagram tables.

Everything in this package is pure and synchronous. The tables are built once
at package initialization and only copies leave the package, so concurrent
reads need no synchronization.

	r := iching.NewResolver(nil)
	var a iching.Assembler
	for !a.Complete() {
		_, _ = a.Add(r.Toss())
	}
	reading, err := a.Reading()
*/
package iching
