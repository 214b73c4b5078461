package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestInterpreterFunc(t *testing.T) {
	var got ports.InterpretationRequest
	interp := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (string, error) {
		got = req
		return "ok", nil
	})

	text, err := interp.Interpret(context.Background(), ports.InterpretationRequest{Hexagram: 49, Intention: "why"})
	assert.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 49, got.Hexagram)
}

func TestValidHistoryRecord_PassesValidation(t *testing.T) {
	assert.NoError(t, ports.ValidHistoryRecord("user-1").Validate())
	assert.ErrorIs(t, ports.ValidHistoryRecord("").Validate(), domain.ErrUnauthenticated)
}
