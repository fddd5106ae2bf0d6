package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

func TestRespondValidation(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{reply: "hi"})
	_, err := env.svc.Respond(context.Background(), &models.RespondRequest{Owner: "A", Unit: "U", Message: "  "})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRespondUsesMemoryContext(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{reply: "Use the east stairwell."}
	env := newTestEnv(t, gen)
	env.vectors.vectors["fire exit is the east stairwell"] = []float32{1, 0}
	env.vectors.vectors["where is the fire exit?"] = at(0.9)

	_, err := env.svc.Teach(ctx, &models.TeachRequest{Owner: "A", Unit: "U", Topic: "safety", Content: "fire exit is the east stairwell"})
	require.NoError(t, err)

	before := env.vectors.calls
	resp, err := env.svc.Respond(ctx, &models.RespondRequest{Owner: "A", Unit: "U", Message: "where is the fire exit?"})
	require.NoError(t, err)
	assert.Equal(t, 1, env.vectors.calls-before, "query vector is reused for the interaction memory")
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Use the east stairwell.", resp.Reply)
	assert.False(t, resp.Fallback)

	require.Len(t, gen.systems, 1)
	assert.True(t, strings.HasPrefix(gen.systems[0], "persona"))
	assert.Contains(t, gen.systems[0], "fire exit is the east stairwell")
	assert.Equal(t, "where is the fire exit?", gen.prompts[0])

	mems, err := env.svc.List(ctx, "A", "U")
	require.NoError(t, err)
	require.Len(t, mems, 2)
	assert.Equal(t, models.TopicInteraction, mems[1].Topic)
	assert.Equal(t, "where is the fire exit?", mems[1].Content)
	assert.Equal(t, testModel, mems[1].EmbeddingModel)

	logged, err := env.usage.ListByOwner(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, "U", logged[0].Unit)
	assert.Equal(t, "where is the fire exit?", logged[0].Input)
	assert.Equal(t, "Use the east stairwell.", logged[0].Reply)
	assert.Equal(t, "stub:chat", logged[0].Model)
}

func TestRespondEmbedsRedactedMessageSeparately(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &stubGenerator{reply: "Got it."})
	msg := "my locker code is <private>4711</private>"
	env.vectors.vectors["fire exit is the east stairwell"] = []float32{1, 0}
	env.vectors.vectors[msg] = at(0.2)
	env.vectors.vectors["my locker code is"] = at(0.3)

	_, err := env.svc.Teach(ctx, &models.TeachRequest{Owner: "A", Unit: "U", Topic: "safety", Content: "fire exit is the east stairwell"})
	require.NoError(t, err)

	before := env.vectors.calls
	_, err = env.svc.Respond(ctx, &models.RespondRequest{Owner: "A", Unit: "U", Message: msg})
	require.NoError(t, err)
	assert.Equal(t, 2, env.vectors.calls-before)

	mems, err := env.svc.List(ctx, "A", "U")
	require.NoError(t, err)
	require.Len(t, mems, 2)
	assert.Equal(t, "my locker code is", mems[1].Content)
	assert.NotContains(t, mems[1].Content, "4711")
}

func TestRespondWithoutMemories(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{reply: "Nice to meet you."}
	env := newTestEnv(t, gen)
	env.vectors.vectors["hello"] = []float32{1, 0}

	resp, err := env.svc.Respond(ctx, &models.RespondRequest{Owner: "A", Unit: "U", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Nice to meet you.", resp.Reply)
	assert.Contains(t, gen.systems[0], "I don't know this user yet")
}

func TestRespondFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("generator failure replays matched memories", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("connection refused")}
		env := newTestEnv(t, gen)
		long := strings.Repeat("é", 800)
		env.vectors.vectors[long] = []float32{1, 0}
		env.vectors.vectors["question"] = at(0.9)

		_, err := env.svc.Teach(ctx, &models.TeachRequest{Owner: "A", Unit: "U", Topic: "safety", Content: long})
		require.NoError(t, err)

		resp, err := env.svc.Respond(ctx, &models.RespondRequest{Owner: "A", Unit: "U", Message: "question"})
		require.NoError(t, err)
		assert.True(t, resp.Fallback)
		assert.True(t, strings.HasPrefix(resp.Reply, fallbackIntro))
		assert.Contains(t, resp.Reply, "Topic: safety\nContent: "+strings.Repeat("é", 700)+"...")

		mems, err := env.svc.List(ctx, "A", "U")
		require.NoError(t, err)
		assert.Len(t, mems, 1)

		n, _, err := env.usage.Stats(ctx, "A")
		require.NoError(t, err)
		assert.Zero(t, n, "fallback replies are not logged")
	})

	t.Run("generator failure without matches", func(t *testing.T) {
		env := newTestEnv(t, &stubGenerator{err: errors.New("timeout")})
		env.vectors.vectors["question"] = []float32{1, 0}

		resp, err := env.svc.Respond(ctx, &models.RespondRequest{Owner: "A", Unit: "U", Message: "question"})
		require.NoError(t, err)
		assert.True(t, resp.Fallback)
		assert.Equal(t, NoKnowledgeMessage, resp.Reply)
	})

	t.Run("no generator configured", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resp, err := env.svc.Respond(ctx, &models.RespondRequest{Owner: "A", Unit: "U", Message: "unknown"})
		require.NoError(t, err)
		assert.True(t, resp.Fallback)
		assert.Equal(t, NoKnowledgeMessage, resp.Reply)
	})

	t.Run("cancelled context", func(t *testing.T) {
		env := newTestEnv(t, &stubGenerator{err: context.Canceled})
		env.vectors.vectors["question"] = []float32{1, 0}
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := env.svc.Respond(cctx, &models.RespondRequest{Owner: "A", Unit: "U", Message: "question"})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "日本...", truncate("日本語", 2))
}
