// Package chat is the reference deployment: a chatbot whose slow, stateful reply
// generation runs behind an actor and is exposed over three routes.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/indigo-web/miniserve/chat/transcript"
)

// ErrNoCandidates is returned when the generator has nothing to offer.
var ErrNoCandidates = errors.New("generator returned no candidates")

// Reply is the outcome of a single bot turn. Failures are carried inside, as the
// actor itself never fails.
type Reply struct {
	Messages []string
	Err      error
}

// Bot picks the next message of a conversation. It's meant to be owned by a single
// actor, so its collaborators are never called concurrently.
type Bot struct {
	generator  Generator
	random     Random
	retriever  Retriever
	reader     FileReader
	transcript *transcript.Logger
	logger     *slog.Logger
	turns      int
}

func NewBot(
	generator Generator, random Random, retriever Retriever, reader FileReader,
	transcript *transcript.Logger, logger *slog.Logger,
) *Bot {
	return &Bot{
		generator:  generator,
		random:     random,
		retriever:  retriever,
		reader:     reader,
		transcript: transcript,
		logger:     logger,
	}
}

// Call appends the chosen candidate to the history. Retrieved documents are shown
// to the generator in front of the history, but never make it into the reply.
func (b *Bot) Call(ctx context.Context, history []string) Reply {
	messages, err := b.reply(ctx, history)
	return Reply{Messages: messages, Err: err}
}

func (b *Bot) reply(ctx context.Context, history []string) ([]string, error) {
	b.turns++

	paths, err := b.retriever.Retrieve(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("retrieve documents: %w", err)
	}

	prompt := make([]string, 0, len(paths)+len(history))
	for _, path := range paths {
		doc, err := b.reader.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}

		prompt = append(prompt, doc)
	}

	prompt = append(prompt, history...)

	candidates, err := b.generator.Candidates(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	index, err := b.random.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("pick candidate: %w", err)
	}

	index %= len(candidates)
	if index < 0 {
		index += len(candidates)
	}

	chosen := candidates[index]
	b.logger.Debug("reply chosen", "turn", b.turns, "documents", len(paths), "candidates", len(candidates))

	if len(history) > 0 {
		if err = b.transcript.Log(ctx, "user: "+history[len(history)-1]); err != nil {
			return nil, err
		}
	}

	if err = b.transcript.Log(ctx, "bot: "+chosen); err != nil {
		return nil, err
	}

	messages := make([]string, len(history), len(history)+1)
	copy(messages, history)

	return append(messages, chosen), nil
}
